// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
)

// tomlSettings ensures TOML keys use the same names as the Go struct
// fields, matching the convention the rest of the node's config loaders
// use.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// GCConfig holds the cycle-catching collector's thresholds. runtime.New
// only logs InitialThreshold; neither field is applied to the VM, which
// keeps its built-in defaults.
type GCConfig struct {
	InitialThreshold int
	Multiplier       int
}

// DynaloadConfig toggles which groups of lazily-materialized stdlib
// classes/functions are registered at boot.
type DynaloadConfig struct {
	EnableCore   bool
	EnableMath   bool
	EnableOption bool
}

// CacheConfig points at the compiled-bytecode cache described in
// runtime/cache.go.
type CacheConfig struct {
	Enabled bool
	Path    string `toml:",omitempty"`
}

// EngineOptions is the top-level configuration for an embedded VM
// instance: GC tuning, call-depth limits, which stdlib groups to
// dynaload, and where to keep the compiled-bytecode cache. runtime.New
// applies Dynaload and Cache; GC and MaxCallDepth are only logged, not
// applied to the VM.
type EngineOptions struct {
	GC           GCConfig
	MaxCallDepth int
	Dynaload     DynaloadConfig
	Cache        CacheConfig
}

// DefaultEngineOptions mirrors the VM package's own defaults so a caller
// who skips config loading entirely still gets sane behavior.
var DefaultEngineOptions = EngineOptions{
	GC: GCConfig{
		InitialThreshold: 100,
		Multiplier:       4,
	},
	MaxCallDepth: 100,
	Dynaload: DynaloadConfig{
		EnableCore:   true,
		EnableMath:   true,
		EnableOption: true,
	},
	Cache: CacheConfig{
		Enabled: false,
		Path:    "probec-cache.db",
	},
}

// LoadConfig reads a TOML file into cfg, starting from whatever cfg
// already holds (callers should seed it with DefaultEngineOptions).
func LoadConfig(file string, cfg *EngineOptions) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// DumpConfig renders cfg back to TOML.
func DumpConfig(cfg *EngineOptions) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}
