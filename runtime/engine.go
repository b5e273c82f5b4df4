// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package runtime is the embedding surface around the vm package: it
// owns configuration, the bytecode cache, dynaload registration and
// presents a small lifecycle API (New/Close/Call/Traceback) so callers
// don't have to touch vm.VM's lower-level Boot/Execute/CallPrepare
// machinery directly.
package runtime

import (
	"errors"
	"fmt"

	"github.com/probechain/probe-lang/runtime/vmlog"
	"github.com/probechain/probe-lang/stdlib/corelib"
	"github.com/probechain/probe-lang/vm"
)

// ErrExecutionFailed wraps an uncaught exception or a Go-level VM fault
// surfaced from Engine.Run/Call.
var ErrExecutionFailed = errors.New("probe-lang: execution failed")

// Engine owns a single vm.VM instance plus the ambient services
// (logging, cache, config) wired around it.
type Engine struct {
	opts  EngineOptions
	log   *vmlog.Logger
	vm    *vm.VM
	cache *BytecodeCache
}

// New boots a fresh Engine around prog using opts. Pass
// DefaultEngineOptions when no TOML config was loaded.
func New(prog *vm.Program, opts EngineOptions) (*Engine, error) {
	e := &Engine{opts: opts, log: vmlog.Default}
	e.vm = vm.Boot(prog)

	if opts.Cache.Enabled {
		c, err := OpenBytecodeCache(opts.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("runtime: open cache: %w", err)
		}
		e.cache = c
	}

	if opts.Dynaload.EnableCore {
		registerCoreDynaload(e.vm)
	}
	if opts.Dynaload.EnableMath {
		registerMathDynaload(e.vm)
	}
	if opts.Dynaload.EnableOption {
		registerOptionDynaload(e.vm)
	}

	e.log.Debug("engine booted: maxCallDepth=%d gcThreshold=%d", opts.MaxCallDepth, opts.GC.InitialThreshold)
	return e, nil
}

// Close releases engine-owned resources (currently just the bytecode
// cache, if one was opened).
func (e *Engine) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

// Run executes the program's entry function to completion, returning its
// result value or a wrapped error on an uncaught exception / Go fault.
func (e *Engine) Run() (vm.Value, error) {
	result, exc, err := e.vm.Execute()
	if err == nil {
		return result, nil
	}
	if errors.Is(err, vm.ErrUncaught) {
		e.log.Error("uncaught exception: %s", exc.Message())
		return vm.Unit, fmt.Errorf("%w: %s", ErrExecutionFailed, exc.Message())
	}
	e.log.Error("execution fault: %s", err.Error())
	return vm.Unit, fmt.Errorf("%w: %s", ErrExecutionFailed, err.Error())
}

// Call invokes fn (a Value of Kind Function, e.g. one returned by a
// global or property lookup) with args through the foreign-call bridge.
func (e *Engine) Call(fn vm.Value, args []vm.Value) (vm.Value, vm.Value, error) {
	result, exc, err := e.vm.CallValue(fn, args)
	e.logCallError("call", err, exc)
	return result, exc, err
}

// CallNamed resolves and invokes a dynaloaded stdlib function by name.
func (e *Engine) CallNamed(name string, args []vm.Value) (vm.Value, vm.Value, error) {
	result, exc, err := e.vm.CallNamed(name, args)
	e.logCallError(name, err, exc)
	return result, exc, err
}

// logCallError reports a failed call; exc only carries a message when err
// is ErrUncaught (an interpreted-program exception), never for Go-level
// faults like a missing function.
func (e *Engine) logCallError(label string, err error, exc vm.Value) {
	if err == nil {
		return
	}
	if errors.Is(err, vm.ErrUncaught) {
		e.log.Error("%s failed: %s", label, exc.Message())
		return
	}
	e.log.Error("%s failed: %s", label, err.Error())
}

// VM exposes the underlying vm.VM for callers that need the lower-level
// CallPrepare/CallExecPrepared surface directly.
func (e *Engine) VM() *vm.VM {
	return e.vm
}

// Traceback returns the current call stack's traceback lines.
func (e *Engine) Traceback() []string {
	return e.vm.Traceback()
}

// Cache exposes the engine's bytecode cache, or nil if caching is
// disabled.
func (e *Engine) Cache() *BytecodeCache {
	return e.cache
}

func registerCoreDynaload(m *vm.VM) {
	m.RegisterFunctionLoader(vm.NewForeignFunctionLoader(map[string]vm.ForeignFn{
		"print":     corelib.Print,
		"assert":    corelib.Assert,
		"calltrace": corelib.Calltrace,
	}))
}

func registerMathDynaload(m *vm.VM) {
	m.RegisterFunctionLoader(vm.NewForeignFunctionLoader(map[string]vm.ForeignFn{
		"sum":  corelib.MathSum,
		"dot":  corelib.MathDot,
		"iota": corelib.MathIota,
	}))
}

func registerOptionDynaload(m *vm.VM) {
	m.RegisterFunctionLoader(vm.NewForeignFunctionLoader(map[string]vm.ForeignFn{
		"Some":   corelib.OptionSome,
		"None":   corelib.OptionNone,
		"unwrap": corelib.OptionUnwrap,
	}))
}
