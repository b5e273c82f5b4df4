// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	lru "github.com/hashicorp/golang-lru"
)

// ClassLoader lazily materializes a stdlib class into the class table the
// first time interpreted code references it by name, instead of every
// stdlib class being registered eagerly at boot. This is "Dynaload". The
// returned Class's ID field is ignored; ResolveClass assigns the real id.
type ClassLoader func(vm *VM, name string) (*Class, bool)

// FunctionLoader lazily materializes a single foreign function.
type FunctionLoader func(vm *VM, name string) (*funcBody, bool)

// dynaloader memoizes both lookups behind an LRU so a long-running
// embedding doesn't repeat the materialization work for a hot stdlib
// symbol on every call.
type dynaloader struct {
	classLoaders    []ClassLoader
	functionLoaders []FunctionLoader

	classCache    *lru.Cache
	functionCache *lru.Cache
}

const dynaloadCacheSize = 256

func newDynaloader() *dynaloader {
	classCache, _ := lru.New(dynaloadCacheSize)
	functionCache, _ := lru.New(dynaloadCacheSize)
	return &dynaloader{classCache: classCache, functionCache: functionCache}
}

// RegisterClassLoader adds a source of lazily-materialized classes (e.g.
// one per stdlib package).
func (d *dynaloader) RegisterClassLoader(l ClassLoader) {
	d.classLoaders = append(d.classLoaders, l)
}

// RegisterFunctionLoader adds a source of lazily-materialized functions.
func (d *dynaloader) RegisterFunctionLoader(l FunctionLoader) {
	d.functionLoaders = append(d.functionLoaders, l)
}

// NewForeignFunctionLoader builds a FunctionLoader backed by a plain
// name->ForeignFn table, so embedders outside this package (which cannot
// name funcBody directly) can still register dynaloaded foreign
// functions without reaching into VM internals.
func NewForeignFunctionLoader(table map[string]ForeignFn) FunctionLoader {
	return func(vmRef *VM, name string) (*funcBody, bool) {
		fn, ok := table[name]
		if !ok {
			return nil, false
		}
		return &funcBody{TraceName: name, IsForeign: true, Foreign: fn}, true
	}
}

// RegisterClassLoader registers a ClassLoader on vm's dynaloader.
func (vm *VM) RegisterClassLoader(l ClassLoader) {
	vm.dyn.RegisterClassLoader(l)
}

// RegisterFunctionLoader registers a FunctionLoader on vm's dynaloader.
func (vm *VM) RegisterFunctionLoader(l FunctionLoader) {
	vm.dyn.RegisterFunctionLoader(l)
}

// ResolveClass returns the class id for name, materializing and caching
// it via the registered loaders on first access.
func (vm *VM) ResolveClass(name string) (uint16, bool) {
	if cached, ok := vm.dyn.classCache.Get(name); ok {
		return cached.(uint16), true
	}
	for _, l := range vm.dyn.classLoaders {
		cls, ok := l(vm, name)
		if !ok {
			continue
		}
		id := vm.classes.Add(cls.Name, cls.Super, cls.HasSuper, cls.Cyclic, cls.Properties)
		vm.dyn.classCache.Add(name, id)
		return id, true
	}
	return 0, false
}

// ResolveFunction returns a foreign funcBody for name, materializing and
// caching it on first access.
func (vm *VM) ResolveFunction(name string) (*funcBody, bool) {
	if cached, ok := vm.dyn.functionCache.Get(name); ok {
		return cached.(*funcBody), true
	}
	for _, l := range vm.dyn.functionLoaders {
		fn, ok := l(vm, name)
		if !ok {
			continue
		}
		vm.dyn.functionCache.Add(name, fn)
		return fn, true
	}
	return nil, false
}
