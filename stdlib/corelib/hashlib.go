// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package corelib

import "github.com/probechain/probe-lang/vm"

// HashGet implements Hash.get(key), raising KeyError on miss.
func HashGet(m *vm.VM) error {
	h := m.Arg(0)
	key := m.Arg(1)
	v, ok := h.Get(key)
	if !ok {
		m.RaiseKeyError(key)
		return nil
	}
	m.Return(v)
	return nil
}

// HashSet implements Hash.set(key, value).
func HashSet(m *vm.VM) error {
	h := m.Arg(0)
	key := m.Arg(1)
	val := m.Arg(2)
	key.Retain()
	val.Retain()
	h.Set(key, val)
	m.ReturnValueNoRef(vm.Unit)
	return nil
}

// HashDelete implements Hash.delete(key), raising RuntimeError if the
// hash is mid-iteration.
func HashDelete(m *vm.VM) error {
	h := m.Arg(0)
	key := m.Arg(1)
	_, mutable := h.Delete(key)
	if !mutable {
		m.RaiseRuntimeError("Cannot delete from hash during iteration.")
		return nil
	}
	m.ReturnValueNoRef(vm.Unit)
	return nil
}

// HashClear implements Hash.clear().
func HashClear(m *vm.VM) error {
	h := m.Arg(0)
	if !h.Clear() {
		m.RaiseRuntimeError("Cannot clear hash during iteration.")
		return nil
	}
	m.ReturnValueNoRef(vm.Unit)
	return nil
}

// HashSize implements Hash.size().
func HashSize(m *vm.VM) error {
	m.ReturnValueNoRef(vm.NewInteger(int64(m.Arg(0).NumEntries())))
	return nil
}

// HashMapValues implements Hash.map_values(fn): fn is invoked for every
// entry as a direct Go call, guarded by the hash's iter-count mechanism.
func HashMapValues(m *vm.VM, fn func(k, v vm.Value) (vm.Value, error)) error {
	h := m.Arg(0)
	out, err := m.MapValues(h, fn)
	if err != nil {
		m.RaiseRuntimeError("%s", err.Error())
		return nil
	}
	m.ReturnValueNoRef(out)
	return nil
}
