// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Adapted from the teacher's stdlib/math package: the same J/APL-style
// reduce/map/zip/filter operations, retargeted from a native uint64
// array to the VM's List container so they can be called from
// interpreted code through the foreign-call bridge.
package corelib

import "github.com/probechain/probe-lang/vm"

// MathSum implements List.sum() over a List of Integers.
func MathSum(m *vm.VM) error {
	list := m.Arg(0)
	var s int64
	for _, v := range list.Elems() {
		s += v.Int()
	}
	m.ReturnValueNoRef(vm.NewInteger(s))
	return nil
}

// MathDot implements List.dot(other): the dot product of two equal-length
// Integer lists.
func MathDot(m *vm.VM) error {
	a := m.Arg(0).Elems()
	b := m.Arg(1).Elems()
	if len(a) != len(b) {
		m.RaiseValueError("dot: lists must have equal length.")
		return nil
	}
	var s int64
	for i := range a {
		s += a[i].Int() * b[i].Int()
	}
	m.ReturnValueNoRef(vm.NewInteger(s))
	return nil
}

// MathIota implements List.iota(n): builds [0, 1, ..., n-1].
func MathIota(m *vm.VM) error {
	n := int(m.ArgInt(0))
	if n < 0 {
		m.RaiseValueError("iota: n must be non-negative.")
		return nil
	}
	elems := make([]vm.Value, n)
	for i := 0; i < n; i++ {
		elems[i] = vm.NewInteger(int64(i))
	}
	m.ReturnValueNoRef(m.NewList(vm.ClassList, elems))
	return nil
}
