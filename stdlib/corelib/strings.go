// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package corelib

import "github.com/probechain/probe-lang/vm"

// StringSlice implements String/ByteString.slice(start, stop).
func StringSlice(m *vm.VM) error {
	s := m.Arg(0)
	start := int(m.ArgInt(1))
	stop := int(m.ArgInt(2))
	m.ReturnValueNoRef(m.SliceString(s, start, stop))
	return nil
}

// StringStrip implements String.strip(chars).
func StringStrip(m *vm.VM) error {
	s := m.ArgString(0)
	chars := m.ArgString(1)
	m.ReturnValueNoRef(m.NewString(m.Strip(s, chars)))
	return nil
}

// StringLStrip implements String.lstrip(chars).
func StringLStrip(m *vm.VM) error {
	s := m.ArgString(0)
	chars := m.ArgString(1)
	m.ReturnValueNoRef(m.NewString(m.LStrip(s, chars)))
	return nil
}

// StringRStrip implements String.rstrip(chars).
func StringRStrip(m *vm.VM) error {
	s := m.ArgString(0)
	chars := m.ArgString(1)
	m.ReturnValueNoRef(m.NewString(m.RStrip(s, chars)))
	return nil
}

// StringSplit implements String.split(sep).
func StringSplit(m *vm.VM) error {
	s := m.ArgString(0)
	sep := m.ArgString(1)
	parts := m.Split(s, sep)
	elems := make([]vm.Value, len(parts))
	for i, p := range parts {
		elems[i] = m.NewString(p)
	}
	m.ReturnValueNoRef(m.NewList(vm.ClassList, elems))
	return nil
}

// StringJoin implements String.join(parts) where the receiver is the
// separator and the argument is a List of Strings.
func StringJoin(m *vm.VM) error {
	sep := m.ArgString(0)
	list := m.Arg(1)
	m.ReturnValueNoRef(m.NewString(m.Join(sep, list.Elems())))
	return nil
}

// StringLen returns the byte length of a String/ByteString.
func StringLen(m *vm.VM) error {
	m.ReturnValueNoRef(vm.NewInteger(int64(len(m.Arg(0).Bytes()))))
	return nil
}
