// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package corelib

import "github.com/probechain/probe-lang/vm"

// Option arm discriminants. Per SPEC_FULL.md §9.3, this repo's Result-
// style helper returns Some/None rather than the doc-stale Right/Left
// naming: the code is authoritative over the mismatched comment.
const (
	ArmNone int16 = iota
	ArmSome
)

// OptionSome wraps a value as Some(value).
func OptionSome(m *vm.VM) error {
	v := m.Arg(0)
	v.Retain()
	m.ReturnVariant(vm.ClassDynamic, ArmSome, []vm.Value{v})
	return nil
}

// OptionNone constructs the None variant.
func OptionNone(m *vm.VM) error {
	m.ReturnVariant(vm.ClassDynamic, ArmNone, nil)
	return nil
}

// OptionUnwrap returns a Some's inner value, raising ValueError on None.
func OptionUnwrap(m *vm.VM) error {
	opt := m.Arg(0)
	if opt.VariantArm() != ArmSome {
		m.RaiseValueError("Called unwrap on a None value.")
		return nil
	}
	m.Return(opt.At(0))
	return nil
}
