// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package corelib implements the foreign functions exposed to interpreted
// code: io, strings, hashes, math, and option handling. Every function
// here has signature vm.ForeignFn (func(*vm.VM) error) and talks to the
// interpreter exclusively through vm's Arg*/Return* helpers, matching the
// foreign-call contract SPEC_FULL.md §4.6 describes.
package corelib

import (
	"bufio"
	"fmt"
	"os"

	"github.com/probechain/probe-lang/vm"
)

// Stdout wraps os.Stdout as a builtin File value; Close on it is a no-op.
func Stdout(m *vm.VM) vm.Value {
	return m.NewFile(nil, bufio.NewWriter(os.Stdout), nil, true)
}

// Stderr wraps os.Stderr as a builtin File value.
func Stderr(m *vm.VM) vm.Value {
	return m.NewFile(nil, os.Stderr, nil, true)
}

// Print writes its single String/ByteString argument to stdout followed
// by a newline.
func Print(m *vm.VM) error {
	arg := m.Arg(0)
	fmt.Fprintln(os.Stdout, arg.StringData())
	m.ReturnValueNoRef(vm.Unit)
	return nil
}

// Assert raises AssertionError with the given message if its boolean
// argument is false.
func Assert(m *vm.VM) error {
	if !m.ArgBool(0) {
		msg := "Assertion failed."
		if m.ArgCount() > 1 {
			msg = m.ArgString(1)
		}
		m.RaiseAssertion(msg)
	}
	m.ReturnValueNoRef(vm.Unit)
	return nil
}

// Calltrace returns the current call stack as a List of Strings,
// excluding the calltrace activation itself (spec.md's
// include_last_frame_in_trace = false variant).
func Calltrace(m *vm.VM) error {
	frames := m.Traceback()
	// frames[0] is calltrace's own [C] frame.
	if len(frames) > 0 {
		frames = frames[1:]
	}
	elems := make([]vm.Value, len(frames))
	for i, s := range frames {
		elems[i] = m.NewString(s)
	}
	m.ReturnValueNoRef(m.NewList(vm.ClassList, elems))
	return nil
}

// FileRead reads up to n bytes (n < 0 meaning "everything") from a File
// argument.
func FileRead(m *vm.VM) error {
	f := m.Arg(0)
	n := int(m.ArgInt(1))
	data, err := m.ReadN(f, n)
	if err != nil {
		m.RaiseIOError("%s", err.Error())
		return nil
	}
	m.ReturnValueNoRef(data)
	return nil
}

// FileReadLine reads a single line from a File argument.
func FileReadLine(m *vm.VM) error {
	f := m.Arg(0)
	line, err := m.ReadLine(f)
	if err != nil {
		m.RaiseIOError("%s", err.Error())
		return nil
	}
	m.ReturnValueNoRef(line)
	return nil
}

// FileWrite writes its ByteString/String argument to a File argument.
func FileWrite(m *vm.VM) error {
	f := m.Arg(0)
	data := m.Arg(1)
	n, err := m.Write(f, data.Bytes())
	if err != nil {
		m.RaiseIOError("%s", err.Error())
		return nil
	}
	m.ReturnValueNoRef(vm.NewInteger(int64(n)))
	return nil
}

// FileClose closes a File argument.
func FileClose(m *vm.VM) error {
	f := m.Arg(0)
	if err := m.Close(f); err != nil {
		m.RaiseIOError("%s", err.Error())
		return nil
	}
	m.ReturnValueNoRef(vm.Unit)
	return nil
}
