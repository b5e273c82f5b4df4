// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "errors"

// Sentinel errors returned by Go-level APIs (CallPrepare/CallSimple and
// friends). Faults raised to interpreted code are exception instances
// carried by a *vmUnwind panic, not these — these surface only at the
// embedding boundary, mirroring the
// teacher's own package-level sentinel-error convention in lang/vm/vm.go
// and lang/vm/memory.go.
var (
	ErrRecursionLimit       = errors.New("vm: call recursion limit reached")
	ErrDivisionByZero       = errors.New("vm: division by zero")
	ErrIndexOutOfBounds     = errors.New("vm: index out of bounds")
	ErrKeyNotFound          = errors.New("vm: key not found")
	ErrHashMutatedDuringIter = errors.New("vm: hash mutated during iteration")
	ErrInvalidUTF8          = errors.New("vm: invalid utf-8 sequence")
	ErrNoSuchClass          = errors.New("vm: no such class")
	ErrNoSuchFunction       = errors.New("vm: no such function")
	ErrBadArgument          = errors.New("vm: bad foreign-call argument")
	ErrClosed               = errors.New("vm: file already closed")
	ErrUncaught             = errors.New("vm: uncaught exception")
)
