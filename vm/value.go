// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vm implements the register-based bytecode execution core: the
// tagged value representation, call frames, the interpreter loop, the
// cycle-catching garbage collector, closures, structured exceptions, and
// the foreign-call bridge used by stdlib packages.
package vm

// Kind discriminates the payload carried by a Value.
type Kind uint8

const (
	KindUnit Kind = iota
	KindInteger
	KindDouble
	KindByte
	KindBoolean
	KindString
	KindByteString
	KindList
	KindTuple
	KindHash
	KindInstance
	KindVariant
	KindEmptyVariant
	KindFunction
	KindFile
	KindDynamic
)

// Flags bits: a handful of ownership/GC bits. The class id is not packed
// into Flags; Value keeps it in its own classID field.
type Flags uint32

const (
	// FlagDerefable marks a Value whose payload pointer owns a refcount
	// that must be released exactly once.
	FlagDerefable Flags = 1 << iota
	// FlagGCTagged marks a Value that has a live entry in the collector's
	// tracking list (vm.gc.live).
	FlagGCTagged
	// FlagGCSpeculative marks a Value tagged provisionally during
	// construction, before it is known to be reachable from a register.
	FlagGCSpeculative
	// FlagGCSweepable marks an entry eligible for stage-2 sweep.
	FlagGCSweepable
	// FlagBuiltin marks payloads owned by the VM itself (e.g. stdout)
	// whose Close is a documented no-op.
	FlagBuiltin

	classIDShift = 8
)

// Value is the tagged cell every register, list slot, hash slot, and
// upvalue cell holds. Primitive kinds are stored inline; heap kinds carry
// a pointer to a refcounted payload.
type Value struct {
	Kind    Kind
	Flags   Flags
	classID uint16

	i   int64
	f   float64
	ptr payload
}

// payload is implemented by every heap-allocated, refcounted value body.
type payload interface {
	retain()
	release() bool // returns true once refcount has reached zero
	refs() int32
}

// ClassID returns the value's runtime class id.
func (v Value) ClassID() uint16 { return v.classID }

// WithClassID returns a copy of v tagged with the given class id.
func (v Value) WithClassID(id uint16) Value {
	v.classID = id
	return v
}

// IsDerefable reports whether v owns a payload refcount.
func (v Value) IsDerefable() bool { return v.Flags&FlagDerefable != 0 }

// Payload returns the heap payload, or nil for primitive kinds.
func (v Value) Payload() payload { return v.ptr }

// Retain bumps the payload refcount, if any.
func (v Value) Retain() {
	if v.ptr != nil {
		v.ptr.retain()
	}
}

// Release drops the payload refcount, if any, destroying it at zero.
func (v Value) Release() {
	if v.ptr != nil {
		v.ptr.release()
	}
}

// Unit is the empty-tuple-like singleton value.
var Unit = Value{Kind: KindUnit, classID: ClassUnit}

// NewInteger constructs an Integer value.
func NewInteger(i int64) Value { return Value{Kind: KindInteger, classID: ClassInteger, i: i} }

// NewDouble constructs a Double value.
func NewDouble(f float64) Value { return Value{Kind: KindDouble, classID: ClassDouble, f: f} }

// NewByte constructs a Byte value.
func NewByte(b byte) Value { return Value{Kind: KindByte, classID: ClassByte, i: int64(b)} }

// NewBoolean constructs a Boolean value.
func NewBoolean(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{Kind: KindBoolean, classID: ClassBoolean, i: i}
}

// Int returns the Integer/Boolean/Byte payload as an int64.
func (v Value) Int() int64 { return v.i }

// Double returns the Double payload.
func (v Value) Double() float64 { return v.f }

// Bool returns the Boolean payload as a Go bool.
func (v Value) Bool() bool { return v.i != 0 }

// Truthy implements spec.md's truthiness rule used by OpJumpIf: Unit, a
// zero Integer/Byte/Boolean, the empty String and the empty List are
// false; every other value, including any Double and other empty
// containers, is true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindUnit:
		return false
	case KindInteger, KindByte, KindBoolean:
		return v.i != 0
	case KindString:
		return len(v.Bytes()) != 0
	case KindList:
		return v.Len() != 0
	default:
		return true
	}
}

// derefValue wraps a payload into a Derefable Value of the given kind and
// class id without retaining it: the caller's existing reference to p
// (e.g. a just-allocated payload with a count of 1) passes to the Value.
func derefValue(kind Kind, classID uint16, p payload) Value {
	return Value{Kind: kind, classID: classID, Flags: FlagDerefable, ptr: p}
}
