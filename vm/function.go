// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// ForeignFn is the signature every stdlib function must implement: it
// receives the VM (for argument/return access via foreign.go) and returns
// an error only for Go-level faults that have nothing to do with the
// interpreted program (a raise is performed via the VM's Raise* helpers,
// never via this return value).
type ForeignFn func(vm *VM) error

// funcBody is the shared representation for native (interpreted) and
// foreign (Go) functions, with or without captured upvalues.
type funcBody struct {
	n int32

	TraceName  string
	ModulePath string
	Doc        string

	IsForeign bool
	Foreign   ForeignFn

	Code     []uint16
	RegCount int
	CidTable []uint16 // local class-id slot -> absolute id

	Upvalues []*cell // nil for a plain, non-closure function

	gcEntry *gcEntry // set when this closure is tagged; nil for plain functions
}

func (f *funcBody) retain() { f.n++ }

func (f *funcBody) release() bool {
	f.n--
	if f.n <= 0 {
		for _, c := range f.Upvalues {
			if c != nil {
				c.release()
			}
		}
		return true
	}
	return false
}

func (f *funcBody) refs() int32 { return f.n }

// cell is a shared, separately-refcounted upvalue box. Every closure that
// captures the same enclosing local shares a pointer to the same cell.
type cell struct {
	Refs  int32
	Value Value
}

func (c *cell) retain() { c.Refs++ }

func (c *cell) release() bool {
	c.Refs--
	if c.Refs <= 0 {
		c.Value.Release()
		c.Value = Value{}
		return true
	}
	return false
}

// NewFunction wraps a plain native or foreign function body into a Value.
func NewFunction(fn *funcBody) Value {
	fn.n = 1
	return derefValue(KindFunction, ClassFunction, fn)
}

// CreateClosure clones proto into a new funcBody carrying nCells freshly
// zeroed (nil) upvalue cells, per spec.md §4.4's OpCreateClosure. The
// clone is always GC-tagged: closures are unconditionally cyclic-suspect.
func (vm *VM) CreateClosure(proto *funcBody, nCells int) Value {
	clone := *proto
	clone.n = 1
	clone.Upvalues = make([]*cell, nCells)
	v := derefValue(KindFunction, ClassFunction, &clone)
	v.Flags |= FlagGCTagged // closures bypass the lazy-threshold tag path
	vm.gc.tagClosure(vm, &v, &clone)
	return v
}

// LoadClosure clones an existing closure's cell array, bumping every
// non-nil cell's refcount, then runs the "clear on entry" step: the
// listed slot indices are decremented and nilled before the clone is
// published, so a recursive invocation of the closure's own body cannot
// see (and corrupt) the parent activation's captures.
func (vm *VM) LoadClosure(proto *funcBody, clearSlots []int) Value {
	clone := *proto
	clone.n = 1
	clone.Upvalues = make([]*cell, len(proto.Upvalues))
	copy(clone.Upvalues, proto.Upvalues)
	for _, c := range clone.Upvalues {
		if c != nil {
			c.retain()
		}
	}
	for _, slot := range clearSlots {
		if slot < len(clone.Upvalues) && clone.Upvalues[slot] != nil {
			if clone.Upvalues[slot].release() {
				// fully dropped; nothing else references it.
			}
			clone.Upvalues[slot] = nil
		}
	}
	v := derefValue(KindFunction, ClassFunction, &clone)
	v.Flags |= FlagGCTagged
	vm.gc.tagClosure(vm, &v, &clone)
	return v
}

// LoadClassClosure reads a closure stored in an instance's hidden slot
// and clones its cells identically to LoadClosure, without clearing any
// (class-closures are not directly recursive the way a LET-bound closure
// can be).
func (vm *VM) LoadClassClosure(stored Value) Value {
	proto := stored.ptr.(*funcBody)
	return vm.LoadClosure(proto, nil)
}

// GetUpvalue reads the value held by upvalue slot idx.
func (f *funcBody) GetUpvalue(idx int) Value {
	c := f.Upvalues[idx]
	if c == nil {
		return Value{}
	}
	return c.Value
}

// SetUpvalue writes nv into upvalue slot idx, lazily allocating the cell
// on first write to a nil slot.
func (f *funcBody) SetUpvalue(idx int, nv Value) {
	if f.Upvalues[idx] == nil {
		f.Upvalues[idx] = &cell{Refs: 1}
	}
	c := f.Upvalues[idx]
	c.Value.Release()
	c.Value = nv
}
