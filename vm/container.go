// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// containerBody backs List, Tuple, Instance, and Variant values. All four
// share the same layout: a flat slice of Values plus a variant tag.
type containerBody struct {
	n        int32
	elems    []Value
	variant  int16 // -1 for List/Tuple/Instance; the chosen arm for Variant
	gcEntry  *gcEntry
}

func (c *containerBody) retain() { c.n++ }

func (c *containerBody) release() bool {
	c.n--
	if c.n <= 0 {
		for _, e := range c.elems {
			e.Release()
		}
		c.elems = nil
		return true
	}
	return false
}

func (c *containerBody) refs() int32 { return c.n }

// NewList constructs a List value from owned elements (the caller
// transfers ownership of each Value in elems).
func (vm *VM) NewList(classID uint16, elems []Value) Value {
	body := &containerBody{n: 1, elems: elems, variant: -1}
	v := derefValue(KindList, classID, body)
	vm.gc.tag(vm, &v, body)
	return v
}

// NewTuple constructs a Tuple value.
func (vm *VM) NewTuple(classID uint16, elems []Value) Value {
	body := &containerBody{n: 1, elems: elems, variant: -1}
	v := derefValue(KindTuple, classID, body)
	vm.gc.tag(vm, &v, body)
	return v
}

// NewInstance constructs a class instance with the given property slots.
func (vm *VM) NewInstance(classID uint16, props []Value) Value {
	body := &containerBody{n: 1, elems: props, variant: -1}
	v := derefValue(KindInstance, classID, body)
	vm.gc.tag(vm, &v, body)
	return v
}

// NewVariant constructs an enum variant carrying arm as its discriminant
// and args as its boxed payload.
func (vm *VM) NewVariant(classID uint16, arm int16, args []Value) Value {
	body := &containerBody{n: 1, elems: args, variant: arm}
	v := derefValue(KindVariant, classID, body)
	vm.gc.tag(vm, &v, body)
	return v
}

// NewEmptyVariant constructs a tagless enum member (no payload, so it is
// never cyclic-suspect).
func NewEmptyVariant(classID uint16) Value {
	return Value{Kind: KindEmptyVariant, classID: classID}
}

// Len returns the element count of a List/Tuple/Instance/Variant value.
func (v Value) Len() int {
	if c, ok := v.ptr.(*containerBody); ok {
		return len(c.elems)
	}
	return 0
}

// At returns the element at index i without bounds checking; callers use
// execGetItem (interp.go) for the checked, exception-raising variant.
func (v Value) At(i int) Value {
	return v.ptr.(*containerBody).elems[i]
}

// SetAt overwrites the element at index i, releasing the old value and
// taking ownership of nv.
func (v Value) SetAt(i int, nv Value) {
	c := v.ptr.(*containerBody)
	c.elems[i].Release()
	c.elems[i] = nv
}

// Push appends nv (taking ownership) to a List.
func (v Value) Push(nv Value) {
	c := v.ptr.(*containerBody)
	c.elems = append(c.elems, nv)
}

// VariantArm returns the chosen arm of a Variant value.
func (v Value) VariantArm() int16 {
	return v.ptr.(*containerBody).variant
}

// Elems exposes the raw backing slice (read-only use expected).
func (v Value) Elems() []Value {
	if c, ok := v.ptr.(*containerBody); ok {
		return c.elems
	}
	return nil
}
