// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// dynamicCell boxes an arbitrary Value behind a stable Dynamic handle, so
// foreign code can hold a reference whose concrete class may change
// across writes (used by stdlib functions that accept any argument type).
type dynamicCell struct {
	n       int32
	inner   Value
	gcEntry *gcEntry
}

func (d *dynamicCell) retain() { d.n++ }

func (d *dynamicCell) release() bool {
	d.n--
	if d.n <= 0 {
		d.inner.Release()
		d.inner = Value{}
		return true
	}
	return false
}

func (d *dynamicCell) refs() int32 { return d.n }

// NewDynamic boxes inner (taking ownership of it) into a Dynamic value.
func (vm *VM) NewDynamic(inner Value) Value {
	body := &dynamicCell{n: 1, inner: inner}
	v := derefValue(KindDynamic, ClassDynamic, body)
	vm.gc.tag(vm, &v, body)
	return v
}

// Inner returns the boxed value held by a Dynamic.
func (v Value) Inner() Value {
	return v.ptr.(*dynamicCell).inner
}

// SetInner replaces the boxed value, releasing the old one.
func (v Value) SetInner(nv Value) {
	d := v.ptr.(*dynamicCell)
	d.inner.Release()
	d.inner = nv
}
