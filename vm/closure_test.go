// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClosureCellIndependence covers spec.md's closure capture rule: two
// closures created from the same proto via LoadClosure each get their own
// Upvalues array, but share the underlying *cell for a slot neither one
// clears, so a write through one is visible through the other until
// clearSlots severs that particular slot.
func TestClosureCellIndependence(t *testing.T) {
	machine := Boot(&Program{})

	proto := &funcBody{TraceName: "adder", RegCount: 1}
	proto.Upvalues = []*cell{{Refs: 1, Value: NewInteger(1)}}

	a := machine.LoadClosure(proto, nil)
	b := machine.LoadClosure(proto, nil)

	aBody := a.ptr.(*funcBody)
	bBody := b.ptr.(*funcBody)
	require.Same(t, aBody.Upvalues[0], bBody.Upvalues[0], "both clones share the same cell")

	aBody.SetUpvalue(0, NewInteger(42))
	assert.Equal(t, int64(42), bBody.GetUpvalue(0).Int(), "write through one clone is visible through the sibling")

	// A closure loaded with the slot listed in clearSlots gets a fresh,
	// independent nil cell instead of sharing the parent's.
	c := machine.LoadClosure(proto, []int{0})
	cBody := c.ptr.(*funcBody)
	assert.Nil(t, cBody.Upvalues[0], "cleared slot starts as a fresh nil cell")

	cBody.SetUpvalue(0, NewInteger(7))
	assert.Equal(t, int64(42), bBody.GetUpvalue(0).Int(), "clearing one clone's slot must not affect a sibling's cell")
}

// TestCreateClosureFreshCells covers OpCreateClosure: every cell starts
// nil regardless of what proto carried, since a CREATE_CLOSURE site is the
// defining occurrence, not a recursive re-entry.
func TestCreateClosureFreshCells(t *testing.T) {
	machine := Boot(&Program{})
	proto := &funcBody{TraceName: "counter", RegCount: 1}

	v := machine.CreateClosure(proto, 2)
	body := v.ptr.(*funcBody)
	require.Len(t, body.Upvalues, 2)
	assert.Nil(t, body.Upvalues[0])
	assert.Nil(t, body.Upvalues[1])
	assert.True(t, v.Flags&FlagGCTagged != 0, "closures are unconditionally GC-tagged")
}
