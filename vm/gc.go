// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// gcEntry is one tracked, possibly-cyclic value. Sweep "hollows" an entry
// (clears its payload pointer) rather than freeing its header immediately,
// so a concurrent (reentrant, within the same mark/sweep pass) visit to
// the same entry observes a stable, already-handled node instead of a
// half-destroyed one.
type gcEntry struct {
	value    payload
	classID  uint16
	lastPass uint64
	marked   bool
	hollow   bool
}

// gcStopper is the stage-3 sentinel named in collect. No entry or register
// is ever set to it: stage 3 scrubs nothing (see collect).
var gcStopper = &gcEntry{hollow: true}

// gc is the mark-sweep collector tracking cyclic-suspect values. It never
// runs except when Tag would push the live count over threshold.
type gc struct {
	live      []*gcEntry
	spare     []*gcEntry
	threshold int
	multiplier int
	pass      uint64
}

const (
	defaultGCThreshold  = 100
	defaultGCMultiplier = 4
)

func newGC() *gc {
	return &gc{threshold: defaultGCThreshold, multiplier: defaultGCMultiplier}
}

// tag registers a possibly-cyclic container/instance/variant/dynamic
// value, running a collection first if the live list is already at
// threshold.
func (g *gc) tag(vmRef *VM, v *Value, p payload) {
	if !vmRef.classes.IsCyclic(v.ClassID()) {
		return
	}
	if len(g.live) >= g.threshold {
		g.collect(vmRef)
	}
	e := g.alloc(p, v.ClassID())
	if c, ok := p.(*containerBody); ok {
		c.gcEntry = e
	}
	v.Flags |= FlagGCTagged
}

// tagClosure registers a closure value; closures are unconditionally
// cyclic-suspect so this skips the class-table check tag() performs.
func (g *gc) tagClosure(vmRef *VM, v *Value, p payload) {
	if len(g.live) >= g.threshold {
		g.collect(vmRef)
	}
	e := g.alloc(p, v.ClassID())
	if fn, ok := p.(*funcBody); ok {
		fn.gcEntry = e
	}
}

func (g *gc) alloc(p payload, classID uint16) *gcEntry {
	var e *gcEntry
	if n := len(g.spare); n > 0 {
		e = g.spare[n-1]
		g.spare = g.spare[:n-1]
		*e = gcEntry{}
	} else {
		e = &gcEntry{}
	}
	e.value = p
	e.classID = classID
	g.live = append(g.live, e)
	return e
}

// collect marks over live registers, sweeps unmarked entries (hollowing
// them and moving their headers to the spare list), and grows the
// threshold if the live count has not shrunk below it. Stage 3
// (dangling-register cleanup) scrubs no registers.
func (g *gc) collect(vmRef *VM) {
	g.pass++
	pass := g.pass

	// Stage 1: mark, walking every live register across every frame.
	for f := vmRef.regs.top; f != nil; f = f.prev {
		for i := 0; i < f.totalRegs; i++ {
			markValue(&vmRef.regs.regsFromMain[f.locals+i], pass)
		}
		for _, c := range f.upvalues {
			if c != nil {
				markValue(&c.Value, pass)
			}
		}
	}
	for i := range vmRef.program.Readonly {
		markValue(&vmRef.program.Readonly[i], pass)
	}

	// Stage 2: sweep. Entries not marked this pass are hollowed: payload
	// dropped, class id kept for diagnostics.
	kept := g.live[:0]
	for _, e := range g.live {
		if e.lastPass == pass {
			kept = append(kept, e)
			continue
		}
		e.hollow = true
		e.value = nil
		// Stage 4: free the header immediately after hollowing, since Go
		// has no separate "pointer still referenced by a stale register"
		// hazard the way the C original's free-list reuse does — dangling
		// register cleanup (stage 3) only needs gcStopper, not the old
		// header.
		g.spare = append(g.spare, e)
	}
	g.live = kept

	// Stage 3: dangling-register cleanup performs no work; no register is
	// scrubbed. Ordinary register slots are never left dangling because
	// stage 1 already marked everything reachable from them, and ret()
	// truncates the register slice at each frame's base, so no slots
	// remain beyond the live window. Values reachable only through paths
	// mark() doesn't walk (e.g. native call arguments copied off-register)
	// are not scrubbed either.
	_ = gcStopper

	if len(g.live) >= g.threshold {
		g.threshold *= g.multiplier
	}
}

// markValue recurses into a Value's payload, marking containers,
// instances, variants, closures, and dynamic cells. Non-cyclic kinds are
// skipped immediately.
func markValue(v *Value, pass uint64) {
	if v == nil || v.ptr == nil {
		return
	}
	switch p := v.ptr.(type) {
	case *containerBody:
		// markable via a side table keyed by pointer identity would need
		// an extra map; instead each containerBody owns a *gcEntry set at
		// tag-time so mark can short-circuit on revisit.
		if p.gcEntry != nil {
			if p.gcEntry.lastPass == pass {
				return
			}
			p.gcEntry.lastPass = pass
		}
		for i := range p.elems {
			markValue(&p.elems[i], pass)
		}
	case *funcBody:
		if p.gcEntry != nil {
			if p.gcEntry.lastPass == pass {
				return
			}
			p.gcEntry.lastPass = pass
		}
		for _, c := range p.Upvalues {
			if c != nil {
				markValue(&c.Value, pass)
			}
		}
	case *dynamicCell:
		if p.gcEntry != nil {
			if p.gcEntry.lastPass == pass {
				return
			}
			p.gcEntry.lastPass = pass
		}
		markValue(&p.inner, pass)
	}
}
