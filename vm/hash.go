// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// hashEntry is one bucket-chain node.
type hashEntry struct {
	key, value Value
	next       *hashEntry
}

// hashBody is an open-chained hash table keyed by Integer or String.
// IterCount guards structural mutation (Delete/Clear) while an iteration
// helper (EachPair/MapValues/Select/Reject) is in progress, per spec.md
// §4.7.
type hashBody struct {
	n          int32
	bins       []*hashEntry
	numEntries int
	iterCount  int
	gcEntry    *gcEntry
}

func (h *hashBody) retain() { h.n++ }

func (h *hashBody) release() bool {
	h.n--
	if h.n <= 0 {
		for _, head := range h.bins {
			for e := head; e != nil; {
				e.key.Release()
				e.value.Release()
				e = e.next
			}
		}
		h.bins = nil
		return true
	}
	return false
}

func (h *hashBody) refs() int32 { return h.n }

const hashInitialBins = 8

// NewHash constructs an empty Hash value.
func (vm *VM) NewHash() Value {
	body := &hashBody{bins: make([]*hashEntry, hashInitialBins)}
	body.n = 1
	v := derefValue(KindHash, ClassHash, body)
	vm.gc.tag(vm, &v, body)
	return v
}

func hashKeyBin(k Value, nbins int) int {
	switch k.Kind {
	case KindInteger, KindBoolean, KindByte:
		return int(uint64(k.Int()) % uint64(nbins))
	case KindString:
		h := uint64(14695981039346656037)
		for _, b := range k.Bytes() {
			h ^= uint64(b)
			h *= 1099511628211
		}
		return int(h % uint64(nbins))
	default:
		return 0
	}
}

func keyEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInteger, KindBoolean, KindByte:
		return a.Int() == b.Int()
	case KindString:
		return a.StringData() == b.StringData()
	default:
		return false
	}
}

// Get looks up key, returning (value, true) on hit.
func (v Value) hashBody_() *hashBody { return v.ptr.(*hashBody) }

func (v Value) Get(key Value) (Value, bool) {
	h := v.hashBody_()
	bin := hashKeyBin(key, len(h.bins))
	for e := h.bins[bin]; e != nil; e = e.next {
		if keyEqual(e.key, key) {
			return e.value, true
		}
	}
	return Value{}, false
}

// Set inserts or overwrites key -> value, taking ownership of both.
func (v Value) Set(key, value Value) {
	h := v.hashBody_()
	bin := hashKeyBin(key, len(h.bins))
	for e := h.bins[bin]; e != nil; e = e.next {
		if keyEqual(e.key, key) {
			key.Release()
			e.value.Release()
			e.value = value
			return
		}
	}
	h.bins[bin] = &hashEntry{key: key, value: value, next: h.bins[bin]}
	h.numEntries++
}

// Delete removes key, returning false (and raising nothing itself) if the
// hash is mid-iteration; the caller (corelib's HashDelete) turns that into
// a RuntimeError.
func (v Value) Delete(key Value) (ok, mutable bool) {
	h := v.hashBody_()
	if h.iterCount > 0 {
		return false, false
	}
	bin := hashKeyBin(key, len(h.bins))
	var prev *hashEntry
	for e := h.bins[bin]; e != nil; prev, e = e, e.next {
		if keyEqual(e.key, key) {
			if prev == nil {
				h.bins[bin] = e.next
			} else {
				prev.next = e.next
			}
			e.key.Release()
			e.value.Release()
			h.numEntries--
			return true, true
		}
	}
	return false, true
}

// Clear empties the hash; like Delete, refuses while mid-iteration.
func (v Value) Clear() (mutable bool) {
	h := v.hashBody_()
	if h.iterCount > 0 {
		return false
	}
	for _, head := range h.bins {
		for e := head; e != nil; {
			e.key.Release()
			e.value.Release()
			e = e.next
		}
	}
	h.bins = make([]*hashEntry, hashInitialBins)
	h.numEntries = 0
	return true
}

// NumEntries returns the live entry count.
func (v Value) NumEntries() int { return v.hashBody_().numEntries }

// beginIter/endIter bracket EachPair/MapValues/Select/Reject; endIter is
// always invoked via defer so a callback raise still decrements the
// counter.
func (v Value) beginIter()        { v.hashBody_().iterCount++ }
func (v Value) endIter() { h := v.hashBody_(); h.iterCount-- }

// EachPair invokes fn(key, value) for every entry, guarding against
// structural mutation for the duration.
func (vm *VM) EachPair(h Value, fn func(k, val Value) error) error {
	h.beginIter()
	defer h.endIter()
	body := h.hashBody_()
	for _, head := range body.bins {
		for e := head; e != nil; e = e.next {
			if err := fn(e.key, e.value); err != nil {
				return err
			}
		}
	}
	return nil
}

// MapValues returns a new Hash with the same keys and fn-transformed
// values.
func (vm *VM) MapValues(h Value, fn func(k, val Value) (Value, error)) (Value, error) {
	out := vm.NewHash()
	err := vm.EachPair(h, func(k, val Value) error {
		nv, err := fn(k, val)
		if err != nil {
			return err
		}
		k.Retain()
		out.Set(k, nv)
		return nil
	})
	if err != nil {
		out.Release()
		return Value{}, err
	}
	return out, nil
}

// Select returns a new Hash containing only entries for which pred
// returns true.
func (vm *VM) Select(h Value, pred func(k, val Value) (bool, error)) (Value, error) {
	out := vm.NewHash()
	err := vm.EachPair(h, func(k, val Value) error {
		keep, err := pred(k, val)
		if err != nil {
			return err
		}
		if keep {
			k.Retain()
			val.Retain()
			out.Set(k, val)
		}
		return nil
	})
	if err != nil {
		out.Release()
		return Value{}, err
	}
	return out, nil
}

// Reject is Select with the predicate inverted.
func (vm *VM) Reject(h Value, pred func(k, val Value) (bool, error)) (Value, error) {
	return vm.Select(h, func(k, val Value) (bool, error) {
		keep, err := pred(k, val)
		return !keep, err
	})
}
