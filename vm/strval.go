// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// stringPayload backs both String (UTF-8 validated) and ByteString (raw
// bytes) values; Kind on the owning Value discriminates which rules
// apply.
type stringPayload struct {
	n   int32
	raw []byte
}

func (s *stringPayload) retain() { s.n++ }

func (s *stringPayload) release() bool {
	s.n--
	return s.n <= 0
}

func (s *stringPayload) refs() int32 { return s.n }

// NewString constructs a String value, validating UTF-8. An invalid
// sequence is replaced by the replacement character, matching the
// "always valid" invariant rather than raising (the front end is
// responsible for rejecting malformed source-literal strings earlier).
func (vm *VM) NewString(s string) Value {
	raw := []byte(s)
	if !utf8.Valid(raw) {
		raw = []byte(strings.ToValidUTF8(s, "�"))
	}
	return derefValue(KindString, ClassString, &stringPayload{n: 1, raw: raw})
}

// NewByteString constructs a ByteString value from raw bytes, with no
// UTF-8 validation.
func (vm *VM) NewByteString(raw []byte) Value {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return derefValue(KindByteString, ClassByteString, &stringPayload{n: 1, raw: cp})
}

// StringData returns the raw bytes of a String or ByteString value.
func (v Value) StringData() string {
	return string(v.ptr.(*stringPayload).raw)
}

// Bytes returns the raw byte slice backing a String or ByteString.
func (v Value) Bytes() []byte {
	return v.ptr.(*stringPayload).raw
}

// leadByteLen maps a UTF-8 lead byte to the number of bytes in its
// sequence, or -1 for an invalid lead byte (a continuation byte or a
// byte that can never start a valid sequence). Shared by every
// byte-indexed String operation that must not split a code point.
var leadByteLen [256]int8

func init() {
	for b := 0; b < 256; b++ {
		switch {
		case b&0x80 == 0x00:
			leadByteLen[b] = 1
		case b&0xE0 == 0xC0:
			leadByteLen[b] = 2
		case b&0xF0 == 0xE0:
			leadByteLen[b] = 3
		case b&0xF8 == 0xF0:
			leadByteLen[b] = 4
		default:
			leadByteLen[b] = -1
		}
	}
}

// SliceString returns the byte range [start, stop) of a String or
// ByteString, clamping negative indices per spec.md's size+i rule.
// stop == len(raw) is a valid end-of-string boundary (see SPEC_FULL.md
// §9.2's resolution of the off-by-one Open Question); the boundary is
// only invalid when it falls strictly inside a multi-byte sequence.
func (vm *VM) SliceString(v Value, start, stop int) Value {
	raw := v.Bytes()
	size := len(raw)
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop > size {
		stop = size
	}
	if start >= stop {
		if v.Kind == KindByteString {
			return vm.NewByteString(nil)
		}
		return vm.NewString("")
	}
	if v.Kind == KindString {
		if start < size && leadByteLen[raw[start]] == -1 {
			return vm.NewString("")
		}
		if stop < size && leadByteLen[raw[stop]] == -1 {
			return vm.NewString("")
		}
	}
	out := make([]byte, stop-start)
	copy(out, raw[start:stop])
	if v.Kind == KindByteString {
		return vm.NewByteString(out)
	}
	return vm.NewString(string(out))
}

// stripSet classifies the strip argument per spec.md §4.8: a set of UTF-8
// code points if it contains any byte > 127, otherwise a set of raw
// bytes.
func stripSet(arg string) (codepoints map[rune]bool, bytes map[byte]bool) {
	for i := 0; i < len(arg); i++ {
		if arg[i] > 127 {
			codepoints = make(map[rune]bool)
			for _, r := range arg {
				codepoints[r] = true
			}
			return codepoints, nil
		}
	}
	bytes = make(map[byte]bool)
	for i := 0; i < len(arg); i++ {
		bytes[arg[i]] = true
	}
	return nil, bytes
}

// LStrip, RStrip, Strip implement the stdlib String methods of the same
// name.
func (vm *VM) LStrip(s, arg string) string {
	cps, bs := stripSet(arg)
	if cps != nil {
		return strings.TrimLeftFunc(s, func(r rune) bool { return cps[r] })
	}
	i := 0
	for i < len(s) && bs[s[i]] {
		i++
	}
	return s[i:]
}

func (vm *VM) RStrip(s, arg string) string {
	cps, bs := stripSet(arg)
	if cps != nil {
		return strings.TrimRightFunc(s, func(r rune) bool { return cps[r] })
	}
	i := len(s)
	for i > 0 && bs[s[i-1]] {
		i--
	}
	return s[:i]
}

func (vm *VM) Strip(s, arg string) string {
	return vm.RStrip(vm.LStrip(s, arg), arg)
}

// Split implements the stdlib String.split method.
func (vm *VM) Split(s, sep string) []string {
	if sep == "" {
		return strings.Fields(s)
	}
	return strings.Split(s, sep)
}

// Join implements the stdlib String.join method over a List of Strings.
func (vm *VM) Join(sep string, parts []Value) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = p.StringData()
	}
	return strings.Join(strs, sep)
}

// Repr renders a Value for diagnostic/error messages (e.g. RaiseKeyError).
func (vm *VM) Repr(v Value) string {
	switch v.Kind {
	case KindUnit:
		return "unit"
	case KindInteger:
		return fmt.Sprintf("%d", v.Int())
	case KindDouble:
		return fmt.Sprintf("%g", v.Double())
	case KindByte:
		return fmt.Sprintf("0x%02x", byte(v.Int()))
	case KindBoolean:
		return fmt.Sprintf("%t", v.Bool())
	case KindString:
		return fmt.Sprintf("%q", v.StringData())
	case KindByteString:
		return fmt.Sprintf("%x", v.Bytes())
	default:
		return fmt.Sprintf("<%d>", v.ClassID())
	}
}
