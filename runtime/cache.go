// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package runtime

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"

	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/probechain/probe-lang/vm"
)

// BytecodeCache stores compiled vm.Program blobs keyed by the SHA-256
// digest of the source that produced them. Engine opens one when
// Cache.Enabled is set and exposes it through Engine.Cache; neither probec
// nor Engine calls Lookup or Store itself.
//
// gob can only round-trip vm.Program's exported surface; a Program built
// around foreign functions or dynaloaded classes needs those re-attached
// by the caller after Lookup, the same way a freshly compiled Program
// does before Boot.
type BytecodeCache struct {
	db *leveldb.DB
}

// OpenBytecodeCache opens (or creates) a leveldb store at path.
func OpenBytecodeCache(path string) (*BytecodeCache, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		Compression: opt.NoCompression, // snappy is applied at the value level below
	})
	if err != nil {
		return nil, err
	}
	return &BytecodeCache{db: db}, nil
}

// Close releases the underlying leveldb handle.
func (c *BytecodeCache) Close() error {
	return c.db.Close()
}

// DigestSource returns the cache key for a piece of source text.
func DigestSource(src []byte) [32]byte {
	return sha256.Sum256(src)
}

// Lookup returns the cached program for digest, if present.
func (c *BytecodeCache) Lookup(digest [32]byte) (*vm.Program, bool) {
	raw, err := c.db.Get(digest[:], nil)
	if err != nil {
		return nil, false
	}
	plain, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, false
	}
	var prog vm.Program
	if err := gob.NewDecoder(bytes.NewReader(plain)).Decode(&prog); err != nil {
		return nil, false
	}
	return &prog, true
}

// Store compresses and persists prog under digest.
func (c *BytecodeCache) Store(digest [32]byte, prog *vm.Program) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(prog); err != nil {
		return fmt.Errorf("cache: encode program: %w", err)
	}
	compressed := snappy.Encode(nil, buf.Bytes())
	return c.db.Put(digest[:], compressed, nil)
}
