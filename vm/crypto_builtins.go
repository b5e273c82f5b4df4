// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "golang.org/x/crypto/sha3"

// Sha3_256 hashes data with SHA3-256, grounded on the wider ProbeChain
// node's own use of golang.org/x/crypto/sha3 for its Keccak/SHA3 hashing
// (crypto/crypto.go) — used here directly rather than through that file,
// since it is entangled with node-only types this module doesn't carry.
func Sha3_256(data []byte) [32]byte {
	return sha3.Sum256(data)
}

// Shake256 derives an arbitrary-length digest with SHAKE256.
func Shake256(data []byte, outLen int) []byte {
	out := make([]byte, outLen)
	sha3.ShakeSum256(out, data)
	return out
}
