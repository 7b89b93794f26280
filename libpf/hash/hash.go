// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package hash provides the hash primitives used to key stack traces and
// symbol caches.
package hash // import "github.com/base-framework/base/libpf/hash"

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Uint64 computes a hash of a 64-bit uint using the finalizer function for Murmur3
// Via https://lemire.me/blog/2018/08/15/fast-strongly-universal-64-bit-hashing-everywhere/
func Uint64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// Address returns a 32 bits hash of a code address.
// Its main purpose is to be used as key for LRU caching.
func Address(addr uintptr) uint32 {
	return uint32(Uint64(uint64(addr)))
}

// Addresses hashes a sequence of code addresses. The addresses are hashed in
// their little endian byte representation so the result does not depend on
// the host byte order.
// xxh3 is 4x faster than fnv.
func Addresses(addrs []uintptr) uint64 {
	if len(addrs) == 0 {
		return 0
	}
	var small [32 * 8]byte
	var buf []byte
	if n := len(addrs) * 8; n <= len(small) {
		buf = small[:n]
	} else {
		buf = make([]byte, n)
	}
	for i, addr := range addrs {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(addr))
	}
	return xxh3.Hash(buf)
}
