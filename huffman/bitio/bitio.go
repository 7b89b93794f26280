// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package bitio implements MSB-first bit level writing and reading on top of
// byte streams.
package bitio // import "github.com/base-framework/base/huffman/bitio"

import (
	"bufio"
	"io"
)

// MaxBits is the largest number of bits that can be moved in a single call.
const MaxBits = 64

// chunkBits bounds how many bits are shifted into the accumulator at once, so
// that at most 7 pending bits plus a chunk always fit into 64 bits.
const chunkBits = 56

// Writer packs bit sequences MSB-first into bytes. Output is buffered; Flush
// must be called once all bits are written.
type Writer struct {
	out *bufio.Writer

	// acc holds the pending bits in its low n bits.
	acc uint64
	n   uint

	// written counts all bits passed to WriteBits.
	written uint64
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w)}
}

// WriteBits appends the low n bits of v, most significant bit first.
func (w *Writer) WriteBits(v uint64, n uint) error {
	if n > MaxBits {
		panic("bitio: too many bits in a single write")
	}
	w.written += uint64(n)
	for n > 0 {
		k := min(n, chunkBits-w.n)
		chunk := (v >> (n - k)) & (1<<k - 1)
		w.acc = w.acc<<k | chunk
		w.n += k
		n -= k
		for w.n >= 8 {
			w.n -= 8
			if err := w.out.WriteByte(byte(w.acc >> w.n)); err != nil {
				return err
			}
		}
		w.acc &= 1<<w.n - 1
	}
	return nil
}

// Written returns the number of bits written so far, excluding padding.
func (w *Writer) Written() uint64 {
	return w.written
}

// Flush pads a partial trailing byte with zero bits, writes it and flushes the
// underlying buffer. It returns the number of padding bits (0..7).
func (w *Writer) Flush() (padding uint, err error) {
	if w.n > 0 {
		padding = 8 - w.n
		if err = w.out.WriteByte(byte(w.acc << padding)); err != nil {
			return 0, err
		}
		w.acc = 0
		w.n = 0
	}
	return padding, w.out.Flush()
}

// Reader extracts bits MSB-first from an in-memory byte slice.
type Reader struct {
	data []byte
	// pos and limit are bit offsets into data.
	pos   uint64
	limit uint64
}

// NewReader returns a Reader over data whose last byte carries padding
// trailing bits that are not part of the stream.
func NewReader(data []byte, padding uint) *Reader {
	limit := uint64(len(data)) * 8
	if uint64(padding) > limit {
		limit = 0
	} else {
		limit -= uint64(padding)
	}
	return &Reader{data: data, limit: limit}
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() uint64 {
	return r.limit - r.pos
}

// ReadBit returns the next bit. ok is false once the stream is exhausted.
func (r *Reader) ReadBit() (bit uint64, ok bool) {
	if r.pos >= r.limit {
		return 0, false
	}
	bit = uint64(r.data[r.pos>>3]>>(7-r.pos&7)) & 1
	r.pos++
	return bit, true
}

// ReadBits returns the next n bits as an MSB-first value. ok is false if fewer
// than n bits remain, in which case nothing is consumed.
func (r *Reader) ReadBits(n uint) (v uint64, ok bool) {
	if n > MaxBits {
		panic("bitio: too many bits in a single read")
	}
	if r.Remaining() < uint64(n) {
		return 0, false
	}
	for ; n > 0; n-- {
		bit, _ := r.ReadBit()
		v = v<<1 | bit
	}
	return v, true
}
