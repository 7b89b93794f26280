// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package huffman implements a canonical Huffman codec over the byte alphabet.
//
// # Format
//
// >>> minimum_length: u8
// >>> maximum_length: u8
// >>> for length in [minimum_length, maximum_length]:
// >>>   number_of_symbols: u8
// >>>   symbols: [number_of_symbols]u8   # ascending
// >>> garbage_bits: u8                   # padding bits in the last payload byte
// >>> <payload: codes packed MSB-first>
//
// An empty input is encoded as the three bytes 00 00 00. A length holding all
// 256 symbols (only possible when minimum and maximum length are both 8) is
// stored with a count byte of 0.
package huffman // import "github.com/base-framework/base/huffman"

import (
	"bytes"
	"fmt"
	"io"

	"github.com/base-framework/base/huffman/bitio"
)

// Encoder holds the code assignment for one input buffer.
type Encoder struct {
	src   []byte
	nodes [AlphabetSize]node
	table *canonical
	// totalBits is the exact size of the encoded payload in bits.
	totalBits uint64
}

// NewEncoder computes the canonical Huffman code for src.
func NewEncoder(src []byte) (*Encoder, error) {
	enc := &Encoder{src: src}
	for _, b := range src {
		enc.nodes[b].frequency++
	}
	updateCodeLengths(&enc.nodes)

	var lengths [AlphabetSize]uint8
	for sym := range enc.nodes {
		if enc.nodes[sym].length > MaxCodeLength {
			return nil, fmt.Errorf("code length %d of symbol %d exceeds %d bits",
				enc.nodes[sym].length, sym, MaxCodeLength)
		}
		lengths[sym] = enc.nodes[sym].length
	}
	enc.table = newCanonical(&lengths)

	var codes [AlphabetSize]uint64
	enc.table.assign(&codes)
	for sym := range enc.nodes {
		enc.nodes[sym].code = codes[sym]
		enc.totalBits += enc.nodes[sym].frequency * uint64(enc.nodes[sym].length)
	}
	return enc, nil
}

// Frequency returns how often sym occurs in the input.
func (enc *Encoder) Frequency(sym byte) uint64 {
	return enc.nodes[sym].frequency
}

// CodeLength returns the code length of sym, 0 if sym is unused.
func (enc *Encoder) CodeLength(sym byte) uint8 {
	return enc.nodes[sym].length
}

// Code returns the canonical code value of sym.
func (enc *Encoder) Code(sym byte) uint64 {
	return enc.nodes[sym].code
}

// Codes returns the codes of all used symbols in canonical order.
func (enc *Encoder) Codes() []Code {
	return enc.table.list()
}

// EncodedBits returns the payload size in bits, excluding padding.
func (enc *Encoder) EncodedBits() uint64 {
	return enc.totalBits
}

// GarbageBits returns the number of padding bits in the last payload byte.
func (enc *Encoder) GarbageBits() uint8 {
	return uint8((8 - enc.totalBits%8) % 8)
}

// appendSymbolTable appends the externalized symbol table to dst.
func (enc *Encoder) appendSymbolTable(dst []byte) []byte {
	t := enc.table
	dst = append(dst, t.minLength, t.maxLength)
	for l := int(t.minLength); l <= int(t.maxLength) && l > 0; l++ {
		// A count of 256 wraps to 0, see the package documentation.
		dst = append(dst, byte(t.counts[l]))
		first := t.offsets[l]
		dst = append(dst, t.symbols[first:first+t.counts[l]]...)
	}
	return append(dst, enc.GarbageBits())
}

// WriteTo writes the symbol table followed by the encoded payload to w.
// Errors of w are returned as is.
func (enc *Encoder) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	header := enc.appendSymbolTable(make([]byte, 0, 3+AlphabetSize+MaxCodeLength))
	if _, err := cw.Write(header); err != nil {
		return cw.n, err
	}

	bw := bitio.NewWriter(cw)
	for _, b := range enc.src {
		n := &enc.nodes[b]
		if err := bw.WriteBits(n.code, uint(n.length)); err != nil {
			return cw.n, err
		}
	}
	padding, err := bw.Flush()
	if err != nil {
		return cw.n, err
	}
	if uint8(padding) != enc.GarbageBits() {
		// Both are derived from the same code lengths.
		panic(fmt.Sprintf("huffman: padding mismatch %d != %d", padding, enc.GarbageBits()))
	}

	bytesIn.Add(bgContext, int64(len(enc.src)))
	bytesOut.Add(bgContext, cw.n)
	return cw.n, nil
}

// Encode writes the Huffman encoding of src to w.
func Encode(w io.Writer, src []byte) error {
	enc, err := NewEncoder(src)
	if err != nil {
		return err
	}
	_, err = enc.WriteTo(w)
	return err
}

// EncodeToBytes returns the Huffman encoding of src.
func EncodeToBytes(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
