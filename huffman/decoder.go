// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package huffman // import "github.com/base-framework/base/huffman"

import (
	"io"

	"github.com/base-framework/base/huffman/bitio"
)

// Decoder reconstructs the code tables from an encoded buffer and decodes
// its payload.
type Decoder struct {
	lengths     [AlphabetSize]uint8
	table       *canonical
	garbageBits uint8
	payload     []byte
	// payloadOffset is the position of the payload in the encoded buffer.
	payloadOffset int
}

// NewDecoder parses and validates the symbol table at the start of src.
func NewDecoder(src []byte) (*Decoder, error) {
	dec := &Decoder{}
	if err := dec.readSymbols(src); err != nil {
		return nil, err
	}
	dec.table = newCanonical(&dec.lengths)
	if !dec.table.fits() {
		return nil, formatErrorf(0, "code lengths violate the Kraft inequality")
	}
	return dec, nil
}

// readSymbols parses the externalized symbol table.
func (dec *Decoder) readSymbols(src []byte) error {
	if len(src) < 3 {
		return formatErrorf(len(src), "header truncated")
	}
	minLength, maxLength := src[0], src[1]
	pos := 2

	if minLength == 0 && maxLength == 0 {
		// Empty input.
		dec.garbageBits = src[pos]
		pos++
		if dec.garbageBits != 0 || len(src) > pos {
			return formatErrorf(pos, "unexpected payload for empty input")
		}
		dec.payloadOffset = pos
		return nil
	}
	if minLength == 0 || minLength > maxLength {
		return formatErrorf(0, "invalid length range [%d, %d]", minLength, maxLength)
	}
	if maxLength > MaxCodeLength {
		return formatErrorf(1, "maximum length %d exceeds %d bits", maxLength, MaxCodeLength)
	}

	var counts [MaxCodeLength + 1]int
	var seen [AlphabetSize]bool
	for l := int(minLength); l <= int(maxLength); l++ {
		if pos >= len(src) {
			return formatErrorf(pos, "missing symbol count for length %d", l)
		}
		count := int(src[pos])
		if count == 0 && minLength == maxLength {
			count = AlphabetSize
		}
		pos++
		if len(src)-pos < count {
			return formatErrorf(pos, "%d symbols of length %d exceed the buffer", count, l)
		}
		for _, sym := range src[pos : pos+count] {
			if seen[sym] {
				return formatErrorf(pos, "symbol %d listed more than once", sym)
			}
			seen[sym] = true
			dec.lengths[sym] = uint8(l)
		}
		counts[l] = count
		pos += count
	}

	// Tolerate empty lengths at the range boundaries.
	for minLength < maxLength && counts[minLength] == 0 {
		minLength++
	}
	for maxLength > minLength && counts[maxLength] == 0 {
		maxLength--
	}
	if counts[minLength] == 0 {
		return formatErrorf(2, "symbol table lists no symbols")
	}

	if pos >= len(src) {
		return formatErrorf(pos, "missing garbage bit count")
	}
	dec.garbageBits = src[pos]
	pos++
	if dec.garbageBits > 7 {
		return formatErrorf(pos-1, "garbage bit count %d out of range", dec.garbageBits)
	}
	dec.payloadOffset = pos
	dec.payload = src[pos:]
	if len(dec.payload) == 0 && dec.garbageBits != 0 {
		return formatErrorf(pos, "garbage bits without payload")
	}
	return nil
}

// MinLength returns the shortest code length in use.
func (dec *Decoder) MinLength() uint8 {
	return dec.table.minLength
}

// MaxLength returns the longest code length in use.
func (dec *Decoder) MaxLength() uint8 {
	return dec.table.maxLength
}

// GarbageBits returns the number of padding bits in the last payload byte.
func (dec *Decoder) GarbageBits() uint8 {
	return dec.garbageBits
}

// Codes returns the reconstructed codes in canonical order.
func (dec *Decoder) Codes() []Code {
	return dec.table.list()
}

// Bytes decodes the payload. On error no output is returned.
func (dec *Decoder) Bytes() ([]byte, error) {
	if dec.table.maxLength == 0 {
		return []byte{}, nil
	}
	t := dec.table
	r := bitio.NewReader(dec.payload, uint(dec.garbageBits))
	// Every code takes at least one bit.
	out := make([]byte, 0, r.Remaining()/uint64(t.maxLength))

	for r.Remaining() > 0 {
		offset := dec.payloadOffset + int((uint64(len(dec.payload))*8-dec.bitsLeft(r))/8)
		value, ok := r.ReadBits(uint(t.minLength))
		if !ok {
			return nil, formatErrorf(offset, "bit stream truncated")
		}
		length := t.minLength
		for {
			if sym, found := t.lookup(value, length); found {
				out = append(out, sym)
				break
			}
			if length == t.maxLength {
				return nil, formatErrorf(offset, "no code found within %d bits", t.maxLength)
			}
			bit, ok := r.ReadBit()
			if !ok {
				return nil, formatErrorf(offset, "bit stream truncated")
			}
			value = value<<1 | bit
			length++
		}
	}

	bytesIn.Add(bgContext, int64(len(out)))
	bytesOut.Add(bgContext, int64(dec.payloadOffset+len(dec.payload)))
	return out, nil
}

// bitsLeft returns the unread bits including padding.
func (dec *Decoder) bitsLeft(r *bitio.Reader) uint64 {
	return r.Remaining() + uint64(dec.garbageBits)
}

// DecodeTo decodes the payload and writes it to w. Nothing is written if the
// payload is malformed.
func (dec *Decoder) DecodeTo(w io.Writer) error {
	out, err := dec.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Decode decodes a complete encoded buffer.
func Decode(src []byte) ([]byte, error) {
	dec, err := NewDecoder(src)
	if err != nil {
		return nil, err
	}
	return dec.Bytes()
}
