// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package huffman // import "github.com/base-framework/base/huffman"

// AlphabetSize is the number of distinct symbols (all byte values).
const AlphabetSize = 256

// MaxCodeLength is the longest code length that can be represented. Reaching
// it requires inputs far larger than fit into memory.
const MaxCodeLength = 64

// Code is the canonical code assigned to a symbol.
type Code struct {
	Symbol byte
	Length uint8
	// Value holds the code in its low Length bits, written MSB-first.
	Value uint64
}

// canonical holds the per-length tables of a canonical Huffman code.
//
// Codes of one length are numerically contiguous, starting at start[length],
// and are assigned to symbols in increasing symbol order. symbols lists all
// used symbols ordered by (length, symbol); offsets[length] is the index of
// the first symbol of that length.
type canonical struct {
	minLength uint8
	maxLength uint8
	counts    [MaxCodeLength + 1]int
	start     [MaxCodeLength + 1]uint64
	offsets   [MaxCodeLength + 1]int
	symbols   []byte
}

// newCanonical builds the canonical code tables from per-symbol code lengths.
// Length 0 marks an unused symbol. All lengths must be <= MaxCodeLength.
func newCanonical(lengths *[AlphabetSize]uint8) *canonical {
	c := &canonical{}
	for _, l := range lengths {
		if l == 0 {
			continue
		}
		c.counts[l]++
		if c.minLength == 0 || l < c.minLength {
			c.minLength = l
		}
		if l > c.maxLength {
			c.maxLength = l
		}
	}
	if c.maxLength == 0 {
		return c
	}

	// Walk from the longest length to the shortest. For complete codes
	// code+count is always even, so rounding up only matters for incomplete
	// codes, where it keeps shorter codes from prefixing longer ones.
	var code uint64
	for l := int(c.maxLength); l >= int(c.minLength); l-- {
		c.start[l] = code
		code = (code + uint64(c.counts[l]) + 1) >> 1
	}

	c.symbols = make([]byte, 0, AlphabetSize)
	for l := int(c.minLength); l <= int(c.maxLength); l++ {
		c.offsets[l] = len(c.symbols)
		for sym, symLen := range lengths {
			if int(symLen) == l {
				c.symbols = append(c.symbols, byte(sym))
			}
		}
	}
	return c
}

// fits reports whether all codes of every length fit into that many bits,
// which holds exactly when the lengths satisfy the Kraft inequality.
func (c *canonical) fits() bool {
	for l := int(c.minLength); l <= int(c.maxLength) && l > 0; l++ {
		end := c.start[l] + uint64(c.counts[l])
		if l < 64 {
			if end > uint64(1)<<l {
				return false
			}
		} else if end < c.start[l] {
			return false
		}
	}
	return true
}

// assign writes the canonical code value of every used symbol into codes.
func (c *canonical) assign(codes *[AlphabetSize]uint64) {
	for l := int(c.minLength); l <= int(c.maxLength) && l > 0; l++ {
		first := c.offsets[l]
		for i := range c.counts[l] {
			codes[c.symbols[first+i]] = c.start[l] + uint64(i)
		}
	}
}

// lookup returns the symbol for a code value read with the given length.
func (c *canonical) lookup(value uint64, length uint8) (byte, bool) {
	count := c.counts[length]
	if count == 0 || value < c.start[length] || value-c.start[length] >= uint64(count) {
		return 0, false
	}
	return c.symbols[c.offsets[length]+int(value-c.start[length])], true
}

// list returns all codes in canonical order.
func (c *canonical) list() []Code {
	codes := make([]Code, 0, len(c.symbols))
	for l := int(c.minLength); l <= int(c.maxLength) && l > 0; l++ {
		first := c.offsets[l]
		for i := range c.counts[l] {
			codes = append(codes, Code{
				Symbol: c.symbols[first+i],
				Length: uint8(l),
				Value:  c.start[l] + uint64(i),
			})
		}
	}
	return codes
}
