// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package huffman // import "github.com/base-framework/base/huffman"

import (
	"cmp"
	"slices"
)

// endOfList terminates the member chain of a symbol list.
const endOfList = -1

// node is the per-symbol working state of the encoder.
type node struct {
	frequency uint64
	// next links the members of a list during code length construction.
	next int
	length uint8
	code   uint64
}

// symbolList is a set of symbols that share a subtree of the Huffman tree.
// Members are chained through node.next, starting at head.
type symbolList struct {
	head, tail int
	frequency  uint64
}

// updateCodeLengths assigns Huffman code lengths to all symbols with a
// nonzero frequency.
//
// Instead of building an explicit tree, every symbol starts in its own list.
// The two lists with the lowest frequency are merged repeatedly; each merge
// deepens all members of both lists by one level. Lists are kept sorted by
// frequency and the merged list is re-inserted behind all lists of equal
// frequency, which makes the result deterministic.
func updateCodeLengths(nodes *[AlphabetSize]node) {
	lists := make([]symbolList, 0, AlphabetSize)
	for sym := range nodes {
		nodes[sym].next = endOfList
		nodes[sym].length = 0
		if nodes[sym].frequency == 0 {
			continue
		}
		lists = append(lists, symbolList{head: sym, tail: sym, frequency: nodes[sym].frequency})
	}
	if len(lists) == 0 {
		return
	}
	if len(lists) == 1 {
		// A lone symbol still needs one bit per occurrence.
		nodes[lists[0].head].length = 1
		return
	}

	// Stable on the initial symbol order for equal frequencies.
	slices.SortStableFunc(lists, func(a, b symbolList) int {
		return cmp.Compare(a.frequency, b.frequency)
	})

	for len(lists) > 1 {
		a, b := lists[0], lists[1]
		for i := a.head; i != endOfList; i = nodes[i].next {
			nodes[i].length++
		}
		for i := b.head; i != endOfList; i = nodes[i].next {
			nodes[i].length++
		}
		nodes[a.tail].next = b.head
		merged := symbolList{head: a.head, tail: b.tail, frequency: a.frequency + b.frequency}

		// Bounded insertion: shift the remaining lists down by one slot until
		// the merged list's position is found.
		rest := lists[2:]
		pos := 0
		for pos < len(rest) && rest[pos].frequency <= merged.frequency {
			lists[pos] = rest[pos]
			pos++
		}
		lists[pos] = merged
		lists = append(lists[:pos+1], rest[pos:]...)
	}
}
