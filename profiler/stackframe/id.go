// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package stackframe // import "github.com/base-framework/base/profiler/stackframe"

import "fmt"

// Kind tells which cache a StackID refers to.
type Kind uint8

const (
	// KindNone marks the absence of a stack.
	KindNone Kind = iota
	// KindSlot refers to an entry of the fixed slot table.
	KindSlot
	// KindOverflow refers to an entry of the overflow list.
	KindOverflow
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSlot:
		return "slot"
	case KindOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// highBit marks overflow entries in the raw 32-bit encoding.
const highBit = uint32(1) << 31

// StackID is the interned identity of a raw stack trace. An ID stays valid
// and refers to the same call stack until the table is reset.
type StackID struct {
	Kind  Kind
	Index uint32
}

// NoStack is returned for empty stack traces.
var NoStack = StackID{}

// IsValid reports whether the ID refers to a stack.
func (id StackID) IsValid() bool {
	return id.Kind != KindNone
}

// Raw returns the compact 32-bit encoding: slot entries use the index plus
// one, overflow entries additionally set the high bit. NoStack is 0.
func (id StackID) Raw() uint32 {
	switch id.Kind {
	case KindSlot:
		return id.Index + 1
	case KindOverflow:
		return highBit | (id.Index + 1)
	default:
		return 0
	}
}

// StackIDFromRaw inverts Raw.
func StackIDFromRaw(raw uint32) StackID {
	switch {
	case raw == 0:
		return NoStack
	case raw&highBit != 0:
		return StackID{Kind: KindOverflow, Index: raw&^highBit - 1}
	default:
		return StackID{Kind: KindSlot, Index: raw - 1}
	}
}

func (id StackID) String() string {
	if !id.IsValid() {
		return "none"
	}
	return fmt.Sprintf("%s:%d", id.Kind, id.Index)
}
