// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import (
	"sync/atomic"

	"github.com/base-framework/base/profiler/stackframe"
)

// Phase is the single character event type of the trace event format.
type Phase byte

const (
	PhaseBegin           Phase = 'B'
	PhaseEnd             Phase = 'E'
	PhaseAsyncBegin      Phase = 'b'
	PhaseAsyncEnd        Phase = 'e'
	PhaseComplete        Phase = 'X'
	PhaseCounter         Phase = 'C'
	PhaseObjectCreated   Phase = 'N'
	PhaseObjectDestroyed Phase = 'D'
	PhaseSample          Phase = 'P'
	PhaseMemory          Phase = 'v'
	PhaseMetadata        Phase = 'M'
	PhaseInstant         Phase = 'i'
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseBegin, PhaseEnd, PhaseAsyncBegin, PhaseAsyncEnd, PhaseComplete,
		PhaseCounter, PhaseObjectCreated, PhaseObjectDestroyed, PhaseSample,
		PhaseMemory, PhaseMetadata, PhaseInstant:
		return true
	}
	return false
}

func (p Phase) String() string {
	return string(rune(p))
}

// NoObject is the object ID of events not tied to an object.
const NoObject uint16 = 0xffff

// Event is a single recorded occurrence. Timestamp and Duration are in
// microseconds since the recorder was created.
type Event struct {
	// Data is emitted as the event arguments.
	Data      any
	Category  string
	Name      string
	Timestamp int64
	Duration  int64
	Stack     stackframe.StackID
	TID       uint16
	ID        uint16
	Flags     uint16
	Phase     Phase
}

// BlockSize is the number of events held by a single Block.
const BlockSize = 4096

// Block is a fixed capacity chunk of events. Blocks are chained in
// allocation order.
type Block struct {
	events [BlockSize]Event
	// reserved counts claimed slots and may exceed BlockSize while writers
	// race for a full block. size counts slots that have been written.
	reserved atomic.Uint32
	size     atomic.Uint32

	next     *Block
	previous *Block
}

// Len returns the number of events written to the block.
func (b *Block) Len() int {
	return min(int(b.size.Load()), BlockSize)
}

// Next returns the block allocated after b.
func (b *Block) Next() *Block {
	return b.next
}

// Previous returns the block allocated before b.
func (b *Block) Previous() *Block {
	return b.previous
}

// Event returns the i-th event of the block.
func (b *Block) Event(i int) *Event {
	return &b.events[i]
}
