// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package stackframe interns raw stack traces and expands them into a
// deduplicated table of symbolized frames.
package stackframe // import "github.com/base-framework/base/profiler/stackframe"

import (
	"fmt"
	"math/bits"
	"slices"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/base-framework/base/libpf/hash"
)

// DefaultSlots is the default size of the fixed slot table.
const DefaultSlots = 4096

// entry is an interned raw stack trace, most recent frame first.
type entry struct {
	hash  uint64
	trace []uintptr
}

func (e *entry) matches(h uint64, trace []uintptr) bool {
	return e != nil && e.hash == h && slices.Equal(e.trace, trace)
}

// Table interns stack traces and owns the frame table.
//
// Interning is safe for concurrent use. Lookups of traces held by the slot
// table are lock-free; claiming a slot is a single compare-and-swap. Traces
// whose slot is taken by a different trace go to the overflow list, which is
// content addressed by hash and guarded by a mutex.
type Table struct {
	slots []atomic.Pointer[entry]
	mask  uint64

	overflowMu     sync.RWMutex
	overflow       []*entry
	overflowByHash map[uint64][]uint32

	// framesMu guards everything below.
	framesMu sync.Mutex
	resolver Resolver
	// frames[0] is a placeholder so that index 0 can mean "no parent".
	frames   []Frame
	bySymbol map[SymbolAndParent]uint32
	lookup   map[StackID]uint32
	// rebalanceCount counts how often the frame table storage was reorganized.
	rebalanceCount uint64
}

// Stats describes the table occupancy.
type Stats struct {
	SlotsUsed      uint64
	Overflow       uint64
	Frames         uint64
	RebalanceCount uint64
}

// NewTable creates a table with at least the given number of slots, rounded
// up to a power of two. A nil resolver names frames by their address.
func NewTable(slots int, resolver Resolver) *Table {
	if slots <= 0 {
		slots = DefaultSlots
	}
	size := uint64(1) << bits.Len64(uint64(slots-1))
	if resolver == nil {
		resolver = addressResolver{}
	}
	t := &Table{
		slots:    make([]atomic.Pointer[entry], size),
		mask:     size - 1,
		resolver: resolver,
	}
	t.resetLocked()
	return t
}

func (t *Table) resetLocked() {
	t.overflow = nil
	t.overflowByHash = make(map[uint64][]uint32)
	t.frames = make([]Frame, 1, 64)
	t.bySymbol = make(map[SymbolAndParent]uint32)
	t.lookup = make(map[StackID]uint32)
	t.rebalanceCount = 0
}

// Intern returns the ID of the given raw stack trace, most recent frame first.
// Identical traces always map to the same ID. Empty traces map to NoStack.
// The trace is copied.
func (t *Table) Intern(trace []uintptr) StackID {
	if len(trace) == 0 {
		return NoStack
	}
	h := hash.Addresses(trace)
	slot := h & t.mask
	p := &t.slots[slot]

	e := p.Load()
	if e == nil {
		claimed := &entry{hash: h, trace: slices.Clone(trace)}
		if p.CompareAndSwap(nil, claimed) {
			return StackID{Kind: KindSlot, Index: uint32(slot)}
		}
		// Lost the race for the slot, re-check who won it.
		e = p.Load()
	}
	if e.matches(h, trace) {
		return StackID{Kind: KindSlot, Index: uint32(slot)}
	}
	return t.internOverflow(h, trace)
}

func (t *Table) findOverflow(h uint64, trace []uintptr) (uint32, bool) {
	for _, idx := range t.overflowByHash[h] {
		if t.overflow[idx].matches(h, trace) {
			return idx, true
		}
	}
	return 0, false
}

func (t *Table) internOverflow(h uint64, trace []uintptr) StackID {
	t.overflowMu.RLock()
	idx, found := t.findOverflow(h, trace)
	t.overflowMu.RUnlock()
	if found {
		return StackID{Kind: KindOverflow, Index: idx}
	}

	t.overflowMu.Lock()
	defer t.overflowMu.Unlock()
	if idx, found = t.findOverflow(h, trace); found {
		return StackID{Kind: KindOverflow, Index: idx}
	}
	idx = uint32(len(t.overflow))
	t.overflow = append(t.overflow, &entry{hash: h, trace: slices.Clone(trace)})
	t.overflowByHash[h] = append(t.overflowByHash[h], idx)
	log.Debugf("Stack hash 0x%x collides in slot %d, stored as overflow entry %d",
		h, h&t.mask, idx)
	return StackID{Kind: KindOverflow, Index: idx}
}

// Trace returns the raw trace of an interned ID, nil for NoStack or unknown IDs.
// The returned slice must not be modified.
func (t *Table) Trace(id StackID) []uintptr {
	switch id.Kind {
	case KindSlot:
		if uint64(id.Index) > t.mask {
			return nil
		}
		if e := t.slots[id.Index].Load(); e != nil {
			return e.trace
		}
	case KindOverflow:
		t.overflowMu.RLock()
		defer t.overflowMu.RUnlock()
		if int(id.Index) < len(t.overflow) {
			return t.overflow[id.Index].trace
		}
	}
	return nil
}

// Build expands an interned trace into frames and returns the index of the
// innermost frame. Frames reached through the same call path are shared
// between traces. The result is memoized per ID; NoStack yields 0.
func (t *Table) Build(id StackID) uint32 {
	if !id.IsValid() {
		return 0
	}
	trace := t.Trace(id)

	t.framesMu.Lock()
	defer t.framesMu.Unlock()

	if idx, ok := t.lookup[id]; ok {
		return idx
	}
	if trace == nil {
		return 0
	}

	var parent uint32
	for i := len(trace) - 1; i >= 0; i-- {
		key := SymbolAndParent{Address: trace[i], Parent: parent}
		idx, ok := t.bySymbol[key]
		if !ok {
			sym := t.resolver.Resolve(trace[i])
			idx = t.appendFrame(Frame{Name: sym.Name, Category: sym.Module, Parent: parent})
			t.bySymbol[key] = idx
		}
		parent = idx
	}
	t.lookup[id] = parent
	return parent
}

func (t *Table) appendFrame(f Frame) uint32 {
	if len(t.frames) == cap(t.frames) {
		t.rebalanceCount++
	}
	idx := uint32(len(t.frames))
	if f.Parent >= idx {
		log.Panicf("Frame %d (%s) has parent %d which is not an earlier frame",
			idx, f.Name, f.Parent)
	}
	t.frames = append(t.frames, f)
	return idx
}

// Frame returns the frame at index. Valid indices are 1..Len().
func (t *Table) Frame(index uint32) (Frame, bool) {
	t.framesMu.Lock()
	defer t.framesMu.Unlock()
	if index == 0 || int(index) >= len(t.frames) {
		return Frame{}, false
	}
	return t.frames[index], true
}

// Len returns the number of frames in the frame table.
func (t *Table) Len() int {
	t.framesMu.Lock()
	defer t.framesMu.Unlock()
	return len(t.frames) - 1
}

// Frames returns a copy of the frame table. Element i is the frame with
// index i+1.
func (t *Table) Frames() []Frame {
	t.framesMu.Lock()
	defer t.framesMu.Unlock()
	return slices.Clone(t.frames[1:])
}

// Each calls fn for all frames in index order. Parents are always visited
// before their children.
func (t *Table) Each(fn func(index uint32, f Frame)) {
	t.framesMu.Lock()
	frames := t.frames[1:]
	t.framesMu.Unlock()
	for i, f := range frames {
		fn(uint32(i+1), f)
	}
}

// Path returns the frames from the given index up to the outermost caller.
func (t *Table) Path(index uint32) []Frame {
	t.framesMu.Lock()
	defer t.framesMu.Unlock()
	var path []Frame
	for index != 0 && int(index) < len(t.frames) {
		f := t.frames[index]
		path = append(path, f)
		index = f.Parent
	}
	return path
}

// RebalanceCount returns how often frame insertion reorganized the table.
func (t *Table) RebalanceCount() uint64 {
	t.framesMu.Lock()
	defer t.framesMu.Unlock()
	return t.rebalanceCount
}

// Stats returns occupancy figures. Counting used slots walks the slot table.
func (t *Table) Stats() Stats {
	var s Stats
	for i := range t.slots {
		if t.slots[i].Load() != nil {
			s.SlotsUsed++
		}
	}
	t.overflowMu.RLock()
	s.Overflow = uint64(len(t.overflow))
	t.overflowMu.RUnlock()
	t.framesMu.Lock()
	s.Frames = uint64(len(t.frames) - 1)
	s.RebalanceCount = t.rebalanceCount
	t.framesMu.Unlock()
	return s
}

// Reset drops all interned traces and frames. Previously returned IDs become
// invalid. It must not run concurrently with any other method.
func (t *Table) Reset() {
	for i := range t.slots {
		t.slots[i].Store(nil)
	}
	t.overflowMu.Lock()
	t.framesMu.Lock()
	t.resetLocked()
	t.framesMu.Unlock()
	t.overflowMu.Unlock()
}

// addressResolver names frames by their hexadecimal address.
type addressResolver struct{}

func (addressResolver) Resolve(addr uintptr) Symbol {
	return Symbol{Name: fmt.Sprintf("0x%x", addr)}
}
