// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package profiler records trace events from many goroutines into chained
// fixed size blocks and streams them as Chrome trace event JSON.
//
// Recording is lock-light: a writer claims a slot in the tail block with a
// single atomic increment, and only the allocation of a new block is
// serialized. Flushing, Close and Release read the block chain without
// synchronizing with writers and must only be called while no goroutine is
// recording.
package profiler // import "github.com/base-framework/base/profiler"

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/base-framework/base/profiler/sink"
	"github.com/base-framework/base/profiler/stackframe"
)

var (
	// ErrClosed is returned when flushing without an open trace output.
	ErrClosed = errors.New("trace output is not open")
	// ErrNotInitialized is returned when the process wide recorder is used
	// before Init.
	ErrNotInitialized = errors.New("profiler is not initialized")
	// ErrAlreadyInitialized is returned by a second Init without Shutdown.
	ErrAlreadyInitialized = errors.New("profiler is already initialized")
)

// maxStackDepth bounds the number of frames captured per stack trace.
const maxStackDepth = 64

// Recorder accumulates events and owns the stack frame table.
type Recorder struct {
	config  Config
	frames  *stackframe.Table
	epoch   time.Time
	pid     int
	session uuid.UUID

	enabled        atomic.Bool
	numberOfEvents atomic.Uint64
	// pending counts events recorded since the last flush.
	pending    atomic.Uint64
	blockCount atomic.Uint64

	tail atomic.Pointer[Block]
	// mu serializes block allocation and guards head.
	mu   sync.Mutex
	head *Block

	// outMu guards the trace output and the flush cursor.
	outMu       sync.Mutex
	out         *traceWriter
	cursor      *Block
	cursorIndex int
}

// NewRecorder creates a recorder. Stack frames are named by resolver; a nil
// resolver names them by address.
func NewRecorder(cfg Config, resolver stackframe.Resolver) *Recorder {
	r := &Recorder{
		config:  cfg,
		frames:  stackframe.NewTable(cfg.StackSlots, resolver),
		epoch:   time.Now(),
		pid:     os.Getpid(),
		session: uuid.New(),
	}
	r.resetBlocks()
	if cfg.Enabled {
		r.Start()
	}
	return r
}

func (r *Recorder) resetBlocks() {
	head := &Block{}
	r.head = head
	r.tail.Store(head)
	r.blockCount.Store(1)
	r.cursor = head
	r.cursorIndex = 0
	blocksCounter.Add(bgContext, 1)
}

// Session returns the ID written to the trace metadata.
func (r *Recorder) Session() uuid.UUID {
	return r.session
}

// Now returns the current timestamp in microseconds.
func (r *Recorder) Now() int64 {
	return time.Since(r.epoch).Microseconds()
}

// Start enables the recording helpers.
func (r *Recorder) Start() {
	r.enabled.Store(true)
}

// Stop disables the recording helpers. AddEvent keeps recording.
func (r *Recorder) Stop() {
	r.enabled.Store(false)
}

// IsEnabled reports whether the recording helpers record events.
func (r *Recorder) IsEnabled() bool {
	return r.enabled.Load()
}

// AddEvent copies ev into the tail block. It is safe for concurrent use and
// never drops events. Events added by one goroutine keep their order.
func (r *Recorder) AddEvent(ev *Event) {
	for {
		b := r.tail.Load()
		if i := b.reserved.Add(1) - 1; i < BlockSize {
			b.events[i] = *ev
			b.size.Add(1)
			break
		}
		r.grow(b)
	}
	r.numberOfEvents.Add(1)
	r.pending.Add(1)
	eventsCounter.Add(bgContext, 1)
}

// grow appends a block after full unless another writer already did.
func (r *Recorder) grow(full *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tail.Load() != full {
		return
	}
	b := &Block{previous: full}
	full.next = b
	r.tail.Store(b)
	n := r.blockCount.Add(1)
	blocksCounter.Add(bgContext, 1)
	log.Debugf("Allocated event block %d", n)
}

// NumberOfEvents returns the number of events recorded so far.
func (r *Recorder) NumberOfEvents() uint64 {
	return r.numberOfEvents.Load()
}

// Blocks returns the number of blocks holding events. The empty head block
// kept by a fresh or released recorder is not counted.
func (r *Recorder) Blocks() int {
	n := int(r.blockCount.Load())
	if n == 1 && r.tail.Load().reserved.Load() == 0 {
		return 0
	}
	return n
}

// FirstBlock returns the oldest block of the chain.
func (r *Recorder) FirstBlock() *Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.head
}

// NeedsFlush reports whether the events recorded since the last flush reached
// the configured threshold. The caller flushes at a point where no goroutine
// is recording.
func (r *Recorder) NeedsFlush() bool {
	return r.config.AutoFlushEvents > 0 && r.pending.Load() >= r.config.AutoFlushEvents
}

// Events calls fn for every recorded event in insertion order until fn
// returns false.
func (r *Recorder) Events(fn func(ev *Event) bool) {
	for b := r.FirstBlock(); b != nil; b = b.next {
		for i := range b.Len() {
			if !fn(&b.events[i]) {
				return
			}
		}
	}
}

// StackFrames returns the stack frame table.
func (r *Recorder) StackFrames() *stackframe.Table {
	return r.frames
}

// StackFrame interns a raw stack trace, most recent call first.
func (r *Recorder) StackFrame(trace []uintptr) stackframe.StackID {
	stacksInterned.Add(bgContext, 1)
	return r.frames.Intern(trace)
}

// BuildStackFrame expands an interned trace into the frame table and returns
// the index of its innermost frame.
func (r *Recorder) BuildStackFrame(id stackframe.StackID) uint32 {
	return r.frames.Build(id)
}

// CaptureStack interns the stack of the caller. skip is the number of
// additional frames to leave out, 0 starts at the caller of CaptureStack.
func (r *Recorder) CaptureStack(skip int) stackframe.StackID {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	return r.StackFrame(pcs[:n])
}

// Open starts streaming the trace to target, see sink.Open for the supported
// targets. An already open output is closed first. A failure only affects
// the output, events keep being recorded.
func (r *Recorder) Open(target string) error {
	if err := r.Close(); err != nil {
		log.Warnf("Failed to close previous trace output: %v", err)
	}

	dst, err := sink.Open(bgContext, target)
	if err != nil {
		log.Warnf("Failed to open trace output %s: %v", target, err)
		return fmt.Errorf("failed to open trace output: %w", err)
	}
	out, err := newTraceWriter(dst)
	if err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to start trace output: %w", err)
	}

	r.outMu.Lock()
	r.out = out
	r.outMu.Unlock()
	log.Debugf("Opened trace output %s", target)
	return nil
}

// IsOpen reports whether a trace output is open.
func (r *Recorder) IsOpen() bool {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	return r.out != nil
}

// Flush writes the events recorded since the last flush to the output.
func (r *Recorder) Flush() error {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if r.out == nil {
		log.Warnf("Flush requested without an open trace output")
		return ErrClosed
	}
	return r.flushLocked(r.out)
}

func (r *Recorder) flushLocked(out *traceWriter) error {
	var n int
	for b := r.cursor; b != nil; b = b.next {
		size := b.Len()
		for ; r.cursorIndex < size; r.cursorIndex++ {
			te := r.traceEvent(&b.events[r.cursorIndex])
			if err := out.writeEvent(&te); err != nil {
				return fmt.Errorf("failed to write trace event: %w", err)
			}
			n++
		}
		if size < BlockSize || b.next == nil {
			break
		}
		r.cursor = b.next
		r.cursorIndex = 0
	}
	if err := out.flush(); err != nil {
		return fmt.Errorf("failed to flush trace output: %w", err)
	}
	r.pending.Store(0)
	flushesCounter.Add(bgContext, 1)
	log.Debugf("Flushed %d events", n)
	return nil
}

// Close flushes the remaining events, writes the stack frames and trace
// metadata and closes the output. Closing a closed recorder is a no-op.
func (r *Recorder) Close() error {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	out := r.out
	if out == nil {
		return nil
	}
	r.out = nil

	if err := r.flushLocked(out); err != nil {
		log.Errorf("Failed to flush trace output: %v", err)
		return errors.Join(err, out.abort())
	}
	if err := out.finish(r.traceFrames(), r.otherData()); err != nil {
		log.Errorf("Failed to finish trace output: %v", err)
		return err
	}
	return nil
}

// Release frees all blocks and the stack frame table. It must not race with
// recording goroutines.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outMu.Lock()
	defer r.outMu.Unlock()
	r.resetBlocks()
	r.frames.Reset()
	r.pending.Store(0)
}
