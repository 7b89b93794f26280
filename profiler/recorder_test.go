// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/base-framework/base/profiler/sink"
	"github.com/base-framework/base/profiler/stackframe"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ProcessName = "profiler.test"
	return cfg
}

type parsedTrace struct {
	TraceEvents []struct {
		Name      string          `json:"name"`
		Category  string          `json:"cat"`
		Phase     string          `json:"ph"`
		Timestamp int64           `json:"ts"`
		Duration  *int64          `json:"dur"`
		PID       int             `json:"pid"`
		TID       uint16          `json:"tid"`
		ID        *uint16         `json:"id"`
		SF        uint32          `json:"sf"`
		Args      json.RawMessage `json:"args"`
	} `json:"traceEvents"`
	DisplayTimeUnit string `json:"displayTimeUnit"`
	StackFrames     map[string]struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Parent   uint32 `json:"parent"`
	} `json:"stackFrames"`
	OtherData struct {
		Session        string `json:"session"`
		ProcessName    string `json:"processName"`
		NumberOfEvents uint64 `json:"numberOfEvents"`
		Blocks         int    `json:"blocks"`
	} `json:"otherData"`
}

func readTrace(t *testing.T, path string) parsedTrace {
	t.Helper()
	r, err := sink.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	var trace parsedTrace
	require.NoError(t, json.Unmarshal(data, &trace), string(data))
	return trace
}

func TestPhaseValid(t *testing.T) {
	for _, p := range "BEbeXCNDPvMi" {
		assert.True(t, Phase(p).Valid(), string(p))
	}
	for _, p := range "AZx? " {
		assert.False(t, Phase(p).Valid(), string(p))
	}
	assert.Equal(t, "X", PhaseComplete.String())
}

func TestAddEventBlocks(t *testing.T) {
	empty := NewRecorder(testConfig(), nil)
	assert.Zero(t, empty.Blocks())
	empty.AddEvent(&Event{Name: "first", ID: NoObject, Phase: PhaseInstant})
	assert.Equal(t, 1, empty.Blocks())

	r := NewRecorder(testConfig(), nil)
	const n = 2*BlockSize + 1
	for i := range n {
		r.AddEvent(&Event{Name: "e", Timestamp: int64(i), ID: NoObject, Phase: PhaseInstant})
	}
	assert.Equal(t, uint64(n), r.NumberOfEvents())
	assert.Equal(t, 3, r.Blocks())

	first := r.FirstBlock()
	assert.Equal(t, BlockSize, first.Len())
	require.NotNil(t, first.Next())
	assert.Same(t, first, first.Next().Previous())
	assert.Equal(t, 1, first.Next().Next().Len())
	assert.Nil(t, first.Next().Next().Next())

	var want int64
	r.Events(func(ev *Event) bool {
		assert.Equal(t, want, ev.Timestamp)
		want++
		return true
	})
	assert.Equal(t, int64(n), want)

	var seen int
	r.Events(func(*Event) bool {
		seen++
		return seen < 10
	})
	assert.Equal(t, 10, seen)
}

func TestConcurrentAddEvent(t *testing.T) {
	r := NewRecorder(testConfig(), nil)

	const (
		writers   = 8
		perWriter = 3000
	)
	var g errgroup.Group
	for w := range writers {
		g.Go(func() error {
			for i := range perWriter {
				r.AddEvent(&Event{
					Name:      "work",
					TID:       uint16(w),
					ID:        NoObject,
					Timestamp: int64(i),
					Phase:     PhaseInstant,
				})
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	total := writers * perWriter
	assert.Equal(t, uint64(total), r.NumberOfEvents())
	assert.Equal(t, (total+BlockSize-1)/BlockSize, r.Blocks())

	next := make(map[uint16]int64)
	var count int
	r.Events(func(ev *Event) bool {
		assert.Equal(t, next[ev.TID], ev.Timestamp, "writer %d out of order", ev.TID)
		next[ev.TID] = ev.Timestamp + 1
		count++
		return true
	})
	assert.Equal(t, total, count)
	for w := range writers {
		assert.Equal(t, int64(perWriter), next[uint16(w)])
	}
}

func TestHelpersDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	r := NewRecorder(cfg, nil)
	assert.False(t, r.IsEnabled())

	r.Begin("cat", "a")
	r.Scope("cat", "b").End()
	r.Instant("cat", "c", nil)
	r.Sample("cat", "d", 0)
	assert.Zero(t, r.NumberOfEvents())

	// AddEvent records regardless.
	r.AddEvent(&Event{Name: "raw", ID: NoObject, Phase: PhaseInstant})
	assert.Equal(t, uint64(1), r.NumberOfEvents())

	r.Start()
	r.End("cat", "a")
	assert.Equal(t, uint64(2), r.NumberOfEvents())
	r.Stop()
	r.End("cat", "a")
	assert.Equal(t, uint64(2), r.NumberOfEvents())
}

func TestTraceOutput(t *testing.T) {
	r := NewRecorder(testConfig(), nil)
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, r.Open(path))
	assert.True(t, r.IsOpen())

	r.Metadata("main")
	r.Begin("io", "read")
	r.End("io", "read")
	r.Scope("codec", "encode").End()
	r.Counter("mem", "heap", map[string]int64{"bytes": 42})
	r.ObjectCreated("obj", "buffer", 7)
	r.ObjectDestroyed("obj", "buffer", 7)

	stack := r.StackFrame([]uintptr{0x10, 0x20})
	r.AddEvent(&Event{Name: "stacked", ID: NoObject, Stack: stack, Phase: PhaseInstant})
	require.NoError(t, r.Flush())

	// A second trace sharing the outer frame.
	other := r.StackFrame([]uintptr{0x30, 0x20})
	r.AddEvent(&Event{Name: "shared", ID: NoObject, Stack: other, Phase: PhaseInstant})
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.False(t, r.IsOpen())
	require.ErrorIs(t, r.Flush(), ErrClosed)

	trace := readTrace(t, path)
	require.Len(t, trace.TraceEvents, 9)
	assert.Equal(t, "ns", trace.DisplayTimeUnit)

	phases := ""
	for _, ev := range trace.TraceEvents {
		phases += ev.Phase
		assert.Equal(t, os.Getpid(), ev.PID)
		if ev.Phase == "X" {
			require.NotNil(t, ev.Duration)
			assert.GreaterOrEqual(t, *ev.Duration, int64(0))
		} else {
			assert.Nil(t, ev.Duration)
		}
	}
	assert.Equal(t, "MBEXCNDii", phases)

	assert.JSONEq(t, `{"name":"main"}`, string(trace.TraceEvents[0].Args))
	assert.JSONEq(t, `{"bytes":42}`, string(trace.TraceEvents[4].Args))
	require.NotNil(t, trace.TraceEvents[5].ID)
	assert.Equal(t, uint16(7), *trace.TraceEvents[5].ID)
	assert.Nil(t, trace.TraceEvents[1].ID)

	stacked, shared := trace.TraceEvents[7], trace.TraceEvents[8]
	require.NotZero(t, stacked.SF)
	require.NotZero(t, shared.SF)
	assert.NotEqual(t, stacked.SF, shared.SF)

	require.Len(t, trace.StackFrames, 3)
	leaf := trace.StackFrames[jsonIndex(stacked.SF)]
	assert.Equal(t, "0x10", leaf.Name)
	root := trace.StackFrames[jsonIndex(leaf.Parent)]
	assert.Equal(t, "0x20", root.Name)
	assert.Zero(t, root.Parent)
	assert.Equal(t, leaf.Parent, trace.StackFrames[jsonIndex(shared.SF)].Parent)

	assert.Equal(t, r.Session().String(), trace.OtherData.Session)
	assert.Equal(t, "profiler.test", trace.OtherData.ProcessName)
	assert.Equal(t, uint64(9), trace.OtherData.NumberOfEvents)
	assert.Equal(t, 1, trace.OtherData.Blocks)
}

func jsonIndex(i uint32) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestIncrementalFlush(t *testing.T) {
	cfg := testConfig()
	cfg.AutoFlushEvents = 3
	r := NewRecorder(cfg, nil)

	// Events recorded before Open are kept until the first flush.
	r.Instant("early", "a", nil)
	path := filepath.Join(t.TempDir(), "trace.json.zst")
	require.NoError(t, r.Open(path))

	r.Instant("x", "b", nil)
	assert.False(t, r.NeedsFlush())
	r.Instant("x", "c", nil)
	assert.True(t, r.NeedsFlush())
	require.NoError(t, r.Flush())
	assert.False(t, r.NeedsFlush())

	for range BlockSize {
		r.Instant("x", "bulk", nil)
	}
	assert.True(t, r.NeedsFlush())
	require.NoError(t, r.Flush())
	require.NoError(t, r.Flush())
	r.Instant("x", "last", nil)
	require.NoError(t, r.Close())

	trace := readTrace(t, path)
	require.Len(t, trace.TraceEvents, BlockSize+4)
	assert.Equal(t, "a", trace.TraceEvents[0].Name)
	assert.Equal(t, "c", trace.TraceEvents[2].Name)
	assert.Equal(t, "last", trace.TraceEvents[len(trace.TraceEvents)-1].Name)
	assert.Equal(t, 2, trace.OtherData.Blocks)
}

func TestUnencodableArgs(t *testing.T) {
	r := NewRecorder(testConfig(), nil)
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, r.Open(path))

	r.Instant("x", "ok", nil)
	r.Instant("x", "nan", map[string]float64{"v": math.NaN()})
	r.Instant("x", "func", map[string]any{"f": func() {}})
	require.NoError(t, r.Flush())
	r.Instant("x", "later", map[string]int{"v": 1})
	require.NoError(t, r.Flush())
	require.NoError(t, r.Close())

	trace := readTrace(t, path)
	require.Len(t, trace.TraceEvents, 4)
	names := make([]string, 0, len(trace.TraceEvents))
	for _, ev := range trace.TraceEvents {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"ok", "nan", "func", "later"}, names)

	var args map[string]string
	require.NoError(t, json.Unmarshal(trace.TraceEvents[1].Args, &args))
	assert.Contains(t, args["error"], "NaN")
	assert.JSONEq(t, `{"v":1}`, string(trace.TraceEvents[3].Args))
	assert.Equal(t, uint64(4), trace.OtherData.NumberOfEvents)
}

func TestOpenFailure(t *testing.T) {
	r := NewRecorder(testConfig(), nil)
	err := r.Open(filepath.Join(t.TempDir(), "missing", "trace.json"))
	require.Error(t, err)
	assert.False(t, r.IsOpen())

	r.Begin("cat", "still recorded")
	assert.Equal(t, uint64(1), r.NumberOfEvents())
	require.ErrorIs(t, r.Flush(), ErrClosed)
	require.NoError(t, r.Close())
}

func TestReopen(t *testing.T) {
	r := NewRecorder(testConfig(), nil)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	require.NoError(t, r.Open(first))
	r.Instant("x", "one", nil)
	require.NoError(t, r.Open(second))
	r.Instant("x", "two", nil)
	require.NoError(t, r.Close())

	require.Len(t, readTrace(t, first).TraceEvents, 1)
	events := readTrace(t, second).TraceEvents
	require.Len(t, events, 1)
	assert.Equal(t, "two", events[0].Name)
}

func TestRelease(t *testing.T) {
	r := NewRecorder(testConfig(), nil)
	for range BlockSize + 1 {
		r.Instant("x", "e", nil)
	}
	id := r.StackFrame([]uintptr{1, 2, 3})
	assert.NotZero(t, r.BuildStackFrame(id))
	require.Equal(t, 2, r.Blocks())

	r.Release()
	assert.Zero(t, r.Blocks())
	assert.Zero(t, r.StackFrames().Len())
	var count int
	r.Events(func(*Event) bool {
		count++
		return true
	})
	assert.Zero(t, count)
	// The event counter is monotonic.
	assert.Equal(t, uint64(BlockSize+1), r.NumberOfEvents())

	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, r.Open(path))
	r.Instant("x", "after", nil)
	require.NoError(t, r.Close())
	require.Len(t, readTrace(t, path).TraceEvents, 1)
}

func TestStackFrames(t *testing.T) {
	r := NewRecorder(testConfig(), nil)
	a := r.StackFrame([]uintptr{0x1, 0x2})
	b := r.StackFrame([]uintptr{0x1, 0x2})
	assert.Equal(t, a, b)
	assert.Equal(t, stackframe.NoStack, r.StackFrame(nil))
	assert.Zero(t, r.BuildStackFrame(stackframe.NoStack))

	leaf := r.BuildStackFrame(a)
	assert.Equal(t, leaf, r.BuildStackFrame(b))
	path := r.StackFrames().Path(leaf)
	require.Len(t, path, 2)
	assert.Equal(t, "0x1", path[0].Name)
	assert.Equal(t, "0x2", path[1].Name)

	captured := r.CaptureStack(0)
	assert.True(t, captured.IsValid())
	assert.NotEmpty(t, r.StackFrames().Trace(captured))
}
