// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import "time"

func (r *Recorder) newEvent(phase Phase, category, name string) Event {
	return Event{
		Category:  category,
		Name:      name,
		Timestamp: r.Now(),
		TID:       CurrentThreadID(),
		ID:        NoObject,
		Phase:     phase,
	}
}

func (r *Recorder) record(phase Phase, category, name string, id uint16, data any) {
	if !r.IsEnabled() {
		return
	}
	ev := r.newEvent(phase, category, name)
	ev.ID = id
	ev.Data = data
	r.AddEvent(&ev)
}

// Begin records the start of a duration on the current thread.
func (r *Recorder) Begin(category, name string) {
	r.record(PhaseBegin, category, name, NoObject, nil)
}

// End records the end of the duration started by Begin.
func (r *Recorder) End(category, name string) {
	r.record(PhaseEnd, category, name, NoObject, nil)
}

// Instant records a point in time with optional arguments.
func (r *Recorder) Instant(category, name string, args any) {
	r.record(PhaseInstant, category, name, NoObject, args)
}

// Counter records the current values of a named counter.
func (r *Recorder) Counter(category, name string, values map[string]int64) {
	r.record(PhaseCounter, category, name, NoObject, values)
}

// ObjectCreated records the creation of the object with the given ID.
func (r *Recorder) ObjectCreated(category, name string, id uint16) {
	r.record(PhaseObjectCreated, category, name, id, nil)
}

// ObjectDestroyed records the destruction of the object with the given ID.
func (r *Recorder) ObjectDestroyed(category, name string, id uint16) {
	r.record(PhaseObjectDestroyed, category, name, id, nil)
}

// AsyncBegin records the start of an asynchronous operation.
func (r *Recorder) AsyncBegin(category, name string, id uint16) {
	r.record(PhaseAsyncBegin, category, name, id, nil)
}

// AsyncEnd records the end of an asynchronous operation.
func (r *Recorder) AsyncEnd(category, name string, id uint16) {
	r.record(PhaseAsyncEnd, category, name, id, nil)
}

// Sample records the stack of the caller with the given weight.
func (r *Recorder) Sample(category, name string, weight time.Duration) {
	if !r.IsEnabled() {
		return
	}
	ev := r.newEvent(PhaseSample, category, name)
	ev.Duration = weight.Microseconds()
	ev.Stack = r.CaptureStack(1)
	r.AddEvent(&ev)
}

// Metadata names the current thread in the trace.
func (r *Recorder) Metadata(threadName string) {
	r.record(PhaseMetadata, "", "thread_name", NoObject, map[string]string{"name": threadName})
}

// Scope is an open duration, recorded as a single complete event on End.
type Scope struct {
	r  *Recorder
	ev Event
}

// Scope opens a duration on the current thread. Typical use is
//
//	defer r.Scope("codec", "encode").End()
func (r *Recorder) Scope(category, name string) Scope {
	if !r.IsEnabled() {
		return Scope{}
	}
	return Scope{r: r, ev: r.newEvent(PhaseComplete, category, name)}
}

// End records the scope. It does nothing for scopes opened while the
// recorder was disabled.
func (s Scope) End() {
	if s.r == nil {
		return
	}
	s.ev.Duration = s.r.Now() - s.ev.Timestamp
	s.r.AddEvent(&s.ev)
}
