// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"
)

// Profile converts the recorded sample events into a pprof profile. Each
// sample carries a count of one and the event duration.
func (r *Recorder) Profile() *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "wall", Unit: "microseconds"},
		},
		PeriodType:    &profile.ValueType{Type: "wall", Unit: "microseconds"},
		TimeNanos:     r.epoch.UnixNano(),
		DurationNanos: time.Since(r.epoch).Nanoseconds(),
	}
	locations := make(map[uint32]*profile.Location)
	functions := make(map[string]*profile.Function)

	r.Events(func(ev *Event) bool {
		if ev.Phase != PhaseSample || !ev.Stack.IsValid() {
			return true
		}
		trace := r.frames.Trace(ev.Stack)
		index := r.frames.Build(ev.Stack)
		s := &profile.Sample{
			Value: []int64{1, ev.Duration},
			Label: map[string][]string{"name": {ev.Name}},
		}
		if ev.Category != "" {
			s.Label["category"] = []string{ev.Category}
		}
		// The frame path runs from the innermost frame outwards, like trace.
		for i, f := range r.frames.Path(index) {
			loc, ok := locations[index]
			if !ok {
				key := f.Category + "\x00" + f.Name
				fn, ok := functions[key]
				if !ok {
					fn = &profile.Function{
						ID:         uint64(len(p.Function) + 1),
						Name:       f.Name,
						SystemName: f.Name,
						Filename:   f.Category,
					}
					p.Function = append(p.Function, fn)
					functions[key] = fn
				}
				loc = &profile.Location{
					ID:   uint64(len(p.Location) + 1),
					Line: []profile.Line{{Function: fn}},
				}
				if i < len(trace) {
					loc.Address = uint64(trace[i])
				}
				p.Location = append(p.Location, loc)
				locations[index] = loc
			}
			s.Location = append(s.Location, loc)
			index = f.Parent
		}
		p.Sample = append(p.Sample, s)
		return true
	})
	return p
}

// WriteProfile writes the sample events as a gzip compressed pprof profile.
func (r *Recorder) WriteProfile(w io.Writer) error {
	if err := r.Profile().Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
