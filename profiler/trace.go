// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/base-framework/base/profiler/stackframe"
	"github.com/base-framework/base/vc"
)

// traceEvent is the JSON form of an Event.
type traceEvent struct {
	Name       string  `json:"name"`
	Category   string  `json:"cat,omitempty"`
	Phase      string  `json:"ph"`
	Timestamp  int64   `json:"ts"`
	Duration   *int64  `json:"dur,omitempty"`
	PID        int     `json:"pid"`
	TID        uint16  `json:"tid"`
	ID         *uint16 `json:"id,omitempty"`
	StackFrame uint32  `json:"sf,omitempty"`
	Args       any     `json:"args,omitempty"`
}

// traceFrame is the JSON form of a stackframe.Frame.
type traceFrame struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Parent   uint32 `json:"parent,omitempty"`
}

// otherData is the trace metadata written on Close.
type otherData struct {
	Session        string `json:"session"`
	Version        string `json:"version,omitempty"`
	ProcessName    string `json:"processName,omitempty"`
	NumberOfEvents uint64 `json:"numberOfEvents"`
	Blocks         int    `json:"blocks"`
	RebalanceCount uint64 `json:"rebalanceCount"`
}

func (r *Recorder) traceEvent(ev *Event) traceEvent {
	te := traceEvent{
		Name:      ev.Name,
		Category:  ev.Category,
		Phase:     ev.Phase.String(),
		Timestamp: ev.Timestamp,
		PID:       r.pid,
		TID:       ev.TID,
		Args:      ev.Data,
	}
	if ev.Phase == PhaseComplete {
		dur := ev.Duration
		te.Duration = &dur
	}
	if ev.ID != NoObject {
		id := ev.ID
		te.ID = &id
	}
	if ev.Stack.IsValid() {
		te.StackFrame = r.frames.Build(ev.Stack)
	}
	return te
}

func (r *Recorder) traceFrames() map[string]traceFrame {
	frames := make(map[string]traceFrame, r.frames.Len())
	r.frames.Each(func(index uint32, f stackframe.Frame) {
		frames[strconv.FormatUint(uint64(index), 10)] = traceFrame{
			Name:     f.Name,
			Category: f.Category,
			Parent:   f.Parent,
		}
	})
	return frames
}

func (r *Recorder) otherData() otherData {
	return otherData{
		Session:        r.session.String(),
		Version:        vc.Version(),
		ProcessName:    r.config.ProcessName,
		NumberOfEvents: r.NumberOfEvents(),
		Blocks:         r.Blocks(),
		RebalanceCount: r.frames.RebalanceCount(),
	}
}

// traceWriter streams the JSON object form of the trace event format.
type traceWriter struct {
	dst    io.WriteCloser
	buf    *bufio.Writer
	enc    *json.Encoder
	events uint64
}

func newTraceWriter(dst io.WriteCloser) (*traceWriter, error) {
	buf := bufio.NewWriter(dst)
	w := &traceWriter{dst: dst, buf: buf, enc: json.NewEncoder(buf)}
	if _, err := buf.WriteString(`{"traceEvents":[`); err != nil {
		return nil, err
	}
	return w, nil
}

// writeEvent appends te to the event array. Arguments that cannot be
// encoded are replaced by an error message so the event is still written.
func (w *traceWriter) writeEvent(te *traceEvent) error {
	data, err := json.Marshal(te)
	if err != nil {
		log.Warnf("Failed to encode arguments of trace event %s/%s: %v",
			te.Category, te.Name, err)
		te.Args = map[string]string{"error": err.Error()}
		if data, err = json.Marshal(te); err != nil {
			return err
		}
	}
	if w.events > 0 {
		if err := w.buf.WriteByte(','); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(data); err != nil {
		return err
	}
	w.events++
	return nil
}

func (w *traceWriter) flush() error {
	return w.buf.Flush()
}

func (w *traceWriter) finish(frames map[string]traceFrame, other otherData) error {
	if _, err := w.buf.WriteString(`],"displayTimeUnit":"ns","stackFrames":`); err != nil {
		return errors.Join(err, w.abort())
	}
	if err := w.enc.Encode(frames); err != nil {
		return errors.Join(err, w.abort())
	}
	if _, err := w.buf.WriteString(`,"otherData":`); err != nil {
		return errors.Join(err, w.abort())
	}
	if err := w.enc.Encode(other); err != nil {
		return errors.Join(err, w.abort())
	}
	if _, err := w.buf.WriteString("}\n"); err != nil {
		return errors.Join(err, w.abort())
	}
	if err := w.buf.Flush(); err != nil {
		return errors.Join(err, w.abort())
	}
	return w.dst.Close()
}

// abort keeps the events written so far and closes the output.
func (w *traceWriter) abort() error {
	return errors.Join(w.buf.Flush(), w.dst.Close())
}
