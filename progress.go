// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/base-framework/base/profiler"
)

// startProgress logs the recorder statistics every interval until ctx is
// canceled or the returned function is called. The returned function waits
// for the reporting goroutine to exit.
func startProgress(ctx context.Context, rec *profiler.Recorder, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logProgress(rec)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func logProgress(rec *profiler.Recorder) {
	stats := rec.StackFrames().Stats()
	log.Infof("Recorded %d events in %d blocks, %d stack slots used, %d overflow traces, %d frames",
		rec.NumberOfEvents(), rec.Blocks(), stats.SlotsUsed, stats.Overflow, stats.Frames)
}
