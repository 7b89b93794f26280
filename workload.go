// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/base-framework/base/huffman"
	"github.com/base-framework/base/profiler"
)

type workload struct {
	workers    int
	rounds     int
	bufferSize int
}

type workloadStats struct {
	rawBytes     atomic.Uint64
	encodedBytes atomic.Uint64
	flushes      int
}

// run makes every worker Huffman round trip one random buffer per round
// while recording the work. The trace is flushed between rounds, while no
// worker is recording.
func (wl *workload) run(ctx context.Context, rec *profiler.Recorder) (*workloadStats, error) {
	stats := &workloadStats{}
	for round := range wl.rounds {
		g, gctx := errgroup.WithContext(ctx)
		for worker := range wl.workers {
			g.Go(func() error {
				return wl.roundTrip(gctx, rec, stats, worker, round)
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		if rec.IsOpen() && rec.NeedsFlush() {
			if err := rec.Flush(); err != nil {
				return stats, err
			}
			stats.flushes++
		}
		rec.Counter("workload", "bytes", map[string]int64{
			"raw":     int64(stats.rawBytes.Load()),
			"encoded": int64(stats.encodedBytes.Load()),
		})
	}
	return stats, nil
}

func (wl *workload) roundTrip(ctx context.Context, rec *profiler.Recorder,
	stats *workloadStats, worker, round int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer rec.Scope("workload", "round trip").End()
	id := uint16(worker)
	rec.AsyncBegin("workload", "worker", id)
	defer rec.AsyncEnd("workload", "worker", id)

	src := randomBuffer(uint64(worker)<<32|uint64(round), wl.bufferSize)

	start := time.Now()
	encoded, err := encode(rec, src)
	if err != nil {
		return fmt.Errorf("worker %d round %d: %w", worker, round, err)
	}
	rec.Sample("huffman", "encode", time.Since(start))

	start = time.Now()
	decoded, err := decode(rec, encoded)
	if err != nil {
		return fmt.Errorf("worker %d round %d: %w", worker, round, err)
	}
	rec.Sample("huffman", "decode", time.Since(start))

	if !bytes.Equal(src, decoded) {
		return fmt.Errorf("worker %d round %d: round trip mismatch", worker, round)
	}
	stats.rawBytes.Add(uint64(len(src)))
	stats.encodedBytes.Add(uint64(len(encoded)))
	log.Debugf("Worker %d round %d: %d -> %d bytes", worker, round, len(src), len(encoded))
	return nil
}

func encode(rec *profiler.Recorder, src []byte) ([]byte, error) {
	rec.Begin("huffman", "encode")
	defer rec.End("huffman", "encode")
	return huffman.EncodeToBytes(src)
}

func decode(rec *profiler.Recorder, src []byte) ([]byte, error) {
	rec.Begin("huffman", "decode")
	defer rec.End("huffman", "decode")
	return huffman.Decode(src)
}

// randomBuffer returns size bytes drawn from a skewed distribution so that
// the buffers compress.
func randomBuffer(seed uint64, size int) []byte {
	rng := rand.New(rand.NewPCG(seed, 0x5eed))
	buf := make([]byte, size)
	for i := range buf {
		// Geometric distribution over the alphabet.
		sym := 0
		for sym < 255 && rng.IntN(4) != 0 {
			sym++
		}
		buf[i] = byte(sym)
	}
	return buf
}
