// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/base-framework/base/symbolizer"
)

var (
	// defaultMu serializes Init and Shutdown.
	defaultMu       sync.Mutex
	defaultRecorder atomic.Pointer[Recorder]
)

// Init creates the process wide recorder. Frames are symbolized from the
// running binary. When cfg.OutputPath is set the output is opened; failing to
// open it is logged and recording continues.
func Init(cfg Config) (*Recorder, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRecorder.Load() != nil {
		return nil, ErrAlreadyInitialized
	}

	cacheSize := cfg.SymbolCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultSymbolCacheSize
	}
	resolver, err := symbolizer.NewCached(
		symbolizer.Demangling{Resolver: symbolizer.Runtime{}}, cacheSize)
	if err != nil {
		return nil, err
	}

	r := NewRecorder(cfg, resolver)
	if cfg.OutputPath != "" {
		if err := r.Open(cfg.OutputPath); err != nil {
			log.Warnf("Recording without trace output: %v", err)
		}
	}
	defaultRecorder.Store(r)
	return r, nil
}

// Default returns the process wide recorder, nil before Init.
func Default() *Recorder {
	return defaultRecorder.Load()
}

// Shutdown closes the output of the process wide recorder and releases its
// memory. Init may be called again afterwards.
func Shutdown() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	r := defaultRecorder.Load()
	if r == nil {
		return ErrNotInitialized
	}
	r.Stop()
	err := r.Close()
	r.Release()
	defaultRecorder.Store(nil)
	return err
}
