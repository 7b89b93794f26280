// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import (
	"os"
	"path/filepath"

	"github.com/base-framework/base/profiler/stackframe"
)

const (
	// DefaultAutoFlushEvents is the number of events after which NeedsFlush
	// reports true.
	DefaultAutoFlushEvents = 16 * BlockSize
	// DefaultSymbolCacheSize is the default capacity of the symbol cache.
	DefaultSymbolCacheSize = 16384
)

// Config is the configuration of a Recorder.
type Config struct {
	// OutputPath is the trace target opened by Init. Empty means no output
	// until Open is called.
	OutputPath string
	// AutoFlushEvents is the number of recorded events after which
	// NeedsFlush reports true. Zero disables it.
	AutoFlushEvents uint64
	// StackSlots is the size of the stack trace slot table.
	StackSlots int
	// SymbolCacheSize is the capacity of the symbol cache used by Init.
	SymbolCacheSize uint32
	// ProcessName is reported in the trace metadata.
	ProcessName string
	// Enabled starts recording right away.
	Enabled bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AutoFlushEvents: DefaultAutoFlushEvents,
		StackSlots:      stackframe.DefaultSlots,
		SymbolCacheSize: DefaultSymbolCacheSize,
		ProcessName:     filepath.Base(os.Args[0]),
		Enabled:         true,
	}
}
