// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package profiler // import "github.com/base-framework/base/profiler"

import "os"

// CurrentThreadID returns the process ID where thread IDs are unavailable.
func CurrentThreadID() uint16 {
	return uint16(os.Getpid())
}
