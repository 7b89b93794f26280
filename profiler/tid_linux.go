// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/base-framework/base/profiler"

import "golang.org/x/sys/unix"

// CurrentThreadID returns the OS thread ID of the caller, truncated to the
// 16 bits stored per event.
func CurrentThreadID() uint16 {
	return uint16(unix.Gettid())
}
