// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package huffman // import "github.com/base-framework/base/huffman"

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is matched by every error caused by a malformed header or
// bit stream.
var ErrInvalidFormat = errors.New("invalid format")

// FormatError describes why an encoded buffer was rejected.
type FormatError struct {
	// Offset is the byte offset into the encoded buffer where the problem was detected.
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("huffman: %v at offset %d: %s", ErrInvalidFormat, e.Offset, e.Msg)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}

func formatErrorf(offset int, format string, args ...any) error {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
