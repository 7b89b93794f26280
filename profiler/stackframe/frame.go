// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package stackframe // import "github.com/base-framework/base/profiler/stackframe"

import (
	"cmp"
	"strings"
)

// Symbol is the human readable identity of a code address.
type Symbol struct {
	// Name is the function name.
	Name string
	// Module is the package, library or executable containing the function.
	Module string
}

// Resolver maps raw code addresses to symbols.
type Resolver interface {
	Resolve(addr uintptr) Symbol
}

// Frame is one entry of the deduplicated frame table.
type Frame struct {
	Name     string
	Category string
	// Parent is the index of the calling frame, 0 for outermost frames.
	Parent uint32
}

// Compare orders frames by parent, name and category.
func (f Frame) Compare(other Frame) int {
	if c := cmp.Compare(f.Parent, other.Parent); c != 0 {
		return c
	}
	if c := strings.Compare(f.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(f.Category, other.Category)
}

func (f Frame) Less(other Frame) bool {
	return f.Compare(other) < 0
}

// SymbolAndParent identifies a frame before symbolization: a code address
// reached through a given calling frame.
type SymbolAndParent struct {
	Address uintptr
	Parent  uint32
}

// Compare orders by address first, then parent.
func (s SymbolAndParent) Compare(other SymbolAndParent) int {
	if c := cmp.Compare(s.Address, other.Address); c != 0 {
		return c
	}
	return cmp.Compare(s.Parent, other.Parent)
}

func (s SymbolAndParent) Less(other SymbolAndParent) bool {
	return s.Compare(other) < 0
}
