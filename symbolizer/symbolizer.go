// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package symbolizer resolves code addresses to function and module names.
package symbolizer // import "github.com/base-framework/base/symbolizer"

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/elastic/go-freelru"
	"github.com/ianlancetaylor/demangle"

	"github.com/base-framework/base/libpf/hash"
	"github.com/base-framework/base/profiler/stackframe"
)

// UnknownModule is reported for addresses that could not be resolved.
const UnknownModule = "[unknown]"

func unknown(addr uintptr) stackframe.Symbol {
	return stackframe.Symbol{Name: fmt.Sprintf("0x%x", addr), Module: UnknownModule}
}

// Runtime resolves addresses of the running Go program.
type Runtime struct{}

// Resolve implements stackframe.Resolver. Addresses are return addresses as
// produced by runtime.Callers.
func (Runtime) Resolve(addr uintptr) stackframe.Symbol {
	frames := runtime.CallersFrames([]uintptr{addr})
	frame, _ := frames.Next()
	if frame.Function == "" {
		return unknown(addr)
	}
	return stackframe.Symbol{Name: frame.Function, Module: packagePath(frame.Function)}
}

// packagePath extracts the import path from a fully qualified Go function
// name such as "github.com/org/repo/pkg.(*Type).Method".
func packagePath(function string) string {
	lastSlash := strings.LastIndexByte(function, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	if dot := strings.IndexByte(function[lastSlash:], '.'); dot >= 0 {
		return function[:lastSlash+dot]
	}
	return function
}

// StaticSymbol is one entry of a Static symbol table.
type StaticSymbol struct {
	// Start and End delimit the half open address range [Start, End).
	Start, End uintptr
	Name       string
	Module     string
}

// Static resolves addresses from a fixed symbol table, e.g. one loaded from
// a symbol file of a foreign binary.
type Static struct {
	symbols []StaticSymbol
}

// NewStatic creates a resolver for the given symbols. Overlapping ranges are
// resolved to the symbol with the highest start address.
func NewStatic(symbols []StaticSymbol) *Static {
	sorted := append([]StaticSymbol(nil), symbols...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &Static{symbols: sorted}
}

// Resolve implements stackframe.Resolver.
func (s *Static) Resolve(addr uintptr) stackframe.Symbol {
	i := sort.Search(len(s.symbols), func(i int) bool { return s.symbols[i].Start > addr })
	if i == 0 {
		return unknown(addr)
	}
	sym := s.symbols[i-1]
	if addr >= sym.End {
		return unknown(addr)
	}
	return stackframe.Symbol{Name: sym.Name, Module: sym.Module}
}

// Demangling demangles C++ and Rust symbol names returned by the wrapped
// resolver. Names that are not mangled are passed through.
type Demangling struct {
	Resolver stackframe.Resolver
}

// Resolve implements stackframe.Resolver.
func (d Demangling) Resolve(addr uintptr) stackframe.Symbol {
	sym := d.Resolver.Resolve(addr)
	sym.Name = demangle.Filter(sym.Name, demangle.NoClones)
	return sym
}

// Cached memoizes the results of a resolver in an LRU cache.
type Cached struct {
	resolver stackframe.Resolver
	cache    *lru.SyncedLRU[uintptr, stackframe.Symbol]

	hit  atomic.Uint64
	miss atomic.Uint64
}

// CacheStatistics reports cache effectiveness.
type CacheStatistics struct {
	Hit  uint64
	Miss uint64
	Len  int
}

// NewCached wraps resolver with a cache of the given capacity.
func NewCached(resolver stackframe.Resolver, capacity uint32) (*Cached, error) {
	cache, err := lru.NewSynced[uintptr, stackframe.Symbol](capacity, hash.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to create symbol cache: %w", err)
	}
	return &Cached{resolver: resolver, cache: cache}, nil
}

// Resolve implements stackframe.Resolver.
func (c *Cached) Resolve(addr uintptr) stackframe.Symbol {
	if sym, ok := c.cache.Get(addr); ok {
		c.hit.Add(1)
		return sym
	}
	c.miss.Add(1)
	sym := c.resolver.Resolve(addr)
	c.cache.Add(addr, sym)
	return sym
}

// Statistics returns the cache statistics.
func (c *Cached) Statistics() CacheStatistics {
	return CacheStatistics{
		Hit:  c.hit.Load(),
		Miss: c.miss.Load(),
		Len:  c.cache.Len(),
	}
}
