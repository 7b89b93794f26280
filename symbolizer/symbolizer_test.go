// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package symbolizer

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/base-framework/base/profiler/stackframe"
)

//go:noinline
func callerPC() uintptr {
	var pcs [1]uintptr
	runtime.Callers(1, pcs[:])
	return pcs[0]
}

func TestRuntime(t *testing.T) {
	sym := Runtime{}.Resolve(callerPC())
	assert.True(t, strings.HasSuffix(sym.Name, "symbolizer.callerPC"), sym.Name)
	assert.Equal(t, "github.com/base-framework/base/symbolizer", sym.Module)

	sym = Runtime{}.Resolve(0)
	assert.Equal(t, UnknownModule, sym.Module)
	assert.Equal(t, "0x0", sym.Name)
}

func TestPackagePath(t *testing.T) {
	tests := map[string]string{
		"main.main":                              "main",
		"runtime.goexit":                         "runtime",
		"github.com/org/repo/pkg.(*Type).Method": "github.com/org/repo/pkg",
		"github.com/org/repo/pkg.Func.func1":     "github.com/org/repo/pkg",
		"nodots":                                 "nodots",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, packagePath(in))
		})
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic([]StaticSymbol{
		{Start: 0x2000, End: 0x2100, Name: "second", Module: "libb.so"},
		{Start: 0x1000, End: 0x1100, Name: "first", Module: "liba.so"},
	})

	tests := map[uintptr]stackframe.Symbol{
		0x0fff: {Name: "0xfff", Module: UnknownModule},
		0x1000: {Name: "first", Module: "liba.so"},
		0x10ff: {Name: "first", Module: "liba.so"},
		0x1100: {Name: "0x1100", Module: UnknownModule},
		0x2050: {Name: "second", Module: "libb.so"},
		0x9000: {Name: "0x9000", Module: UnknownModule},
	}
	for addr, want := range tests {
		assert.Equal(t, want, s.Resolve(addr), "address 0x%x", addr)
	}
}

func TestDemangling(t *testing.T) {
	d := Demangling{Resolver: NewStatic([]StaticSymbol{
		{Start: 0x10, End: 0x20, Name: "_ZN4base8Profiler8addEventEv", Module: "libbase.so"},
		{Start: 0x20, End: 0x30, Name: "plain_c_function", Module: "libc.so"},
	})}

	assert.Equal(t, "base::Profiler::addEvent()", d.Resolve(0x10).Name)
	assert.Equal(t, "libbase.so", d.Resolve(0x10).Module)
	assert.Equal(t, "plain_c_function", d.Resolve(0x20).Name)
}

type countingResolver struct {
	calls int
}

func (c *countingResolver) Resolve(addr uintptr) stackframe.Symbol {
	c.calls++
	return unknown(addr)
}

func TestCached(t *testing.T) {
	inner := &countingResolver{}
	c, err := NewCached(inner, 16)
	require.NoError(t, err)

	for range 3 {
		assert.Equal(t, "0x42", c.Resolve(0x42).Name)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, CacheStatistics{Hit: 2, Miss: 1, Len: 1}, c.Statistics())

	_, err = NewCached(inner, 0)
	require.Error(t, err)
}
