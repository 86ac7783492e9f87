// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriq/hdl"
	"github.com/veriq/hdl/hdltest"
)

func Test_sync_fifo_geometry(t *testing.T) {
	f := NewSyncFIFO(8, 4, false)
	assert.Equal(t, 8, f.Din.Bits)
	assert.Equal(t, 8, f.Dout.Bits)
	// the level counts 0 through depth inclusive
	assert.Equal(t, 3, f.Level.Bits)
	assert.True(t, f.Din.ResetLess)
	assert.True(t, f.Dout.ResetLess)
}

func Test_sync_fifo_elaborate(t *testing.T) {
	f := NewSyncFIFO(8, 4, false)
	frag := hdltest.Elaborate(t, f, nil)

	require.Len(t, frag.Subfragments(), 2)
	assert.Equal(t, "wrport", frag.Subfragments()[0].Name)
	assert.Equal(t, "rdport", frag.Subfragments()[1].Name)

	// read data feeds the output directly
	found := false
	for _, stmt := range frag.Statements() {
		if a, ok := stmt.(*hdl.Assign); ok && a.LHS == hdl.Value(f.Dout) {
			found = true
		}
	}
	assert.True(t, found)
}

func Test_sync_fifo_prepare(t *testing.T) {
	f := NewSyncFIFO(8, 4, false)
	prepared := hdltest.Prepare(t, f, hdl.PrepareConfig{})

	// both memory ports live in the same fragment, so there is no access
	// conflict and the hierarchy survives preparation
	require.Len(t, prepared.Subfragments(), 2)

	_, ok := prepared.Domain(hdl.DefaultDomain)
	assert.True(t, ok)

	dirs := hdltest.PortDirs(prepared)
	for _, name := range []string{"din", "we", "re", "replace", "sync_clk", "sync_rst"} {
		assert.Equal(t, hdl.DirInput, dirs[name], "port %q", name)
	}
}

func Test_sync_fifo_fwft_prepare(t *testing.T) {
	f := NewSyncFIFO(16, 8, true)
	prepared := hdltest.Prepare(t, f, hdl.PrepareConfig{})
	require.Len(t, prepared.Subfragments(), 2)
}

// countProps tallies assertion and assumption statements in a tree.
func countProps(stmts []hdl.Statement) (asserts, assumes int) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *hdl.Assert:
			asserts++
		case *hdl.Assume:
			assumes++
		case *hdl.Switch:
			for _, c := range s.Cases {
				a, u := countProps(c.Body)
				asserts += a
				assumes += u
			}
		}
	}
	return asserts, assumes
}

func Test_sync_fifo_formal_properties(t *testing.T) {
	f := NewSyncFIFO(8, 4, false)
	frag := hdltest.Elaborate(t, f, "formal")

	// the two memory ports plus the anonymous initial-state marker
	require.Len(t, frag.Subfragments(), 3)
	assert.Equal(t, "", frag.Subfragments()[2].Name)

	asserts, assumes := countProps(frag.Statements())
	assert.Equal(t, 5, asserts)
	assert.Equal(t, 5, assumes)
}

func Test_sync_fifo_without_formal_platform(t *testing.T) {
	f := NewSyncFIFO(8, 4, false)
	frag := hdltest.Elaborate(t, f, nil)
	asserts, assumes := countProps(frag.Statements())
	assert.Zero(t, asserts)
	assert.Zero(t, assumes)
}
