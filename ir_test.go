// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullLogger() logrus.FieldLogger {
	logger, _ := logtest.NewNullLogger()
	return logger
}

// combFragment returns a fragment driving every assignment's left hand
// side combinationally.
func combFragment(t *testing.T, stmts ...Statement) *Fragment {
	t.Helper()
	f := NewFragment()
	f.AddStatements(stmts...)
	for _, s := range stmts {
		for _, v := range s.lhsSignals().All() {
			f.AddDriver(v, Comb)
		}
	}
	return f
}

func portDir(t *testing.T, f *Fragment, sig *Signal) PortDir {
	t.Helper()
	dir, ok := f.Ports().Dir(sig)
	require.True(t, ok, "%v is not a port", sig)
	return dir
}

func Test_resolve_fragment(t *testing.T) {
	f := NewFragment()
	got, err := ResolveFragment(f, nil)
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = ResolveFragment(nil, nil)
	assert.Error(t, err)

	m := NewModule()
	got, err = ResolveFragment(m, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func Test_prepare_synthesizes_default_domain(t *testing.T) {
	x := NewSignal("x", 1)
	f := NewFragment()
	f.AddStatements(NewAssign(x, Not(x)))
	f.AddDriver(x, DefaultDomain)

	frag, err := f.Prepare(PrepareConfig{Ports: []*Signal{}, Logger: nullLogger()})
	require.NoError(t, err)

	cd, ok := frag.Domain(DefaultDomain)
	require.True(t, ok)
	// the synthesized domain's signals become root ports even with an
	// explicit empty port list
	assert.Equal(t, DirInput, portDir(t, frag, cd.Clk))
	assert.Equal(t, DirInput, portDir(t, frag, cd.Rst))

	// the original assignment plus the reset override
	require.Len(t, frag.Statements(), 2)
	sw, ok := frag.Statements()[1].(*Switch)
	require.True(t, ok)
	assert.Same(t, cd.Rst, sw.Test)

	// Prepare copies; the input fragment keeps its original shape
	assert.Len(t, f.Statements(), 1)
	_, ok = f.Domain(DefaultDomain)
	assert.False(t, ok)
}

func Test_prepare_no_default_domain(t *testing.T) {
	x := NewSignal("x", 1)
	f := NewFragment()
	f.AddStatements(NewAssign(x, Not(x)))
	f.AddDriver(x, DefaultDomain)

	_, err := f.Prepare(PrepareConfig{NoDefaultDomain: true, Logger: nullLogger()})
	var derr *DomainError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Msg, "nonexistent domain")
}

func Test_prepare_preserves_clean_hierarchy(t *testing.T) {
	a := NewSignal("a", 1)
	b := NewSignal("b", 1)
	c := NewSignal("c", 1)

	s1 := combFragment(t, NewAssign(a, b))
	s2 := combFragment(t, NewAssign(c, a))
	root := NewFragment()
	root.AddSubfragment(s1, "s1")
	root.AddSubfragment(s2, "s2")

	frag, err := root.Prepare(PrepareConfig{Logger: nullLogger()})
	require.NoError(t, err)

	require.Len(t, frag.Subfragments(), 2)
	p1, err := frag.FindSubfragment("s1")
	require.NoError(t, err)
	p2, err := frag.FindSubfragment("s2")
	require.NoError(t, err)

	// a meets at the root: output on the way up from its definer, input on
	// the way up from its reader
	assert.Equal(t, DirOutput, portDir(t, p1, a))
	assert.Equal(t, DirInput, portDir(t, p2, a))
	// b is never defined, so it surfaces as a root input
	assert.Equal(t, DirInput, portDir(t, p1, b))
	assert.Equal(t, DirInput, portDir(t, frag, b))
	_, ok := frag.Ports().Dir(a)
	assert.False(t, ok)
}

func Test_sibling_driver_conflict_flattens(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	x := NewSignal("x", 1)

	s1 := combFragment(t, NewAssign(x, C(0)))
	s2 := combFragment(t, NewAssign(x, C(1)))
	root := NewFragment()
	root.AddSubfragment(s1, "s1")
	root.AddSubfragment(s2, "s2")

	_, _, err := root.resolveHierarchyConflicts(hierRoot, ConflictWarn, logger)
	require.NoError(t, err)

	assert.Empty(t, root.Subfragments())
	assert.True(t, root.DrivenSignals(Comb).Has(x))
	assert.Len(t, root.Statements(), 2)

	require.Len(t, hook.Entries, 1)
	assert.Contains(t, hook.Entries[0].Message, "top.s1, top.s2")
	assert.Contains(t, hook.Entries[0].Message, "hierarchy will be flattened")
}

func Test_conflict_resolution_reaches_fixed_point(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	x := NewSignal("x", 1)

	// b and c conflict inside a; once a is flat it conflicts with the
	// root's own driver of x, so a must be flattened in a second round
	b := combFragment(t, NewAssign(x, C(0)))
	c := combFragment(t, NewAssign(x, C(1)))
	a := NewFragment()
	a.AddSubfragment(b, "b")
	a.AddSubfragment(c, "c")
	root := combFragment(t, NewAssign(x, C(0)))
	root.AddSubfragment(a, "a")

	_, _, err := root.resolveHierarchyConflicts(hierRoot, ConflictWarn, logger)
	require.NoError(t, err)

	assert.Empty(t, root.Subfragments())
	assert.Len(t, root.Statements(), 3)
	require.Len(t, hook.Entries, 2)
	assert.Contains(t, hook.Entries[0].Message, "top.a.b, top.a.c")
	assert.Contains(t, hook.Entries[1].Message, "top, top.a")
}

func Test_conflict_resolution_is_idempotent(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	x := NewSignal("x", 1)

	s1 := combFragment(t, NewAssign(x, C(0)))
	s2 := combFragment(t, NewAssign(x, C(1)))
	root := NewFragment()
	root.AddSubfragment(s1, "s1")
	root.AddSubfragment(s2, "s2")

	_, _, err := root.resolveHierarchyConflicts(hierRoot, ConflictSilent, logger)
	require.NoError(t, err)
	assert.Empty(t, hook.Entries)
	stmts := len(root.Statements())

	_, _, err = root.resolveHierarchyConflicts(hierRoot, ConflictWarn, logger)
	require.NoError(t, err)
	assert.Empty(t, hook.Entries)
	assert.Len(t, root.Statements(), stmts)
}

func Test_conflict_error_mode(t *testing.T) {
	x := NewSignal("x", 1)
	s1 := combFragment(t, NewAssign(x, C(0)))
	s2 := combFragment(t, NewAssign(x, C(1)))
	root := NewFragment()
	root.AddSubfragment(s1, "s1")
	root.AddSubfragment(s2, "s2")

	_, err := root.Prepare(PrepareConfig{Mode: ConflictError, Logger: nullLogger()})
	var cerr *DriverConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Msg, "driven from multiple fragments")
}

func Test_domain_collision_renames(t *testing.T) {
	xa := NewSignal("xa", 1)
	xb := NewSignal("xb", 1)

	suba := NewFragment()
	suba.AddDomain(NewClockDomain("pix"))
	suba.AddStatements(NewAssign(xa, Not(xa)))
	suba.AddDriver(xa, "pix")
	subb := NewFragment()
	subb.AddDomain(NewClockDomain("pix"))
	subb.AddStatements(NewAssign(xb, Not(xb)))
	subb.AddDriver(xb, "pix")

	root := NewFragment()
	root.AddSubfragment(suba, "a")
	root.AddSubfragment(subb, "b")

	_, err := root.propagateDomains(true)
	require.NoError(t, err)

	for _, name := range []string{"a_pix", "b_pix"} {
		cd, ok := root.Domain(name)
		require.True(t, ok, "domain %q missing at root", name)
		assert.Equal(t, name+"_clk", cd.Clk.Name)
	}
	_, ok := root.Domain("pix")
	assert.False(t, ok)

	// driver entries follow the rename
	ra := root.Subfragments()[0].Fragment
	assert.Equal(t, []string{"a_pix"}, ra.DriverDomains())
	assert.True(t, ra.DrivenSignals("a_pix").Has(xa))
}

func Test_domain_collision_anonymous(t *testing.T) {
	suba := NewFragment()
	suba.AddDomain(NewClockDomain("pix"))
	subb := NewFragment()
	subb.AddDomain(NewClockDomain("pix"))
	root := NewFragment()
	root.AddSubfragment(suba, "a")
	root.AddSubfragment(subb, "")

	_, err := root.propagateDomains(true)
	var derr *DomainError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Msg, "anonymous")
}

func Test_domain_defined_twice_in_hierarchy(t *testing.T) {
	sub := NewFragment()
	sub.AddDomain(NewClockDomain("pix"))
	root := NewFragment()
	root.AddDomain(NewClockDomain("pix"))
	root.AddSubfragment(sub, "sub")

	_, err := root.propagateDomains(true)
	var derr *DomainError
	require.ErrorAs(t, err, &derr)
}

func Test_domain_shared_down(t *testing.T) {
	cd := NewClockDomain("pix")
	sub := NewFragment()
	inner := NewFragment()
	sub.AddSubfragment(inner, "inner")
	root := NewFragment()
	root.AddDomain(cd)
	root.AddSubfragment(sub, "sub")

	newDomains, err := root.propagateDomains(true)
	require.NoError(t, err)
	// a design with its own domain gets no synthesized default
	assert.Empty(t, newDomains)
	_, ok := root.Domain(DefaultDomain)
	assert.False(t, ok)

	for _, f := range []*Fragment{sub, inner} {
		got, ok := f.Domain("pix")
		require.True(t, ok)
		assert.Same(t, cd, got)
	}
}

func Test_local_domain_stays_put(t *testing.T) {
	sub := NewFragment()
	sub.AddDomain(NewClockDomain("priv", LocalDomain))
	root := NewFragment()
	root.AddSubfragment(sub, "sub")

	_, err := root.propagateDomains(true)
	require.NoError(t, err)
	_, ok := root.Domain("priv")
	assert.False(t, ok)
	_, ok = sub.Domain("priv")
	assert.True(t, ok)
}

func Test_port_inference_meets_at_lca(t *testing.T) {
	s := NewSignal("s", 1)
	u := NewSignal("u", 1)

	m11 := combFragment(t, NewAssign(s, C(1)))
	m1 := NewFragment()
	m1.AddSubfragment(m11, "m11")
	m2 := combFragment(t, NewAssign(u, s))
	root := NewFragment()
	root.AddSubfragment(m1, "m1")
	root.AddSubfragment(m2, "m2")

	require.NoError(t, root.propagatePorts(nil, true))

	assert.Equal(t, DirOutput, portDir(t, m11, s))
	assert.Equal(t, DirOutput, portDir(t, m1, s))
	assert.Equal(t, DirInput, portDir(t, m2, s))
	// the meeting point itself does not expose the signal
	_, ok := root.Ports().Dir(s)
	assert.False(t, ok)
}

func Test_port_inference_sync_reads_domain_signals(t *testing.T) {
	x := NewSignal("x", 1)
	cd := NewClockDomain("pix")

	sub := NewFragment()
	sub.AddStatements(NewAssign(x, Not(x)))
	sub.AddDriver(x, "pix")
	root := NewFragment()
	root.AddDomain(cd)
	root.AddSubfragment(sub, "sub")

	_, err := root.propagateDomains(true)
	require.NoError(t, err)
	require.NoError(t, root.propagatePorts(nil, true))

	// a synchronous driver implicitly reads its domain's clock and reset
	assert.Equal(t, DirInput, portDir(t, sub, cd.Clk))
	assert.Equal(t, DirInput, portDir(t, sub, cd.Rst))
	assert.Equal(t, DirInput, portDir(t, root, cd.Clk))
	assert.Equal(t, DirInput, portDir(t, root, cd.Rst))
}

func Test_explicit_root_port_reaches_reader(t *testing.T) {
	a := NewSignal("a", 1)
	b := NewSignal("b", 1)

	sub := combFragment(t, NewAssign(b, a))
	root := NewFragment()
	root.AddSubfragment(sub, "sub")

	require.NoError(t, root.propagatePorts([]*Signal{a}, false))

	assert.Equal(t, DirInput, portDir(t, root, a))
	assert.Equal(t, DirInput, portDir(t, sub, a))
}

func Test_instance_stays_opaque(t *testing.T) {
	a := NewSignal("a", 1)
	b := NewSignal("b", 1)
	c := NewSignal("c", 1)

	inst, err := NewInstance("extunit",
		InstParam("WIDTH", 1),
		InstInput("I", a),
		InstOutput("O", b),
	)
	require.NoError(t, err)

	root := combFragment(t, NewAssign(c, b))
	root.AddSubfragment(&inst.Fragment, "u0")

	frag, err := root.Prepare(PrepareConfig{Logger: nullLogger()})
	require.NoError(t, err)

	require.Len(t, frag.Subfragments(), 1)
	sub := frag.Subfragments()[0].Fragment
	require.NotNil(t, sub.inst)
	assert.Equal(t, "extunit", sub.inst.Type)

	// the instance connections become its ports; the outside world only
	// sees a as an input of the whole design
	assert.Equal(t, DirInput, portDir(t, sub, a))
	assert.Equal(t, DirOutput, portDir(t, sub, b))
	assert.Equal(t, DirInput, portDir(t, frag, a))
}

func Test_flatten_request_without_conflict(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	x := NewSignal("x", 1)

	sub := combFragment(t, NewAssign(x, C(1)))
	sub.Flatten = true
	root := NewFragment()
	root.AddSubfragment(sub, "sub")

	_, _, err := root.resolveHierarchyConflicts(hierRoot, ConflictWarn, logger)
	require.NoError(t, err)
	assert.Empty(t, root.Subfragments())
	assert.True(t, root.DrivenSignals(Comb).Has(x))
	assert.Empty(t, hook.Entries)
}

func Test_memory_access_conflict(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	mem, err := NewMemory("m", 8, 4)
	require.NoError(t, err)

	newUser := func(t *testing.T) *Fragment {
		t.Helper()
		rd, err := mem.ReadPort(DefaultDomain, true, false)
		require.NoError(t, err)
		f := NewFragment()
		inner, err := ResolveFragment(rd, nil)
		require.NoError(t, err)
		f.AddSubfragment(inner, "rd")
		return f
	}

	root := NewFragment()
	root.AddSubfragment(newUser(t), "u1")
	root.AddSubfragment(newUser(t), "u2")

	_, _, err = root.resolveHierarchyConflicts(hierRoot, ConflictWarn, logger)
	require.NoError(t, err)

	// both users are flattened; their memory port instances survive as
	// direct children of the root
	require.Len(t, root.Subfragments(), 2)
	for _, sub := range root.Subfragments() {
		assert.NotNil(t, sub.Fragment.inst)
	}
	require.Len(t, hook.Entries, 1)
	assert.Contains(t, hook.Entries[0].Message, `memory "m"`)
}

func Test_two_domains_prepare_without_flattening(t *testing.T) {
	xa := NewSignal("xa", 1)
	xb := NewSignal("xb", 1)

	suba := NewFragment()
	suba.AddDomain(NewClockDomain("a"))
	suba.AddStatements(NewAssign(xa, Not(xa)))
	suba.AddDriver(xa, "a")
	subb := NewFragment()
	subb.AddDomain(NewClockDomain("b"))
	subb.AddStatements(NewAssign(xb, Not(xb)))
	subb.AddDriver(xb, "b")

	root := NewFragment()
	root.AddSubfragment(suba, "a")
	root.AddSubfragment(subb, "b")

	logger, hook := logtest.NewNullLogger()
	frag, err := root.Prepare(PrepareConfig{Logger: logger})
	require.NoError(t, err)

	// distinct domain names combine at the root without renaming,
	// flattening or diagnostics
	assert.Len(t, frag.Subfragments(), 2)
	assert.Empty(t, hook.Entries)
	for _, name := range []string{"a", "b"} {
		cd, ok := frag.Domain(name)
		require.True(t, ok)
		assert.Equal(t, name, cd.Name)
	}
	_, ok := frag.Domain(DefaultDomain)
	assert.False(t, ok)
}

func Test_deep_conflict_chain_terminates(t *testing.T) {
	x := NewSignal("x", 1)

	// every level drives x, so each round of conflict resolution merges
	// one more level into the root
	leaf := combFragment(t, NewAssign(x, C(1)))
	cur := leaf
	for i := 0; i < 16; i++ {
		next := combFragment(t, NewAssign(x, C(0)))
		next.AddSubfragment(cur, "n")
		cur = next
	}

	_, _, err := cur.resolveHierarchyConflicts(hierRoot, ConflictSilent, nullLogger())
	require.NoError(t, err)
	assert.Empty(t, cur.Subfragments())
	assert.Len(t, cur.Statements(), 17)
	assert.True(t, cur.DrivenSignals(Comb).Has(x))
}

func Test_inout_surfaces_through_every_level(t *testing.T) {
	pad := NewSignal("pad", 1)
	inst, err := NewInstance("pad_buf", InstInOut("PAD", pad))
	require.NoError(t, err)

	mid := NewFragment()
	mid.AddSubfragment(&inst.Fragment, "buf")
	root := NewFragment()
	root.AddSubfragment(mid, "mid")

	frag, err := root.Prepare(PrepareConfig{Logger: nullLogger()})
	require.NoError(t, err)

	m, err := frag.FindSubfragment("mid")
	require.NoError(t, err)
	buf, err := m.FindSubfragment("buf")
	require.NoError(t, err)

	// a pad signal keeps its io direction from the owning instance all
	// the way up, including at fragments that would be the LCA for an
	// ordinary signal
	assert.Equal(t, DirInout, portDir(t, buf, pad))
	assert.Equal(t, DirInout, portDir(t, m, pad))
	assert.Equal(t, DirInout, portDir(t, frag, pad))
}

func Test_collision_rename_visible_in_source_tree(t *testing.T) {
	xa := NewSignal("xa", 1)
	xb := NewSignal("xb", 1)
	cda := NewClockDomain("pix")
	cdb := NewClockDomain("pix")

	suba := NewFragment()
	suba.AddDomain(cda)
	suba.AddStatements(NewAssign(xa, Not(xa)))
	suba.AddDriver(xa, "pix")
	subb := NewFragment()
	subb.AddDomain(cdb)
	subb.AddStatements(NewAssign(xb, Not(xb)))
	subb.AddDriver(xb, "pix")

	root := NewFragment()
	root.AddSubfragment(suba, "a")
	root.AddSubfragment(subb, "b")

	_, err := root.Prepare(PrepareConfig{Logger: nullLogger()})
	require.NoError(t, err)

	// the clock domains are shared between the source tree and the
	// prepared copy, so collision renaming shows through the originals
	assert.Equal(t, "a_pix", cda.Name)
	assert.Equal(t, "b_pix", cdb.Name)
}
