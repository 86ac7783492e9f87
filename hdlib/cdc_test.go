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

func Test_synchronizer(t *testing.T) {
	i := hdl.NewSignal("i", 1)
	o := hdl.NewSignal("o", 1)
	s := NewSynchronizer(i, o, "video", 0)

	regs := s.Stages()
	require.Len(t, regs, 2)
	for _, reg := range regs {
		assert.True(t, reg.ResetLess)
		assert.Equal(t, true, reg.Attrs["no_retiming"])
	}

	f := hdltest.Elaborate(t, s, nil)
	require.Len(t, f.Statements(), 3)
	first := f.Statements()[0].(*hdl.Assign)
	assert.Same(t, regs[0], first.LHS)
	assert.Same(t, i, first.RHS)
	second := f.Statements()[1].(*hdl.Assign)
	assert.Same(t, regs[1], second.LHS)
	assert.Same(t, regs[0], second.RHS)
	out := f.Statements()[2].(*hdl.Assign)
	assert.Same(t, o, out.LHS)
	assert.Same(t, regs[1], out.RHS)

	assert.True(t, f.DrivenSignals("video").Has(regs[0]))
	assert.True(t, f.DrivenSignals("video").Has(regs[1]))
	assert.True(t, f.DrivenSignals(hdl.Comb).Has(o))
}

func Test_synchronizer_default_domain_and_stages(t *testing.T) {
	s := NewSynchronizer(hdl.NewSignal("i", 4), hdl.NewSignal("o", 4), "", 5)
	assert.Equal(t, hdl.DefaultDomain, s.ODomain)
	require.Len(t, s.Stages(), 5)
	assert.Equal(t, 4, s.Stages()[0].Bits)
}

type multiRegPlatform struct {
	got *Synchronizer
}

func (p *multiRegPlatform) GetMultiReg(s *Synchronizer) hdl.Elaboratable {
	p.got = s
	return hdl.NewFragment()
}

func Test_synchronizer_platform_override(t *testing.T) {
	s := NewSynchronizer(hdl.NewSignal("i", 1), hdl.NewSignal("o", 1), "", 0)
	p := &multiRegPlatform{}
	f := hdltest.Elaborate(t, s, p)
	assert.Same(t, s, p.got)
	assert.Empty(t, f.Statements())
}

func Test_reset_synchronizer(t *testing.T) {
	arst := hdl.NewSignal("arst", 1)
	s := NewResetSynchronizer(arst, "pix", 0)
	f := hdltest.Elaborate(t, s, nil)

	cd, ok := f.Domain("_reset_sync")
	require.True(t, ok)
	assert.True(t, cd.AsyncReset)

	require.Len(t, f.Statements(), 5)
	// the chain shifts in zero and is held at one by the private domain's
	// reset while the request is active
	head := f.Statements()[0].(*hdl.Assign)
	c, ok := head.RHS.(*hdl.Const)
	require.True(t, ok)
	assert.Equal(t, uint64(0), c.Value)
	assert.Equal(t, uint64(1), head.LHS.(*hdl.Signal).Reset)

	// the private domain borrows the target domain's clock and takes the
	// request as its reset
	clk := f.Statements()[2].(*hdl.Assign)
	assert.Equal(t, "_reset_sync", clk.LHS.(*hdl.ClockSignal).Domain)
	assert.Equal(t, "pix", clk.RHS.(*hdl.ClockSignal).Domain)
	req := f.Statements()[3].(*hdl.Assign)
	assert.Equal(t, "_reset_sync", req.LHS.(*hdl.ResetSignal).Domain)
	assert.Same(t, arst, req.RHS)

	// the last stage drives the target domain's reset
	out := f.Statements()[4].(*hdl.Assign)
	assert.Equal(t, "pix", out.LHS.(*hdl.ResetSignal).Domain)
}

type resetSyncPlatform struct {
	got *ResetSynchronizer
}

func (p *resetSyncPlatform) GetResetSync(s *ResetSynchronizer) hdl.Elaboratable {
	p.got = s
	return hdl.NewFragment()
}

func Test_reset_synchronizer_platform_override(t *testing.T) {
	s := NewResetSynchronizer(hdl.NewSignal("arst", 1), "", 0)
	p := &resetSyncPlatform{}
	f := hdltest.Elaborate(t, s, p)
	assert.Same(t, s, p.got)
	assert.Empty(t, f.Statements())
}
