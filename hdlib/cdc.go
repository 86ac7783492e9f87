// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdlib provides a library of reusable parts for hdl.
package hdlib

import (
	"strconv"

	"github.com/veriq/hdl"
)

// MultiRegPlatform is implemented by platforms that provide their own
// synchronizer primitive, e.g. a library cell.
type MultiRegPlatform interface {
	GetMultiReg(s *Synchronizer) hdl.Elaboratable
}

// ResetSyncPlatform is implemented by platforms that provide their own
// reset synchronizer primitive.
type ResetSyncPlatform interface {
	GetResetSync(s *ResetSynchronizer) hdl.Elaboratable
}

// A Synchronizer resynchronizes a signal to a different clock domain
// through a chain of flip-flops. It eliminates metastability at the
// output but gives no other guarantee about the crossing.
//
// The chain is reset-less: it still settles to the reset value a few
// cycles after power-up, which is usually the safest option. Designs that
// need a valid output immediately after a warm reset of the output domain
// can clear ResetLess before elaboration.
type Synchronizer struct {
	// I is the signal to resynchronize; O is driven by the last stage.
	I hdl.Value
	O *hdl.Signal
	// ODomain is the output clock domain.
	ODomain string

	regs []*hdl.Signal
}

// NewSynchronizer returns a synchronizer moving i into odomain through
// stages flip-flops. Fewer than two stages are widened to two.
func NewSynchronizer(i hdl.Value, o *hdl.Signal, odomain string, stages int) *Synchronizer {
	if odomain == "" {
		odomain = hdl.DefaultDomain
	}
	if stages < 2 {
		stages = 2
	}
	s := &Synchronizer{I: i, O: o, ODomain: odomain}
	for k := 0; k < stages; k++ {
		reg := hdl.NewSignalLike(i, "cdc"+strconv.Itoa(k))
		reg.Reset = 0
		reg.ResetLess = true
		reg.Attrs = map[string]interface{}{"no_retiming": true}
		s.regs = append(s.regs, reg)
	}
	hdl.Track(s)
	return s
}

// Stages returns the chain registers in input-to-output order.
func (s *Synchronizer) Stages() []*hdl.Signal { return s.regs }

// Elaborate builds the flip-flop chain, unless the platform overrides the
// implementation through MultiRegPlatform.
func (s *Synchronizer) Elaborate(platform interface{}) hdl.Elaboratable {
	if p, ok := platform.(MultiRegPlatform); ok {
		return p.GetMultiReg(s)
	}
	m := hdl.NewModule()
	prev := s.I
	for _, reg := range s.regs {
		m.D(s.ODomain).Add(hdl.NewAssign(reg, prev))
		prev = reg
	}
	m.D(hdl.Comb).Add(hdl.NewAssign(s.O, s.regs[len(s.regs)-1]))
	return m
}

// A ResetSynchronizer asserts the reset of a clock domain asynchronously
// with an external reset request and deasserts it synchronously to the
// domain clock, through a chain of flip-flops held in reset while the
// request is active.
type ResetSynchronizer struct {
	// Arst is the asynchronous reset request.
	Arst hdl.Value
	// Domain is the clock domain whose reset is driven.
	Domain string

	regs []*hdl.Signal
}

// NewResetSynchronizer returns a reset synchronizer for the given domain.
// Fewer than two stages are widened to two.
func NewResetSynchronizer(arst hdl.Value, domain string, stages int) *ResetSynchronizer {
	if domain == "" {
		domain = hdl.DefaultDomain
	}
	if stages < 2 {
		stages = 2
	}
	s := &ResetSynchronizer{Arst: arst, Domain: domain}
	for k := 0; k < stages; k++ {
		reg := hdl.NewSignal("arst"+strconv.Itoa(k), 1)
		reg.Reset = 1
		reg.Attrs = map[string]interface{}{"no_retiming": true}
		s.regs = append(s.regs, reg)
	}
	hdl.Track(s)
	return s
}

// Elaborate builds the chain in a private asynchronously-reset domain
// fed by the target domain's clock, unless the platform overrides the
// implementation through ResetSyncPlatform.
func (s *ResetSynchronizer) Elaborate(platform interface{}) hdl.Elaboratable {
	if p, ok := platform.(ResetSyncPlatform); ok {
		return p.GetResetSync(s)
	}
	m := hdl.NewModule()
	m.AddDomain(hdl.NewClockDomain("_reset_sync", hdl.AsyncReset))
	prev := hdl.Value(hdl.C(0))
	for _, reg := range s.regs {
		m.D("_reset_sync").Add(hdl.NewAssign(reg, prev))
		prev = reg
	}
	m.D(hdl.Comb).Add(
		hdl.NewAssign(hdl.NewClockSignal("_reset_sync"), hdl.NewClockSignal(s.Domain)),
		hdl.NewAssign(hdl.NewResetSignal("_reset_sync", false), s.Arst),
		hdl.NewAssign(hdl.NewResetSignal(s.Domain, false), s.regs[len(s.regs)-1]),
	)
	return m
}
