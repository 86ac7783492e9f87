// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdlib

import "github.com/veriq/hdl"

// A SyncFIFO is a synchronous first in, first out queue: read and write
// sides share the "sync" clock domain.
//
// Data is presented on Din and latched by strobing WE while Writable is
// asserted; it appears on Dout in write order, and RE advances the read
// side while Readable is asserted. For first-word-fallthrough queues Dout
// is valid whenever Readable is asserted; otherwise RE must be strobed
// for Dout to become valid on the next cycle.
//
// Asserting Replace together with WE overwrites the last written entry
// with Din instead of appending; it does nothing on an empty queue.
type SyncFIFO struct {
	Width int
	Depth int
	FWFT  bool

	Din      *hdl.Signal
	Writable *hdl.Signal // space left in the queue
	WE       *hdl.Signal
	Replace  *hdl.Signal

	Dout     *hdl.Signal
	Readable *hdl.Signal // at least one unread entry
	RE       *hdl.Signal

	Level *hdl.Signal // number of unread entries
}

// NewSyncFIFO returns a queue of the given geometry; depth must be at
// least 1.
func NewSyncFIFO(width, depth int, fwft bool) *SyncFIFO {
	din := hdl.NewSignal("din", width)
	din.ResetLess = true
	dout := hdl.NewSignal("dout", width)
	dout.ResetLess = true
	f := &SyncFIFO{
		Width:    width,
		Depth:    depth,
		FWFT:     fwft,
		Din:      din,
		Writable: hdl.NewSignal("writable", 1),
		WE:       hdl.NewSignal("we", 1),
		Replace:  hdl.NewSignal("replace", 1),
		Dout:     dout,
		Readable: hdl.NewSignal("readable", 1),
		RE:       hdl.NewSignal("re", 1),
		Level:    hdl.NewSignalRange("level", uint64(depth)+1),
	}
	hdl.Track(f)
	return f
}

// incrMod returns sig+1 wrapping at modulo.
func incrMod(sig *hdl.Signal, modulo int) hdl.Value {
	if modulo == 1<<uint(sig.Bits) {
		return hdl.Add(sig, hdl.C(1))
	}
	return hdl.Mux(hdl.Eq(sig, hdl.C(uint64(modulo-1))), hdl.C(0), hdl.Add(sig, hdl.C(1)))
}

// decrMod returns sig-1 wrapping at modulo.
func decrMod(sig *hdl.Signal, modulo int) hdl.Value {
	if modulo == 1<<uint(sig.Bits) {
		return hdl.Sub(sig, hdl.C(1))
	}
	return hdl.Mux(hdl.Eq(sig, hdl.C(0)), hdl.C(uint64(modulo-1)), hdl.Sub(sig, hdl.C(1)))
}

func (f *SyncFIFO) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	m.D(hdl.Comb).Add(
		hdl.NewAssign(f.Writable, hdl.Ne(f.Level, hdl.C(uint64(f.Depth)))),
		hdl.NewAssign(f.Readable, hdl.Ne(f.Level, hdl.C(0))),
	)

	doRead := hdl.And(f.Readable, f.RE)
	doWrite := hdl.And(hdl.And(f.Writable, f.WE), hdl.Not(f.Replace))

	storage, err := hdl.NewMemory("storage", f.Width, f.Depth)
	if err != nil {
		panic(err)
	}
	wrport, err := storage.WritePort(hdl.DefaultDomain, 0, 0)
	if err != nil {
		panic(err)
	}
	rdport, err := storage.ReadPort(hdl.DefaultDomain, !f.FWFT, f.FWFT)
	if err != nil {
		panic(err)
	}
	m.Submodule("wrport", wrport)
	m.Submodule("rdport", rdport)

	produce := hdl.NewSignalRange("produce", uint64(f.Depth))
	consume := hdl.NewSignalRange("consume", uint64(f.Depth))

	m.D(hdl.Comb).Add(
		hdl.NewAssign(wrport.Addr, produce),
		hdl.NewAssign(wrport.Data, f.Din),
		hdl.NewAssign(wrport.En, hdl.And(f.WE, hdl.Or(f.Writable, f.Replace))),
	)
	m.If(f.Replace, func() {
		m.D(hdl.Comb).Add(hdl.NewAssign(wrport.Addr, decrMod(produce, f.Depth)))
	})
	m.If(doWrite, func() {
		m.D(hdl.DefaultDomain).Add(hdl.NewAssign(produce, incrMod(produce, f.Depth)))
	})

	m.D(hdl.Comb).Add(
		hdl.NewAssign(rdport.Addr, consume),
		hdl.NewAssign(f.Dout, rdport.Data),
	)
	if !f.FWFT {
		m.D(hdl.Comb).Add(hdl.NewAssign(rdport.En, f.RE))
	}
	m.If(doRead, func() {
		m.D(hdl.DefaultDomain).Add(hdl.NewAssign(consume, incrMod(consume, f.Depth)))
	})

	m.If(hdl.And(doWrite, hdl.Not(doRead)), func() {
		m.D(hdl.DefaultDomain).Add(hdl.NewAssign(f.Level, hdl.Add(f.Level, hdl.C(1))))
	})
	m.If(hdl.And(doRead, hdl.Not(doWrite)), func() {
		m.D(hdl.DefaultDomain).Add(hdl.NewAssign(f.Level, hdl.Sub(f.Level, hdl.C(1))))
	})

	if p, ok := platform.(string); ok && p == "formal" {
		f.addProperties(m, produce, consume)
	}
	return m
}

// addProperties constrains the pointers and level to a consistent initial
// state and asserts that they stay consistent afterwards.
func (f *SyncFIFO) addProperties(m *hdl.Module, produce, consume *hdl.Signal) {
	depth := hdl.C(uint64(f.Depth))
	initstate := hdl.NewSignal("initstate", 1)
	inst, err := hdl.NewInstance("$initstate", hdl.InstOutput("Y", initstate))
	if err != nil {
		panic(err)
	}
	m.Submodule("", inst)

	level := func(wrap func(hdl.Value) hdl.Statement) {
		m.If(hdl.Eq(produce, consume), func() {
			m.D(hdl.Comb).Add(wrap(hdl.Or(hdl.Eq(f.Level, hdl.C(0)), hdl.Eq(f.Level, depth))))
		})
		m.If(hdl.Gt(produce, consume), func() {
			m.D(hdl.Comb).Add(wrap(hdl.Eq(f.Level, hdl.Sub(produce, consume))))
		})
		m.If(hdl.Lt(produce, consume), func() {
			m.D(hdl.Comb).Add(wrap(hdl.Eq(f.Level, hdl.Sub(hdl.Add(depth, produce), consume))))
		})
	}

	m.If(initstate, func() {
		m.D(hdl.Comb).Add(
			hdl.NewAssume(hdl.Lt(produce, depth)),
			hdl.NewAssume(hdl.Lt(consume, depth)),
		)
		level(func(v hdl.Value) hdl.Statement { return hdl.NewAssume(v) })
	})
	m.Else(func() {
		m.D(hdl.Comb).Add(
			hdl.NewAssert(hdl.Lt(produce, depth)),
			hdl.NewAssert(hdl.Lt(consume, depth)),
		)
		level(func(v hdl.Value) hdl.Statement { return hdl.NewAssert(v) })
	})
}
