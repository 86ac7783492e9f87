// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_memory_geometry(t *testing.T) {
	m, err := NewMemory("", 8, 16)
	require.NoError(t, err)
	assert.Equal(t, "$memory", m.Name)
	assert.Equal(t, 4, m.addrBits())

	_, err = NewMemory("m", -1, 16)
	assert.Error(t, err)
	_, err = NewMemory("m", 8, -1)
	assert.Error(t, err)

	// single-word memories still carry an address bit
	m, err = NewMemory("m", 8, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.addrBits())
}

func Test_memory_init(t *testing.T) {
	m, err := NewMemory("m", 8, 4)
	require.NoError(t, err)
	require.NoError(t, m.SetInit([]uint64{1, 2, 3}))
	assert.Equal(t, []uint64{1, 2, 3}, m.Init())
	assert.Error(t, m.SetInit([]uint64{1, 2, 3, 4, 5}))
}

func Test_read_port_kinds(t *testing.T) {
	m, err := NewMemory("m", 8, 16)
	require.NoError(t, err)

	_, err = m.ReadPort("sync", false, false)
	assert.Error(t, err)

	// a synchronous non-transparent port is the only gated kind
	p, err := m.ReadPort("sync", true, false)
	require.NoError(t, err)
	_, gated := p.En.(*Signal)
	assert.True(t, gated)

	p, err = m.ReadPort("sync", true, true)
	require.NoError(t, err)
	c, ok := p.En.(*Const)
	require.True(t, ok)
	assert.Equal(t, uint64(1), c.Value)

	p, err = m.ReadPort("", false, true)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Addr.Bits)
	assert.Equal(t, 8, p.Data.Bits)
}

func Test_read_port_elaborate(t *testing.T) {
	m, err := NewMemory("m", 8, 16)
	require.NoError(t, err)
	p, err := m.ReadPort("video", true, false)
	require.NoError(t, err)

	f := elab(t, p)
	inst := f.inst
	require.NotNil(t, inst)
	assert.Equal(t, "$memrd", inst.Type)

	memid, ok := inst.Parameter("MEMID")
	require.True(t, ok)
	assert.Same(t, m, memid)
	abits, _ := inst.Parameter("ABITS")
	assert.Equal(t, 4, abits)
	ce, _ := inst.Parameter("CLK_ENABLE")
	assert.Equal(t, true, ce)
	tr, _ := inst.Parameter("TRANSPARENT")
	assert.Equal(t, false, tr)

	ports := make(map[string]NamedPort)
	for _, np := range inst.NamedPorts {
		ports[np.Name] = np
	}
	clk, ok := ports["CLK"].Value.(*ClockSignal)
	require.True(t, ok)
	assert.Equal(t, "video", clk.Domain)
	assert.Same(t, p.Addr, ports["ADDR"].Value)
	assert.Same(t, p.Data, ports["DATA"].Value)
	assert.Equal(t, DirOutput, ports["DATA"].Dir)
}

func Test_read_port_async_has_no_clock(t *testing.T) {
	m, err := NewMemory("m", 8, 16)
	require.NoError(t, err)
	p, err := m.ReadPort("", false, true)
	require.NoError(t, err)

	f := elab(t, p)
	for _, np := range f.inst.NamedPorts {
		if np.Name == "CLK" {
			c, ok := np.Value.(*Const)
			require.True(t, ok)
			assert.Equal(t, uint64(0), c.Value)
		}
	}
}

func Test_write_port_granularity(t *testing.T) {
	m, err := NewMemory("m", 16, 16)
	require.NoError(t, err)

	p, err := m.WritePort("sync", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, p.Granularity)
	assert.Equal(t, 1, p.En.Bits)

	p, err = m.WritePort("sync", 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, p.En.Bits)

	_, err = m.WritePort("sync", 0, 5)
	assert.Error(t, err)
	_, err = m.WritePort("sync", 0, 32)
	assert.Error(t, err)
	_, err = m.WritePort("sync", 0, -4)
	assert.Error(t, err)
}

func Test_write_port_elaborate(t *testing.T) {
	m, err := NewMemory("m", 16, 16)
	require.NoError(t, err)
	p, err := m.WritePort("sync", 2, 8)
	require.NoError(t, err)

	f := elab(t, p)
	inst := f.inst
	require.NotNil(t, inst)
	assert.Equal(t, "$memwr", inst.Type)

	prio, ok := inst.Parameter("PRIORITY")
	require.True(t, ok)
	assert.Equal(t, 2, prio)

	// each lane enable bit is replicated over its lane
	for _, np := range inst.NamedPorts {
		if np.Name != "EN" {
			continue
		}
		cat, ok := np.Value.(*Cat)
		require.True(t, ok)
		require.Len(t, cat.Parts, 2)
		for _, part := range cat.Parts {
			repl, ok := part.(*Repl)
			require.True(t, ok)
			assert.Equal(t, 8, repl.Count)
		}
		assert.Equal(t, 16, np.Value.Shape().Bits)
	}
}
