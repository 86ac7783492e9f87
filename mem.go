// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "github.com/pkg/errors"

// A Memory is an addressable array of words. It produces no logic by
// itself; reads and writes go through ports, each of which elaborates
// into a memory cell instance referencing the memory through its MEMID
// parameter. All ports of one memory must end up in the same fragment
// after flattening, which driver conflict resolution enforces.
type Memory struct {
	Name  string
	Width int
	Depth int

	init []uint64
}

// NewMemory returns a memory of the given geometry.
func NewMemory(name string, width, depth int) (*Memory, error) {
	if width < 0 {
		return nil, errors.Errorf("memory width must be non-negative, got %d", width)
	}
	if depth < 0 {
		return nil, errors.Errorf("memory depth must be non-negative, got %d", depth)
	}
	if name == "" {
		name = "$memory"
	}
	return &Memory{Name: name, Width: width, Depth: depth}, nil
}

// SetInit sets the initial contents. Missing trailing words initialize
// to zero.
func (m *Memory) SetInit(words []uint64) error {
	if len(words) > m.Depth {
		return errors.Errorf("memory initialization word count exceeds depth (%d > %d)", len(words), m.Depth)
	}
	m.init = append([]uint64(nil), words...)
	return nil
}

// Init returns the initial contents set with SetInit.
func (m *Memory) Init() []uint64 { return m.init }

func (m *Memory) addrBits() int {
	if m.Depth <= 1 {
		return 1
	}
	return bitsFor(uint64(m.Depth - 1))
}

// ReadPort returns a read port. A port cannot be both asynchronous and
// non-transparent.
func (m *Memory) ReadPort(domain string, synchronous, transparent bool) (*ReadPort, error) {
	if !synchronous && !transparent {
		return nil, errors.New("read port cannot be simultaneously asynchronous and non-transparent")
	}
	p := &ReadPort{
		Memory:      m,
		Domain:      domain,
		Synchronous: synchronous,
		Transparent: transparent,
		Addr:        NewSignalRange(m.Name+"_r_addr", uint64(m.Depth)),
		Data:        NewSignal(m.Name+"_r_data", m.Width),
	}
	if synchronous && !transparent {
		p.En = NewSignal(m.Name+"_r_en", 1)
	} else {
		p.En = NewConst(1, 1)
	}
	return p, nil
}

// WritePort returns a write port. Granularity 0 means whole-word writes;
// otherwise it must divide the memory width evenly, and the enable signal
// gets one bit per granularity-sized lane.
func (m *Memory) WritePort(domain string, priority int, granularity int) (*WritePort, error) {
	if granularity == 0 {
		granularity = m.Width
	}
	if granularity < 0 {
		return nil, errors.Errorf("write port granularity must be non-negative, got %d", granularity)
	}
	if granularity > m.Width {
		return nil, errors.Errorf("write port granularity must not exceed memory width (%d > %d)", granularity, m.Width)
	}
	if m.Width/granularity*granularity != m.Width {
		return nil, errors.Errorf("write port granularity %d must divide memory width %d evenly", granularity, m.Width)
	}
	return &WritePort{
		Memory:      m,
		Domain:      domain,
		Priority:    priority,
		Granularity: granularity,
		Addr:        NewSignalRange(m.Name+"_w_addr", uint64(m.Depth)),
		Data:        NewSignal(m.Name+"_w_data", m.Width),
		En:          NewSignal(m.Name+"_w_en", m.Width/granularity),
	}, nil
}

// A ReadPort reads one word per access from a memory. A synchronous port
// registers the access in its clock domain; a transparent port forwards
// same-cycle writes to the read data.
type ReadPort struct {
	Memory      *Memory
	Domain      string
	Synchronous bool
	Transparent bool

	Addr *Signal
	Data *Signal
	// En gates synchronous non-transparent reads; other port kinds read
	// unconditionally and hold a constant 1.
	En Value
}

// Elaborate lowers the port to a memory read cell.
func (p *ReadPort) Elaborate(platform interface{}) Elaboratable {
	clk := Value(NewConst(0, 1))
	if p.Synchronous {
		clk = NewClockSignal(p.Domain)
	}
	inst, err := NewInstance("$memrd",
		InstParam("MEMID", p.Memory),
		InstParam("ABITS", p.Addr.Bits),
		InstParam("WIDTH", p.Data.Bits),
		InstParam("CLK_ENABLE", p.Synchronous),
		InstParam("CLK_POLARITY", 1),
		InstParam("TRANSPARENT", p.Transparent),
		InstInput("CLK", clk),
		InstInput("EN", p.En),
		InstInput("ADDR", p.Addr),
		InstOutput("DATA", p.Data),
	)
	if err != nil {
		panic(err)
	}
	return inst
}

// A WritePort writes one word, or a subset of its lanes, per access.
type WritePort struct {
	Memory      *Memory
	Domain      string
	Priority    int
	Granularity int

	Addr *Signal
	Data *Signal
	En   *Signal
}

// Elaborate lowers the port to a memory write cell. The per-lane enable
// bits are widened to a per-bit enable mask.
func (p *WritePort) Elaborate(platform interface{}) Elaboratable {
	lanes := make([]Value, p.En.Bits)
	for i := range lanes {
		lanes[i] = NewRepl(Bit(p.En, i), p.Granularity)
	}
	inst, err := NewInstance("$memwr",
		InstParam("MEMID", p.Memory),
		InstParam("ABITS", p.Addr.Bits),
		InstParam("WIDTH", p.Data.Bits),
		InstParam("CLK_ENABLE", true),
		InstParam("CLK_POLARITY", 1),
		InstParam("PRIORITY", p.Priority),
		InstInput("CLK", NewClockSignal(p.Domain)),
		InstInput("EN", NewCat(lanes...)),
		InstInput("ADDR", p.Addr),
		InstInput("DATA", p.Data),
	)
	if err != nil {
		panic(err)
	}
	return inst
}

// memorySet is an ordered set of memories.
type memorySet struct {
	elems []*Memory
	index map[*Memory]struct{}
}

func newMemorySet() *memorySet {
	return &memorySet{index: make(map[*Memory]struct{})}
}

func (s *memorySet) add(m *Memory) {
	if _, ok := s.index[m]; ok {
		return
	}
	s.index[m] = struct{}{}
	s.elems = append(s.elems, m)
}

func (s *memorySet) all() []*Memory { return s.elems }
