// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// valueKey returns the identity under which a leaf value is tracked in
// signal sets and driver maps. Signals compare by pointer; domain-relative
// clock/reset references compare by domain name, so that two references to
// the same domain alias each other before lowering.
func valueKey(v Value) interface{} {
	switch v := v.(type) {
	case *ClockSignal:
		return clockKey{v.Domain}
	case *ResetSignal:
		return resetKey{v.Domain}
	default:
		return v
	}
}

type clockKey struct{ domain string }
type resetKey struct{ domain string }

// A SignalSet is an ordered set of leaf values: signals and, before domain
// lowering, clock/reset references. Iteration order is insertion order,
// which keeps the whole pipeline deterministic.
type SignalSet struct {
	elems []Value
	index map[interface{}]struct{}
}

// NewSignalSet returns a set of the given values.
func NewSignalSet(vs ...Value) *SignalSet {
	s := &SignalSet{index: make(map[interface{}]struct{}, len(vs))}
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

// Add inserts v, reporting whether it was not already present.
func (s *SignalSet) Add(v Value) bool {
	k := valueKey(v)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.elems = append(s.elems, v)
	return true
}

// AddAll inserts every element of o.
func (s *SignalSet) AddAll(o *SignalSet) {
	for _, v := range o.elems {
		s.Add(v)
	}
}

// Has reports whether v is in the set.
func (s *SignalSet) Has(v Value) bool {
	_, ok := s.index[valueKey(v)]
	return ok
}

// Len returns the element count.
func (s *SignalSet) Len() int { return len(s.elems) }

// All returns the elements in insertion order. The returned slice must not
// be modified.
func (s *SignalSet) All() []Value { return s.elems }

// Union returns a new set holding the elements of both sets.
func (s *SignalSet) Union(o *SignalSet) *SignalSet {
	r := NewSignalSet(s.elems...)
	r.AddAll(o)
	return r
}

// PortDir is the direction of a fragment port.
type PortDir string

const (
	DirInput  PortDir = "i"
	DirOutput PortDir = "o"
	DirInout  PortDir = "io"
)

// A PortMap is an ordered mapping of signal to port direction.
type PortMap struct {
	order []*Signal
	dirs  map[*Signal]PortDir
}

func newPortMap() *PortMap {
	return &PortMap{dirs: make(map[*Signal]PortDir)}
}

// Add sets the direction for sig, keeping the original insertion position
// if the signal is already a port.
func (p *PortMap) Add(sig *Signal, dir PortDir) {
	if _, ok := p.dirs[sig]; !ok {
		p.order = append(p.order, sig)
	}
	p.dirs[sig] = dir
}

// Dir returns the direction of sig and whether it is a port.
func (p *PortMap) Dir(sig *Signal) (PortDir, bool) {
	d, ok := p.dirs[sig]
	return d, ok
}

// Len returns the port count.
func (p *PortMap) Len() int { return len(p.order) }

// Signals returns the ports in insertion order. The returned slice must
// not be modified.
func (p *PortMap) Signals() []*Signal { return p.order }

// driverMap is an ordered mapping of domain name to the set of leaf values
// driven in that domain. The Comb pseudo-domain holds combinational
// drivers.
type driverMap struct {
	order []string
	sets  map[string]*SignalSet
}

func newDriverMap() *driverMap {
	return &driverMap{sets: make(map[string]*SignalSet)}
}

func (d *driverMap) add(v Value, domain string) {
	set, ok := d.sets[domain]
	if !ok {
		set = NewSignalSet()
		d.sets[domain] = set
		d.order = append(d.order, domain)
	}
	set.Add(v)
}

func (d *driverMap) domains() []string { return d.order }

func (d *driverMap) signals(domain string) *SignalSet {
	if set, ok := d.sets[domain]; ok {
		return set
	}
	return NewSignalSet()
}

// fragSet is an ordered set of fragments.
type fragSet struct {
	elems []*Fragment
	index map[*Fragment]struct{}
}

func newFragSet() *fragSet {
	return &fragSet{index: make(map[*Fragment]struct{})}
}

func (s *fragSet) add(f *Fragment) {
	if _, ok := s.index[f]; ok {
		return
	}
	s.index[f] = struct{}{}
	s.elems = append(s.elems, f)
}

func (s *fragSet) has(f *Fragment) bool {
	_, ok := s.index[f]
	return ok
}
