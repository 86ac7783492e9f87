// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// Comb is the pseudo-domain name for combinational statements. It never
// resolves to a ClockDomain.
const Comb = "comb"

// DefaultDomain is the domain synthesized at the root of a design that
// defines no clock domains, so that sequential logic always has somewhere
// to attach.
const DefaultDomain = "sync"

// A DomainOpt adjusts clock domain construction.
type DomainOpt int

const (
	// ResetLess omits the reset signal; logic in the domain is not reset.
	ResetLess DomainOpt = iota
	// AsyncReset makes registers in the domain reset asynchronously.
	AsyncReset
	// LocalDomain keeps the domain private to the fragment defining it:
	// it is not propagated up the hierarchy.
	LocalDomain
)

// A ClockDomain is a named clock (and optional reset) context. It is owned
// by exactly one fragment until domain propagation shares it across the
// tree; after propagation every fragment referencing the name resolves to
// the same ClockDomain object.
type ClockDomain struct {
	Name string
	Clk  *Signal
	// Rst is nil for reset-less domains.
	Rst *Signal

	AsyncReset bool
	Local      bool
}

// NewClockDomain returns a clock domain with fresh clock and reset
// signals named after it.
func NewClockDomain(name string, opts ...DomainOpt) *ClockDomain {
	if name == "" || name == Comb {
		panic(syntaxErrorf("clock domain name %q is reserved", name))
	}
	cd := &ClockDomain{
		Name: name,
		Clk:  NewSignal(name+"_clk", 1),
	}
	resetLess := false
	for _, o := range opts {
		switch o {
		case ResetLess:
			resetLess = true
		case AsyncReset:
			cd.AsyncReset = true
		case LocalDomain:
			cd.Local = true
		}
	}
	if !resetLess {
		cd.Rst = NewSignal(name+"_rst", 1)
	}
	return cd
}

// Rename changes the domain name and renames its clock and reset signals
// accordingly.
func (cd *ClockDomain) Rename(name string) {
	if name == "" || name == Comb {
		panic(syntaxErrorf("clock domain name %q is reserved", name))
	}
	cd.Name = name
	cd.Clk.Name = name + "_clk"
	if cd.Rst != nil {
		cd.Rst.Name = name + "_rst"
	}
}
