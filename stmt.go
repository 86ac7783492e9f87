// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "github.com/veriq/hdl/internal/bitpat"

// A Statement is an action taken by a fragment: an assignment, a formal
// property, or a multi-way conditional over already-captured statements.
// Only assignments, asserts and assumes may be appended to a module
// builder; Switch statements are produced by lowering control constructs.
type Statement interface {
	lhsSignals() *SignalSet
	rhsSignals() *SignalSet
}

// An Assign drives LHS with the value of RHS.
type Assign struct {
	LHS Value
	RHS Value
}

// NewAssign returns an assignment of rhs to lhs.
func NewAssign(lhs, rhs Value) *Assign { return &Assign{LHS: lhs, RHS: rhs} }

func (a *Assign) lhsSignals() *SignalSet { return a.LHS.lhsSignals() }
func (a *Assign) rhsSignals() *SignalSet {
	return a.LHS.rhsSignals().Union(a.RHS.rhsSignals())
}

// An Assert requires Test to hold whenever the statement is active.
type Assert struct {
	Test Value
}

// NewAssert returns an assertion over test.
func NewAssert(test Value) *Assert { return &Assert{Test: boolOf(test)} }

func (a *Assert) lhsSignals() *SignalSet { return NewSignalSet() }
func (a *Assert) rhsSignals() *SignalSet { return a.Test.rhsSignals() }

// An Assume constrains Test to hold whenever the statement is active.
type Assume struct {
	Test Value
}

// NewAssume returns an assumption over test.
func NewAssume(test Value) *Assume { return &Assume{Test: boolOf(test)} }

func (a *Assume) lhsSignals() *SignalSet { return NewSignalSet() }
func (a *Assume) rhsSignals() *SignalSet { return a.Test.rhsSignals() }

// A SwitchCase is one arm of a Switch. Patterns are bit patterns over
// {'0','1','-'}, most significant bit first, each as wide as the switch
// test. A case with no patterns always matches.
type SwitchCase struct {
	Patterns []string
	Body     []Statement
}

// A Switch evaluates Test and runs the body of the first case whose
// pattern matches. Declaration order is evaluation priority order; there
// is no fallthrough between cases.
type Switch struct {
	Test  Value
	Cases []SwitchCase
}

// NewSwitch returns a switch over test. Case patterns are validated
// against the width of test; a malformed pattern panics with a
// *SyntaxError.
func NewSwitch(test Value, cases []SwitchCase) *Switch {
	width := test.Shape().Bits
	for _, c := range cases {
		for _, p := range c.Patterns {
			if err := bitpat.Validate(p, width); err != nil {
				panic(syntaxErrorf("switch case: %v", err))
			}
		}
	}
	return &Switch{Test: test, Cases: cases}
}

// CaseOf builds a switch case matching the given values.
func CaseOf(width int, body []Statement, values ...uint64) SwitchCase {
	patterns := make([]string, 0, len(values))
	for _, v := range values {
		p, err := bitpat.FromUint(v, width)
		if err != nil {
			panic(syntaxErrorf("switch case: %v", err))
		}
		patterns = append(patterns, p)
	}
	return SwitchCase{Patterns: patterns, Body: body}
}

func (s *Switch) lhsSignals() *SignalSet {
	set := NewSignalSet()
	for _, c := range s.Cases {
		for _, stmt := range c.Body {
			set.AddAll(stmt.lhsSignals())
		}
	}
	return set
}

func (s *Switch) rhsSignals() *SignalSet {
	set := s.Test.rhsSignals()
	for _, c := range s.Cases {
		for _, stmt := range c.Body {
			set.AddAll(stmt.rhsSignals())
		}
	}
	return set
}
