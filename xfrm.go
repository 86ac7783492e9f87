// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"fmt"
)

// valueFn is a value-rewriting hook. It returns the replacement for v and
// whether it handled the node; unhandled nodes are rebuilt with their
// children rewritten.
type valueFn func(v Value) (Value, bool)

// rewriteValue rewrites a value tree bottom-up. When fn handles a node the
// replacement is used verbatim; otherwise interior nodes are rebuilt from
// their rewritten children and leaves are kept.
func rewriteValue(v Value, fn valueFn) Value {
	if fn != nil {
		if nv, ok := fn(v); ok {
			return nv
		}
	}
	switch v := v.(type) {
	case *Operator:
		ops := make([]Value, len(v.Operands))
		for i, o := range v.Operands {
			ops[i] = rewriteValue(o, fn)
		}
		return &Operator{Op: v.Op, Operands: ops}
	case *Slice:
		return &Slice{Value: rewriteValue(v.Value, fn), Start: v.Start, End: v.End}
	case *Part:
		return &Part{Value: rewriteValue(v.Value, fn), Offset: rewriteValue(v.Offset, fn), Width: v.Width}
	case *Cat:
		parts := make([]Value, len(v.Parts))
		for i, p := range v.Parts {
			parts[i] = rewriteValue(p, fn)
		}
		return &Cat{Parts: parts}
	case *Repl:
		return &Repl{Value: rewriteValue(v.Value, fn), Count: v.Count}
	case *Sample:
		return &Sample{Value: rewriteValue(v.Value, fn), Clocks: v.Clocks, Domain: v.Domain}
	default:
		return v
	}
}

// rewriteStatement rewrites every value in a statement tree with fn.
func rewriteStatement(s Statement, fn valueFn) Statement {
	switch s := s.(type) {
	case *Assign:
		return &Assign{LHS: rewriteValue(s.LHS, fn), RHS: rewriteValue(s.RHS, fn)}
	case *Assert:
		return &Assert{Test: rewriteValue(s.Test, fn)}
	case *Assume:
		return &Assume{Test: rewriteValue(s.Test, fn)}
	case *Switch:
		cases := make([]SwitchCase, len(s.Cases))
		for i, c := range s.Cases {
			body := make([]Statement, len(c.Body))
			for j, cs := range c.Body {
				body[j] = rewriteStatement(cs, fn)
			}
			cases[i] = SwitchCase{Patterns: c.Patterns, Body: body}
		}
		return &Switch{Test: rewriteValue(s.Test, fn), Cases: cases}
	default:
		panic(syntaxErrorf("cannot rewrite statement %T", s))
	}
}

// fragmentXfrm rebuilds a fragment tree, applying the value hook to every
// statement and instance named port, and allowing stages to override how
// domains and drivers are carried over. The zero hooks produce a deep
// structural copy.
type fragmentXfrm struct {
	value      valueFn
	mapDomains func(x *fragmentXfrm, f, nf *Fragment)
	mapDrivers func(x *fragmentXfrm, f, nf *Fragment)
	// post runs after a fragment is rebuilt, before it is returned.
	post func(x *fragmentXfrm, f, nf *Fragment)
	err  error
}

func (x *fragmentXfrm) fail(err error) {
	if x.err == nil {
		x.err = err
	}
}

func (x *fragmentXfrm) apply(f *Fragment) *Fragment {
	var nf *Fragment
	if inst := f.inst; inst != nil {
		ni := &Instance{Type: inst.Type}
		ni.init()
		for _, p := range inst.Parameters {
			ni.Parameters = append(ni.Parameters, p)
		}
		for _, np := range inst.NamedPorts {
			ni.NamedPorts = append(ni.NamedPorts, NamedPort{
				Name:  np.Name,
				Value: rewriteValue(np.Value, x.value),
				Dir:   np.Dir,
			})
		}
		nf = &ni.Fragment
	} else {
		nf = NewFragment()
		nf.Flatten = f.Flatten
	}
	for _, sig := range f.ports.Signals() {
		dir, _ := f.ports.Dir(sig)
		nf.ports.Add(sig, dir)
	}
	for _, sub := range f.subs {
		nf.AddSubfragment(x.apply(sub.Fragment), sub.Name)
	}
	if x.mapDomains != nil {
		x.mapDomains(x, f, nf)
	} else {
		for _, name := range f.domainOrder {
			nf.addDomain(f.domains[name])
		}
	}
	for _, s := range f.stmts {
		nf.stmts = append(nf.stmts, rewriteStatement(s, x.value))
	}
	if x.mapDrivers != nil {
		x.mapDrivers(x, f, nf)
	} else {
		for _, domain := range f.drivers.domains() {
			for _, v := range f.drivers.signals(domain).All() {
				nf.drivers.add(v, domain)
			}
		}
	}
	for k, v := range f.attrs {
		nf.attrs[k] = v
	}
	for k, v := range f.generated {
		nf.generated[k] = v
	}
	if x.post != nil {
		x.post(x, f, nf)
	}
	return nf
}

// RenameDomains returns a copy of the fragment tree with clock domains
// renamed per domainMap. The ClockDomain objects themselves are renamed
// in place (they are shared), and every domain-relative clock/reset
// reference and driver entry follows.
func RenameDomains(f *Fragment, domainMap map[string]string) *Fragment {
	x := &fragmentXfrm{
		value: func(v Value) (Value, bool) {
			switch v := v.(type) {
			case *ClockSignal:
				if to, ok := domainMap[v.Domain]; ok {
					return &ClockSignal{Domain: to}, true
				}
			case *ResetSignal:
				if to, ok := domainMap[v.Domain]; ok {
					return &ResetSignal{Domain: to, AllowResetLess: v.AllowResetLess}, true
				}
			}
			return nil, false
		},
		mapDomains: func(x *fragmentXfrm, f, nf *Fragment) {
			for _, name := range f.domainOrder {
				cd := f.domains[name]
				if to, ok := domainMap[name]; ok {
					if cd.Name == name {
						cd.Rename(to)
					}
				}
				nf.addDomain(cd)
			}
		},
		mapDrivers: func(x *fragmentXfrm, f, nf *Fragment) {
			for _, domain := range f.drivers.domains() {
				target := domain
				if to, ok := domainMap[domain]; ok {
					target = to
				}
				for _, v := range f.drivers.signals(domain).All() {
					nf.drivers.add(rewriteValue(v, x.value), target)
				}
			}
		},
	}
	return x.apply(f)
}

// lowerDomainSignals rewrites every remaining clock/reset reference into
// the concrete signal of the resolved ClockDomain.
func lowerDomainSignals(f *Fragment, domains map[string]*ClockDomain) (*Fragment, error) {
	x := &fragmentXfrm{}
	resolve := func(domain string, context fmt.Stringer) *ClockDomain {
		cd, ok := domains[domain]
		if !ok {
			x.fail(domainErrorf("%v refers to nonexistent domain %q", context, domain))
		}
		return cd
	}
	x.value = func(v Value) (Value, bool) {
		switch v := v.(type) {
		case *ClockSignal:
			cd := resolve(v.Domain, v)
			if cd == nil {
				return NewConst(0, 1), true
			}
			return cd.Clk, true
		case *ResetSignal:
			cd := resolve(v.Domain, v)
			if cd == nil {
				return NewConst(0, 1), true
			}
			if cd.Rst == nil {
				if v.AllowResetLess {
					return NewConst(0, 1), true
				}
				x.fail(domainErrorf("%v refers to reset of reset-less domain %q", v, v.Domain))
				return NewConst(0, 1), true
			}
			return cd.Rst, true
		}
		return nil, false
	}
	x.mapDrivers = func(x *fragmentXfrm, f, nf *Fragment) {
		for _, domain := range f.drivers.domains() {
			for _, v := range f.drivers.signals(domain).All() {
				nf.drivers.add(rewriteValue(v, x.value), domain)
			}
		}
	}
	nf := x.apply(f)
	if x.err != nil {
		return nil, x.err
	}
	return nf, nil
}

// injectSampleDomain binds every unbound sample in the statement to the
// given domain.
func injectSampleDomain(s Statement, domain string) Statement {
	if domain == "" || domain == Comb {
		return s
	}
	return rewriteStatement(s, func(v Value) (Value, bool) {
		if smp, ok := v.(*Sample); ok && smp.Domain == "" {
			return &Sample{Value: smp.Value, Clocks: smp.Clocks, Domain: domain}, true
		}
		return nil, false
	})
}

// sampleLowerer replaces every sampled value with a register fed by a
// chain of per-cycle sample registers, accumulating the chain assignments
// for the root fragment.
type sampleLowerer struct {
	cache map[sampleKey]Value
	order []string
	stmts map[string][]Statement
}

type sampleKey struct {
	inner  interface{}
	clocks int
	domain string
}

func newSampleLowerer() *sampleLowerer {
	return &sampleLowerer{
		cache: make(map[sampleKey]Value),
		stmts: make(map[string][]Statement),
	}
}

func (l *sampleLowerer) lower(s *Sample) Value {
	key := sampleKey{inner: valueKey(s.Value), clocks: s.Clocks, domain: s.Domain}
	if v, ok := l.cache[key]; ok {
		return v
	}
	if s.Clocks == 0 {
		l.cache[key] = s.Value
		return s.Value
	}
	if s.Domain == "" {
		panic(syntaxErrorf("sample of %v was never bound to a domain", s.Value))
	}
	name, reset := sampleNameReset(s.Value)
	sig := NewSignalLike(s.Value, fmt.Sprintf("$sample$%s$%s$%d", name, s.Domain, s.Clocks))
	sig.Reset = reset
	sig.ResetLess = true
	prev := l.lower(&Sample{Value: s.Value, Clocks: s.Clocks - 1, Domain: s.Domain})
	if _, ok := l.stmts[s.Domain]; !ok {
		l.order = append(l.order, s.Domain)
	}
	l.stmts[s.Domain] = append(l.stmts[s.Domain], NewAssign(sig, prev))
	l.cache[key] = sig
	return sig
}

func sampleNameReset(v Value) (string, uint64) {
	switch v := v.(type) {
	case *Const:
		return fmt.Sprintf("c$%d", v.Value), v.Value
	case *Signal:
		return "s$" + v.Name, v.Reset
	case *ClockSignal:
		return "clk", 0
	case *ResetSignal:
		return "rst", 1
	}
	panic(syntaxErrorf("value %T cannot be sampled", v))
}

// lowerSamples rewrites the whole tree, then attaches the generated
// sample register chains (and their drivers) to the root fragment.
func lowerSamples(f *Fragment) *Fragment {
	l := newSampleLowerer()
	x := &fragmentXfrm{
		value: func(v Value) (Value, bool) {
			if s, ok := v.(*Sample); ok {
				return l.lower(s), true
			}
			return nil, false
		},
	}
	nf := x.apply(f)
	for _, domain := range l.order {
		for _, stmt := range l.stmts[domain] {
			nf.stmts = append(nf.stmts, stmt)
			nf.drivers.add(stmt.(*Assign).LHS, domain)
		}
	}
	return nf
}

// controlInserter wraps, per domain, every driven signal of the matched
// domains in a one-case switch over a control value.
type controlInserter struct {
	controls map[string]Value
	insert   func(nf *Fragment, domain string, signals *SignalSet, ctrl Value)
}

func (ci *controlInserter) apply(f *Fragment) *Fragment {
	x := &fragmentXfrm{
		post: func(x *fragmentXfrm, f, nf *Fragment) {
			for _, domain := range f.drivers.domains() {
				if domain == Comb {
					continue
				}
				ctrl, ok := ci.controls[domain]
				if !ok {
					continue
				}
				ci.insert(nf, domain, f.drivers.signals(domain), ctrl)
			}
		},
	}
	return x.apply(f)
}

// InsertResets wraps the driven signals of each controlled domain in a
// conditional override forcing them to their declared reset values while
// the control value is asserted. Reset-less signals are unaffected.
func InsertResets(f *Fragment, controls map[string]Value) *Fragment {
	ci := &controlInserter{
		controls: controls,
		insert: func(nf *Fragment, domain string, signals *SignalSet, ctrl Value) {
			var body []Statement
			for _, v := range signals.All() {
				sig, ok := v.(*Signal)
				if !ok || sig.ResetLess {
					continue
				}
				body = append(body, NewAssign(sig, NewConst(sig.Reset, sig.Bits)))
			}
			if len(body) == 0 {
				return
			}
			nf.stmts = append(nf.stmts, NewSwitch(boolOf(ctrl), []SwitchCase{
				{Patterns: []string{"1"}, Body: body},
			}))
		},
	}
	return ci.apply(f)
}

// InsertClockEnables holds the driven signals of each controlled domain at
// their current value while the control value is deasserted.
func InsertClockEnables(f *Fragment, controls map[string]Value) *Fragment {
	ci := &controlInserter{
		controls: controls,
		insert: func(nf *Fragment, domain string, signals *SignalSet, ctrl Value) {
			var body []Statement
			for _, v := range signals.All() {
				sig, ok := v.(*Signal)
				if !ok {
					continue
				}
				body = append(body, NewAssign(sig, sig))
			}
			if len(body) == 0 {
				return
			}
			nf.stmts = append(nf.stmts, NewSwitch(boolOf(ctrl), []SwitchCase{
				{Patterns: []string{"0"}, Body: body},
			}))
		},
	}
	return ci.apply(f)
}
