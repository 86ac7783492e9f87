// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/veriq/hdl/internal/bitpat"
)

// A Module builds a fragment out of structured control flow. Statements
// are appended to per-domain sinks obtained from D; control constructs
// (If, Switch, FSM) take a callback for their body and lower to
// priority-ordered Switch statements when the construct closes.
//
// A construct closes when a statement or sibling construct is appended at
// the same nesting depth, or when the module is elaborated. Until then
// the construct stays open, which is what lets Elif and Else attach to a
// preceding If.
//
// Builder misuse panics with a *SyntaxError.
type Module struct {
	log logrus.FieldLogger

	stmts       []Statement
	ctrlContext string // "", "Switch" or "FSM"
	ctrlStack   []*ctrlFrame
	depth       int

	driving      map[interface{}]string
	drivingOrder []Value

	subOrder []string // "" entries are anonymous
	subAnon  []Elaboratable
	subNamed map[string]Elaboratable

	domains []*ClockDomain

	genOrder  []string
	generated map[string]interface{}
}

// NewModule returns an empty module builder.
func NewModule() *Module {
	m := &Module{
		log:       logrus.StandardLogger(),
		driving:   make(map[interface{}]string),
		subNamed:  make(map[string]Elaboratable),
		generated: make(map[string]interface{}),
	}
	trackAt(m, 2)
	return m
}

// SetLogger redirects builder diagnostics, such as impossible case value
// warnings.
func (m *Module) SetLogger(log logrus.FieldLogger) { m.log = log }

type ctrlFrame struct {
	kind string // "If", "Switch" or "FSM"

	// If
	ifTests  []Value
	ifBodies [][]Statement

	// Switch
	swTest  Value
	swCases []SwitchCase

	// FSM
	fsm *FSM
}

func (m *Module) checkContext(construct, context string) {
	if m.ctrlContext == context {
		return
	}
	if m.ctrlContext == "" {
		panic(syntaxErrorf("%s is not permitted outside of %s", construct, context))
	}
	secondary := "Case"
	if m.ctrlContext == "FSM" {
		secondary = "State"
	}
	panic(syntaxErrorf("%s is not permitted directly inside of %s; it is permitted inside of %s %s",
		construct, m.ctrlContext, m.ctrlContext, secondary))
}

func (m *Module) getCtrl(kind string) *ctrlFrame {
	if n := len(m.ctrlStack); n > 0 && m.ctrlStack[n-1].kind == kind {
		return m.ctrlStack[n-1]
	}
	return nil
}

func (m *Module) flushCtrl() {
	for len(m.ctrlStack) > m.depth {
		m.popCtrl()
	}
}

func (m *Module) setCtrl(frame *ctrlFrame) *ctrlFrame {
	m.flushCtrl()
	m.ctrlStack = append(m.ctrlStack, frame)
	return frame
}

// captureBody runs body with a fresh statement list and returns the
// statements it appended, closing any construct the body left open.
func (m *Module) captureBody(body func()) []Statement {
	outer := m.stmts
	m.stmts = nil
	defer func() { m.stmts = outer }()
	body()
	m.flushCtrl()
	return m.stmts
}

// If opens a conditional block. Elif and Else attach to it until a
// statement or construct at the same depth closes the chain.
func (m *Module) If(cond Value, body func()) {
	m.checkContext("If", "")
	frame := m.setCtrl(&ctrlFrame{kind: "If"})
	m.depth++
	defer func() { m.depth-- }()
	stmts := m.captureBody(body)
	frame.ifTests = append(frame.ifTests, cond)
	frame.ifBodies = append(frame.ifBodies, stmts)
}

// Elif attaches another prioritized branch to the open If.
func (m *Module) Elif(cond Value, body func()) {
	m.checkContext("Elif", "")
	frame := m.getCtrl("If")
	if frame == nil {
		panic(syntaxErrorf("Elif without preceding If"))
	}
	m.depth++
	defer func() { m.depth-- }()
	stmts := m.captureBody(body)
	frame.ifTests = append(frame.ifTests, cond)
	frame.ifBodies = append(frame.ifBodies, stmts)
}

// Else attaches the default branch and closes the If chain.
func (m *Module) Else(body func()) {
	m.checkContext("Else", "")
	frame := m.getCtrl("If")
	if frame == nil {
		panic(syntaxErrorf("Else without preceding If/Elif"))
	}
	func() {
		m.depth++
		defer func() { m.depth-- }()
		frame.ifBodies = append(frame.ifBodies, m.captureBody(body))
	}()
	m.popCtrl()
}

// Switch opens a multi-way block over test; only Case is permitted
// directly inside the body.
func (m *Module) Switch(test Value, body func()) {
	m.checkContext("Switch", "")
	m.setCtrl(&ctrlFrame{kind: "Switch", swTest: test})
	func() {
		m.ctrlContext = "Switch"
		m.depth++
		defer func() {
			m.depth--
			m.ctrlContext = ""
		}()
		body()
	}()
	m.popCtrl()
}

// Case adds an arm to the open Switch. Values are either pattern strings
// over {'0','1','-'} exactly as wide as the switch test, or unsigned
// integers. An integer too wide for the test is logged and dropped; a
// case whose values were all dropped never matches and is omitted. A case
// with no values at all always matches.
func (m *Module) Case(body func(), values ...interface{}) {
	m.checkContext("Case", "Switch")
	frame := m.getCtrl("Switch")
	width := Width(frame.swTest)

	var patterns []string
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if len(v) != width {
				panic(syntaxErrorf("case value %q must have the same width as the test (which is %d)", v, width))
			}
			if err := bitpat.Validate(v, width); err != nil {
				panic(syntaxErrorf("case value: %v", err))
			}
			patterns = append(patterns, v)
		case int:
			if v < 0 {
				panic(syntaxErrorf("case value %d must be non-negative", v))
			}
			patterns = m.appendCaseValue(patterns, uint64(v), width)
		case uint64:
			patterns = m.appendCaseValue(patterns, v, width)
		default:
			panic(syntaxErrorf("case value must be a pattern string or an unsigned integer, not %T", value))
		}
	}

	stmts := func() []Statement {
		m.ctrlContext = ""
		defer func() { m.ctrlContext = "Switch" }()
		return m.captureBody(body)
	}()
	if len(values) > 0 && len(patterns) == 0 {
		return
	}
	frame.swCases = append(frame.swCases, SwitchCase{Patterns: patterns, Body: stmts})
}

func (m *Module) appendCaseValue(patterns []string, v uint64, width int) []string {
	p, err := bitpat.FromUint(v, width)
	if err != nil {
		m.log.Warnf("case value %b is wider than the test (which has width %d); comparison will never be true", v, width)
		return patterns
	}
	return append(patterns, p)
}

// FSMOpts adjusts finite state machine construction.
type FSMOpts struct {
	// Name of the machine; defaults to "fsm". The state register is named
	// after it and the machine is retrievable through FindGenerated.
	Name string
	// Domain driving the state register; defaults to the "sync" domain.
	// The combinational pseudo-domain is not permitted.
	Domain string
	// Reset names the reset state; defaults to the first state defined.
	Reset string
}

// FSM opens a finite state machine; only State is permitted directly
// inside the body. States are encoded in first-appearance order, with the
// reset state renumbered to encoding 0 when the machine closes.
func (m *Module) FSM(opts FSMOpts, body func(fsm *FSM)) {
	m.checkContext("FSM", "")
	name := opts.Name
	if name == "" {
		name = "fsm"
	}
	domain := opts.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	if domain == Comb {
		panic(syntaxErrorf("FSM may not be driven by the %q domain", Comb))
	}
	fsm := &FSM{
		name:     name,
		domain:   domain,
		reset:    opts.Reset,
		sig:      NewSignal(name+"_state", 1),
		encoding: make(map[string]int),
		decoding: make(map[uint64]string),
		states:   make(map[string][]Statement),
	}
	m.setCtrl(&ctrlFrame{kind: "FSM", fsm: fsm})
	m.setGenerated(name, fsm)
	func() {
		m.ctrlContext = "FSM"
		m.depth++
		defer func() {
			m.depth--
			m.ctrlContext = ""
		}()
		body(fsm)
	}()
	m.popCtrl()
}

// State adds a state to the open FSM.
func (m *Module) State(name string, body func()) {
	m.checkContext("FSM State", "FSM")
	frame := m.getCtrl("FSM")
	fsm := frame.fsm
	if _, ok := fsm.states[name]; ok {
		panic(syntaxErrorf("FSM state %q is already defined", name))
	}
	fsm.encode(name)
	stmts := func() []Statement {
		m.ctrlContext = ""
		defer func() { m.ctrlContext = "FSM" }()
		return m.captureBody(body)
	}()
	fsm.states[name] = stmts
	fsm.stateOrder = append(fsm.stateOrder, name)
}

// Next requests a transition of the innermost enclosing FSM to the named
// state. It is only permitted inside an FSM state.
func (m *Module) Next(name string) {
	if m.ctrlContext != "FSM" {
		for i := len(m.ctrlStack) - 1; i >= 0; i-- {
			frame := m.ctrlStack[i]
			if frame.kind != "FSM" {
				continue
			}
			fsm := frame.fsm
			m.addStatement(fsm.domain, len(m.ctrlStack), NewAssign(fsm.sig, fsm.ref(name)))
			return
		}
	}
	panic(syntaxErrorf("Next is only permitted inside an FSM state"))
}

// D returns the statement sink of the named domain; use Comb for
// combinational statements.
func (m *Module) D(domain string) DomainSink {
	if domain == "" {
		domain = Comb
	}
	return DomainSink{m: m, domain: domain}
}

// A DomainSink appends statements to one domain of a module.
type DomainSink struct {
	m      *Module
	domain string
}

// Add appends assignments, asserts or assumes to the domain. A signal may
// only be driven from a single domain of a module; a second domain panics
// with a *SyntaxError.
func (d DomainSink) Add(stmts ...Statement) {
	for _, s := range stmts {
		d.m.addStatement(d.domain, d.m.depth, s)
	}
}

func (m *Module) addStatement(domain string, depth int, stmt Statement) {
	for len(m.ctrlStack) > depth {
		m.popCtrl()
	}

	switch stmt.(type) {
	case *Assign, *Assert, *Assume:
	default:
		panic(syntaxErrorf("only assignments, asserts and assumes may be appended to d.%s, not %T", domain, stmt))
	}

	if domain != Comb {
		stmt = injectSampleDomain(stmt, domain)
	}
	for _, v := range stmt.lhsSignals().All() {
		k := valueKey(v)
		if have, ok := m.driving[k]; ok {
			if have != domain {
				panic(syntaxErrorf("driver-driver conflict: trying to drive %v from d.%s, but it is already driven from d.%s",
					v, domain, have))
			}
			continue
		}
		m.driving[k] = domain
		m.drivingOrder = append(m.drivingOrder, v)
	}
	m.stmts = append(m.stmts, stmt)
}

func (m *Module) popCtrl() {
	n := len(m.ctrlStack)
	frame := m.ctrlStack[n-1]
	m.ctrlStack = m.ctrlStack[:n-1]

	switch frame.kind {
	case "If":
		m.popIf(frame)
	case "Switch":
		m.popSwitch(frame)
	case "FSM":
		m.popFSM(frame)
	}
}

// popIf lowers an If/Elif/Else chain to a single switch over the
// concatenated branch conditions. The pattern of the k-th branch requires
// its own condition bit and leaves every earlier bit unconstrained, so
// declaration order is priority order.
func (m *Module) popIf(frame *ctrlFrame) {
	if allBodiesEmpty(frame.ifBodies) {
		return
	}
	n := len(frame.ifTests)
	tests := make([]Value, n)
	for i, t := range frame.ifTests {
		tests[i] = boolOf(t)
	}
	cases := make([]SwitchCase, 0, len(frame.ifBodies))
	for i, body := range frame.ifBodies {
		var patterns []string
		if i < n {
			patterns = []string{strings.Repeat("-", n-i-1) + "1" + strings.Repeat("-", i)}
		}
		cases = append(cases, SwitchCase{Patterns: patterns, Body: body})
	}
	m.stmts = append(m.stmts, NewSwitch(NewCat(tests...), cases))
}

func (m *Module) popSwitch(frame *ctrlFrame) {
	empty := true
	for _, c := range frame.swCases {
		if len(c.Body) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return
	}
	m.stmts = append(m.stmts, NewSwitch(frame.swTest, frame.swCases))
}

func (m *Module) popFSM(frame *ctrlFrame) {
	fsm := frame.fsm
	if len(fsm.stateOrder) == 0 {
		return
	}
	fsm.finalize()
	cases := make([]SwitchCase, 0, len(fsm.stateOrder))
	for _, name := range fsm.stateOrder {
		p, err := bitpat.FromUint(uint64(fsm.encoding[name]), fsm.sig.Bits)
		if err != nil {
			panic(syntaxErrorf("FSM state %q: %v", name, err))
		}
		cases = append(cases, SwitchCase{Patterns: []string{p}, Body: fsm.states[name]})
	}
	m.stmts = append(m.stmts, NewSwitch(fsm.sig, cases))
}

func allBodiesEmpty(bodies [][]Statement) bool {
	for _, b := range bodies {
		if len(b) > 0 {
			return false
		}
	}
	return true
}

// Submodule adds a named submodule; an empty name adds it anonymously.
// Anonymous submodules cannot take part in domain disambiguation.
func (m *Module) Submodule(name string, sub Elaboratable) {
	if sub == nil {
		panic(syntaxErrorf("cannot add nil as a submodule"))
	}
	if name == "" {
		m.subAnon = append(m.subAnon, sub)
		m.subOrder = append(m.subOrder, "")
		return
	}
	if _, ok := m.subNamed[name]; ok {
		panic(syntaxErrorf("submodule named %q already exists", name))
	}
	m.subNamed[name] = sub
	m.subOrder = append(m.subOrder, name)
}

// FindSubmodule returns the named submodule.
func (m *Module) FindSubmodule(name string) (Elaboratable, bool) {
	sub, ok := m.subNamed[name]
	return sub, ok
}

// AddDomain adds a clock domain defined by this module.
func (m *Module) AddDomain(cd *ClockDomain) {
	m.domains = append(m.domains, cd)
}

func (m *Module) setGenerated(name string, value interface{}) {
	if _, ok := m.generated[name]; !ok {
		m.genOrder = append(m.genOrder, name)
	}
	m.generated[name] = value
}

// Elaborate closes every open construct and lowers the module into a
// fragment. Samples that were never bound to a domain bind to the default
// domain here.
func (m *Module) Elaborate(platform interface{}) Elaboratable {
	for len(m.ctrlStack) > 0 {
		m.popCtrl()
	}

	frag := NewFragment()
	anon := 0
	for _, name := range m.subOrder {
		var sub Elaboratable
		if name == "" {
			sub = m.subAnon[anon]
			anon++
		} else {
			sub = m.subNamed[name]
		}
		subFrag, err := ResolveFragment(sub, platform)
		if err != nil {
			panic(syntaxErrorf("submodule %q: %v", name, err))
		}
		frag.AddSubfragment(subFrag, name)
	}
	for _, stmt := range m.stmts {
		frag.AddStatements(injectSampleDomain(stmt, DefaultDomain))
	}
	for _, v := range m.drivingOrder {
		frag.AddDriver(v, m.driving[valueKey(v)])
	}
	for _, cd := range m.domains {
		frag.AddDomain(cd)
	}
	for _, name := range m.genOrder {
		frag.SetGenerated(name, m.generated[name])
	}
	return frag
}

// An FSM is the machine being built by Module.FSM: the state register,
// the state name encoding, and the per-state bodies.
type FSM struct {
	name   string
	domain string
	reset  string

	sig      *Signal
	encoding map[string]int
	encOrder []string
	decoding map[uint64]string

	states     map[string][]Statement
	stateOrder []string

	// refs are placeholder constants handed out by Ongoing and Next
	// before the encoding is final; finalize patches them in place so the
	// statements that hold them need not be rewritten.
	refs []fsmRef
}

type fsmRef struct {
	c     *Const
	state string
}

func (f *FSM) encode(name string) int {
	if enc, ok := f.encoding[name]; ok {
		return enc
	}
	enc := len(f.encoding)
	f.encoding[name] = enc
	f.encOrder = append(f.encOrder, name)
	return enc
}

func (f *FSM) ref(name string) *Const {
	f.encode(name)
	c := &Const{Value: 0, Bits: 1}
	f.refs = append(f.refs, fsmRef{c: c, state: name})
	return c
}

// Ongoing returns a value that is true whenever the machine is in the
// named state, registering the state name if it was not seen yet.
func (f *FSM) Ongoing(name string) Value {
	return Eq(f.sig, f.ref(name))
}

// StateSignal returns the state register. Its width, reset value and
// decoder are only final once the FSM construct has closed.
func (f *FSM) StateSignal() *Signal { return f.sig }

// Decoding maps final state encodings back to state names.
func (f *FSM) Decoding() map[uint64]string { return f.decoding }

// finalize fixes the encoding: the reset state takes encoding 0 by
// swapping with whichever state was seen first, the state register is
// sized and given its decoder, and every placeholder constant is patched.
func (f *FSM) finalize() {
	reset := f.reset
	if reset == "" {
		reset = f.stateOrder[0]
	}
	resetEnc, ok := f.encoding[reset]
	if !ok {
		panic(syntaxErrorf("FSM reset state %q is not a state", reset))
	}
	if resetEnc != 0 {
		for name, enc := range f.encoding {
			if enc == 0 {
				f.encoding[name] = resetEnc
				break
			}
		}
		f.encoding[reset] = 0
	}

	f.sig.Bits = bitsFor(uint64(len(f.encoding) - 1))
	f.sig.Reset = 0
	for name, enc := range f.encoding {
		f.decoding[uint64(enc)] = name
	}
	decoding := f.decoding
	f.sig.Decoder = func(n uint64) string {
		if name, ok := decoding[n]; ok {
			return fmt.Sprintf("%s/%d", name, n)
		}
		return fmt.Sprintf("%d", n)
	}

	for _, ref := range f.refs {
		ref.c.Value = uint64(f.encoding[ref.state])
		ref.c.Bits = f.sig.Bits
	}
}
