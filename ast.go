// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// Shape describes the bit width and signedness of a value.
type Shape struct {
	Bits   int
	Signed bool
}

// A Value is a node in an expression tree: a signal, a constant, or an
// operation over other values. Values know their shape and can enumerate
// the leaf signals they read or write, which drives all def/use analysis
// in the elaboration pipeline.
type Value interface {
	Shape() Shape

	// lhsSignals enumerates the leaf signals written when the value is used
	// as an assignment target. Values that cannot be assigned panic with a
	// *SyntaxError.
	lhsSignals() *SignalSet
	// rhsSignals enumerates the leaf signals read when the value is
	// evaluated.
	rhsSignals() *SignalSet
}

// Width returns the bit width of v.
func Width(v Value) int { return v.Shape().Bits }

// A Signal is a varying value of fixed width. Signal identity is pointer
// identity: two signals constructed with identical parameters are distinct.
type Signal struct {
	Name   string
	Bits   int
	Signed bool

	// Reset is the value the signal assumes under domain reset (when driven
	// synchronously) or when no conditional assignment is taken (when driven
	// combinationally).
	Reset uint64
	// ResetLess excludes the signal from generated reset logic.
	ResetLess bool

	Attrs map[string]interface{}
	// Decoder converts signal values to human-readable strings, e.g. FSM
	// state names.
	Decoder func(uint64) string
}

// NewSignal returns a new bits-wide signal.
func NewSignal(name string, bits int) *Signal {
	if bits < 1 {
		panic(syntaxErrorf("signal %q width must be at least 1, got %d", name, bits))
	}
	return &Signal{Name: name, Bits: bits}
}

// NewSignalRange returns a signal wide enough to hold values 0 to max-1.
func NewSignalRange(name string, max uint64) *Signal {
	bits := 1
	if max > 1 {
		bits = bitsFor(max - 1)
	}
	return &Signal{Name: name, Bits: bits}
}

// NewSignalLike returns a new signal with the same shape as v. If v is
// itself a signal, its reset configuration and attributes are copied too.
func NewSignalLike(v Value, name string) *Signal {
	sh := v.Shape()
	s := &Signal{Name: name, Bits: sh.Bits, Signed: sh.Signed}
	if o, ok := v.(*Signal); ok {
		s.Reset = o.Reset
		s.ResetLess = o.ResetLess
		s.Decoder = o.Decoder
		if o.Attrs != nil {
			s.Attrs = make(map[string]interface{}, len(o.Attrs))
			for k, v := range o.Attrs {
				s.Attrs[k] = v
			}
		}
	}
	return s
}

func (s *Signal) Shape() Shape           { return Shape{Bits: s.Bits, Signed: s.Signed} }
func (s *Signal) lhsSignals() *SignalSet { return NewSignalSet(s) }
func (s *Signal) rhsSignals() *SignalSet { return NewSignalSet(s) }

func (s *Signal) String() string { return "(sig " + s.Name + ")" }

// A Const is a literal value.
type Const struct {
	Value uint64
	Bits  int
}

// NewConst returns a constant of the given width. A width below 1 selects
// the minimal width able to hold the value.
func NewConst(v uint64, bits int) *Const {
	if bits < 1 {
		bits = bitsFor(v)
	}
	return &Const{Value: v, Bits: bits}
}

// C is shorthand for a minimal-width constant.
func C(v uint64) *Const { return NewConst(v, 0) }

func (c *Const) Shape() Shape { return Shape{Bits: c.Bits} }
func (c *Const) lhsSignals() *SignalSet {
	panic(syntaxErrorf("constant %d cannot be used as an assignment target", c.Value))
}
func (c *Const) rhsSignals() *SignalSet { return NewSignalSet() }

// An Operator applies a named operation to one or more operands.
// Binary comparison operators and the boolean reduction "b" have width 1.
type Operator struct {
	Op       string
	Operands []Value
}

func newOp(op string, operands ...Value) *Operator {
	return &Operator{Op: op, Operands: operands}
}

func (o *Operator) Shape() Shape {
	switch o.Op {
	case "b", "==", "!=", "<", "<=", ">", ">=":
		return Shape{Bits: 1}
	case "~", "/", "%", "<<", ">>":
		return o.Operands[0].Shape()
	case "-":
		if len(o.Operands) == 1 {
			return Shape{Bits: o.Operands[0].Shape().Bits + 1, Signed: true}
		}
		return Shape{Bits: maxBits(o.Operands[0], o.Operands[1]) + 1, Signed: true}
	case "+":
		return Shape{Bits: maxBits(o.Operands[0], o.Operands[1]) + 1}
	case "*":
		return Shape{Bits: o.Operands[0].Shape().Bits + o.Operands[1].Shape().Bits}
	case "&", "|", "^":
		return Shape{Bits: maxBits(o.Operands[0], o.Operands[1])}
	case "m":
		return Shape{Bits: maxBits(o.Operands[1], o.Operands[2])}
	}
	panic(syntaxErrorf("unknown operator %q", o.Op))
}

func (o *Operator) lhsSignals() *SignalSet {
	panic(syntaxErrorf("operator %q cannot be used as an assignment target", o.Op))
}

func (o *Operator) rhsSignals() *SignalSet {
	s := NewSignalSet()
	for _, op := range o.Operands {
		s.AddAll(op.rhsSignals())
	}
	return s
}

func maxBits(a, b Value) int {
	na, nb := a.Shape().Bits, b.Shape().Bits
	if na > nb {
		return na
	}
	return nb
}

// Expression combinators.

// Not returns the bitwise complement of v.
func Not(v Value) *Operator { return newOp("~", v) }

// Neg returns the arithmetic negation of v.
func Neg(v Value) *Operator { return newOp("-", v) }

// Bool reduces v to a single bit: 1 if any bit of v is set, else 0.
func Bool(v Value) *Operator { return newOp("b", v) }

func Add(a, b Value) *Operator { return newOp("+", a, b) }
func Sub(a, b Value) *Operator { return newOp("-", a, b) }
func Mul(a, b Value) *Operator { return newOp("*", a, b) }
func Div(a, b Value) *Operator { return newOp("/", a, b) }
func Mod(a, b Value) *Operator { return newOp("%", a, b) }
func And(a, b Value) *Operator { return newOp("&", a, b) }
func Or(a, b Value) *Operator  { return newOp("|", a, b) }
func Xor(a, b Value) *Operator { return newOp("^", a, b) }
func Shl(a, b Value) *Operator { return newOp("<<", a, b) }
func Shr(a, b Value) *Operator { return newOp(">>", a, b) }
func Eq(a, b Value) *Operator  { return newOp("==", a, b) }
func Ne(a, b Value) *Operator  { return newOp("!=", a, b) }
func Lt(a, b Value) *Operator  { return newOp("<", a, b) }
func Le(a, b Value) *Operator  { return newOp("<=", a, b) }
func Gt(a, b Value) *Operator  { return newOp(">", a, b) }
func Ge(a, b Value) *Operator  { return newOp(">=", a, b) }

// Mux returns b if sel is true, else c.
func Mux(sel, b, c Value) *Operator { return newOp("m", boolOf(sel), b, c) }

// Implies returns 0 if premise holds and conclusion does not, 1 otherwise.
func Implies(premise, conclusion Value) *Operator {
	return Or(Not(boolOf(premise)), boolOf(conclusion))
}

// boolOf reduces v to one bit unless it already is one bit wide.
func boolOf(v Value) Value {
	if v.Shape().Bits == 1 {
		return v
	}
	return Bool(v)
}

// A Slice selects the bit range [Start, End) of a value. It is assignable
// if the underlying value is.
type Slice struct {
	Value Value
	Start int
	End   int
}

// NewSlice returns the [start, end) bit range of v.
func NewSlice(v Value, start, end int) *Slice {
	n := v.Shape().Bits
	if start < 0 || start > n {
		panic(syntaxErrorf("cannot start slice %d bits into %d-bit value", start, n))
	}
	if end < start || end > n {
		panic(syntaxErrorf("cannot end slice %d bits into %d-bit value", end, n))
	}
	return &Slice{Value: v, Start: start, End: end}
}

// Bit returns bit i of v.
func Bit(v Value, i int) *Slice { return NewSlice(v, i, i+1) }

func (s *Slice) Shape() Shape           { return Shape{Bits: s.End - s.Start} }
func (s *Slice) lhsSignals() *SignalSet { return s.Value.lhsSignals() }
func (s *Slice) rhsSignals() *SignalSet { return s.Value.rhsSignals() }

// A Part selects a constant-width but variable-offset range of a value.
type Part struct {
	Value  Value
	Offset Value
	Width  int
}

// NewPart returns the width-wide range of v starting at the value of offset.
func NewPart(v, offset Value, width int) *Part {
	if width < 0 {
		panic(syntaxErrorf("part width must be non-negative, got %d", width))
	}
	return &Part{Value: v, Offset: offset, Width: width}
}

func (p *Part) Shape() Shape           { return Shape{Bits: p.Width} }
func (p *Part) lhsSignals() *SignalSet { return p.Value.lhsSignals() }
func (p *Part) rhsSignals() *SignalSet {
	return p.Value.rhsSignals().Union(p.Offset.rhsSignals())
}

// A Cat concatenates values, first part in the least significant bits.
// It is assignable if all of its parts are.
type Cat struct {
	Parts []Value
}

// NewCat concatenates the given values.
func NewCat(parts ...Value) *Cat { return &Cat{Parts: parts} }

func (c *Cat) Shape() Shape {
	n := 0
	for _, p := range c.Parts {
		n += p.Shape().Bits
	}
	return Shape{Bits: n}
}

func (c *Cat) lhsSignals() *SignalSet {
	s := NewSignalSet()
	for _, p := range c.Parts {
		s.AddAll(p.lhsSignals())
	}
	return s
}

func (c *Cat) rhsSignals() *SignalSet {
	s := NewSignalSet()
	for _, p := range c.Parts {
		s.AddAll(p.rhsSignals())
	}
	return s
}

// A Repl repeats a value Count times.
type Repl struct {
	Value Value
	Count int
}

// NewRepl replicates v count times.
func NewRepl(v Value, count int) *Repl {
	if count < 0 {
		panic(syntaxErrorf("replication count must be non-negative, got %d", count))
	}
	return &Repl{Value: v, Count: count}
}

func (r *Repl) Shape() Shape { return Shape{Bits: r.Value.Shape().Bits * r.Count} }
func (r *Repl) lhsSignals() *SignalSet {
	panic(syntaxErrorf("replication cannot be used as an assignment target"))
}
func (r *Repl) rhsSignals() *SignalSet { return r.Value.rhsSignals() }

// A ClockSignal is a domain-relative reference to the clock of a named
// clock domain. It is lowered to the domain's concrete clock signal during
// elaboration; two references to the same domain are interchangeable.
type ClockSignal struct {
	Domain string
}

// NewClockSignal returns a reference to the clock of the named domain.
func NewClockSignal(domain string) *ClockSignal {
	if domain == "" || domain == Comb {
		panic(syntaxErrorf("clock domain name must name a synchronous domain, got %q", domain))
	}
	return &ClockSignal{Domain: domain}
}

func (c *ClockSignal) String() string         { return "(clk " + c.Domain + ")" }
func (c *ClockSignal) Shape() Shape           { return Shape{Bits: 1} }
func (c *ClockSignal) lhsSignals() *SignalSet { return NewSignalSet(c) }
func (c *ClockSignal) rhsSignals() *SignalSet {
	panic(syntaxErrorf("clock of domain %q must be lowered to a concrete signal first", c.Domain))
}

// A ResetSignal is a domain-relative reference to the reset of a named
// clock domain, lowered like ClockSignal.
type ResetSignal struct {
	Domain string
	// AllowResetLess turns references to the reset of a reset-less domain
	// into a constant 0 instead of an error.
	AllowResetLess bool
}

// NewResetSignal returns a reference to the reset of the named domain.
func NewResetSignal(domain string, allowResetLess bool) *ResetSignal {
	if domain == "" || domain == Comb {
		panic(syntaxErrorf("reset domain name must name a synchronous domain, got %q", domain))
	}
	return &ResetSignal{Domain: domain, AllowResetLess: allowResetLess}
}

func (r *ResetSignal) String() string         { return "(rst " + r.Domain + ")" }
func (r *ResetSignal) Shape() Shape           { return Shape{Bits: 1} }
func (r *ResetSignal) lhsSignals() *SignalSet { return NewSignalSet(r) }
func (r *ResetSignal) rhsSignals() *SignalSet {
	panic(syntaxErrorf("reset of domain %q must be lowered to a concrete signal first", r.Domain))
}

// A Sample is the value of an expression a number of clock edges of a
// domain in the past. A Sample with an empty Domain is bound to the domain
// of its enclosing statement when the statement is added to a module, and
// defaults to "sync". Samples are lowered to register chains as the first
// elaboration stage.
type Sample struct {
	Value  Value
	Clocks int
	Domain string
}

// NewSample samples v the given number of clock edges in the past.
// v must be a signal, a constant, or a clock/reset reference.
func NewSample(v Value, clocks int, domain string) *Sample {
	switch v.(type) {
	case *Signal, *Const, *ClockSignal, *ResetSignal:
	default:
		panic(syntaxErrorf("only signals, constants and clock/reset references may be sampled"))
	}
	if clocks < 0 {
		panic(syntaxErrorf("cannot sample %d cycles in the future", -clocks))
	}
	return &Sample{Value: v, Clocks: clocks, Domain: domain}
}

func (s *Sample) Shape() Shape { return s.Value.Shape() }
func (s *Sample) lhsSignals() *SignalSet {
	panic(syntaxErrorf("sampled value cannot be used as an assignment target"))
}
func (s *Sample) rhsSignals() *SignalSet { return NewSignalSet(s) }

// Past returns the value of v one clock edge ago.
func Past(v Value) *Sample { return NewSample(v, 1, "") }

// Stable is true if v did not change on the last clock edge.
func Stable(v Value) *Operator { return Eq(NewSample(v, 1, ""), NewSample(v, 0, "")) }

// Rose is true if v went from low to high on the last clock edge.
func Rose(v Value) *Operator {
	return And(Not(NewSample(v, 1, "")), NewSample(v, 0, ""))
}

// Fell is true if v went from high to low on the last clock edge.
func Fell(v Value) *Operator {
	return And(NewSample(v, 1, ""), Not(NewSample(v, 0, "")))
}

// bitsFor returns the number of bits needed to represent n; at least 1.
func bitsFor(n uint64) int {
	r := 1
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}
