// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// An Elaboratable is a design unit that can be turned into a fragment.
// Elaborate returns either a *Fragment (or *Instance) directly, or another
// Elaboratable to elaborate in turn; ResolveFragment follows the chain.
type Elaboratable interface {
	Elaborate(platform interface{}) Elaboratable
}

// maxElaborateDepth bounds the Elaborate chain so that an implementation
// returning itself is diagnosed instead of looping forever.
const maxElaborateDepth = 1000

// ResolveFragment repeatedly elaborates obj until a fragment is produced.
// Every elaboratable visited along the way is marked as used.
func ResolveFragment(obj Elaboratable, platform interface{}) (*Fragment, error) {
	for i := 0; i < maxElaborateDepth; i++ {
		switch v := obj.(type) {
		case nil:
			return nil, errors.New("cannot elaborate nil; possible root cause: Elaborate does not return a module")
		case *Fragment:
			return v, nil
		case *Instance:
			return &v.Fragment, nil
		}
		markUsed(obj)
		obj = obj.Elaborate(platform)
	}
	return nil, errors.Errorf("elaboration of %T did not produce a fragment after %d steps", obj, maxElaborateDepth)
}

// A Subfragment is a child fragment together with its hierarchical name.
// An empty name marks an anonymous subfragment.
type Subfragment struct {
	Fragment *Fragment
	Name     string
}

// A Fragment is the flattenable unit of a design: statements, the domains
// they drive, and child fragments. Fragments are produced by elaboration
// and consumed by Prepare, which resolves domains, drivers and ports
// across the whole tree.
type Fragment struct {
	// Flatten requests that the fragment is merged into its parent during
	// driver conflict resolution even without a conflict.
	Flatten bool

	ports       *PortMap
	drivers     *driverMap
	stmts       []Statement
	domains     map[string]*ClockDomain
	domainOrder []string
	subs        []Subfragment
	attrs       map[string]interface{}
	generated   map[string]interface{}

	// inst is the backlink to the owning Instance, nil for ordinary
	// fragments. Instances are opaque: never flattened, never recursed
	// into.
	inst *Instance
}

// NewFragment returns an empty fragment.
func NewFragment() *Fragment {
	f := &Fragment{}
	f.init()
	return f
}

func (f *Fragment) init() {
	f.ports = newPortMap()
	f.drivers = newDriverMap()
	f.domains = make(map[string]*ClockDomain)
	f.attrs = make(map[string]interface{})
	f.generated = make(map[string]interface{})
}

// Elaborate returns the fragment itself; fragments are terminal.
func (f *Fragment) Elaborate(platform interface{}) Elaboratable { return f }

// AddPort adds sig as a port with the given direction, replacing the
// direction if sig is already a port.
func (f *Fragment) AddPort(sig *Signal, dir PortDir) {
	switch dir {
	case DirInput, DirOutput, DirInout:
	default:
		panic(syntaxErrorf("port direction %q is not one of %q, %q or %q", dir, DirInput, DirOutput, DirInout))
	}
	f.ports.Add(sig, dir)
}

// Ports returns the fragment's port map.
func (f *Fragment) Ports() *PortMap { return f.ports }

// AddDriver records that the fragment drives v in the given domain. An
// empty domain stands for the combinational pseudo-domain.
func (f *Fragment) AddDriver(v Value, domain string) {
	if domain == "" {
		domain = Comb
	}
	f.drivers.add(v, domain)
}

// DrivenSignals returns the set of values driven in the given domain.
func (f *Fragment) DrivenSignals(domain string) *SignalSet {
	return f.drivers.signals(domain)
}

// DriverDomains returns the domains with at least one driven value, in
// first-driver order.
func (f *Fragment) DriverDomains() []string { return f.drivers.domains() }

// AddStatements appends statements to the fragment.
func (f *Fragment) AddStatements(stmts ...Statement) {
	f.stmts = append(f.stmts, stmts...)
}

// Statements returns the fragment's statements in order. The returned
// slice must not be modified.
func (f *Fragment) Statements() []Statement { return f.stmts }

// AddDomain adds a clock domain defined by this fragment. Defining the
// same domain name twice panics with a *DomainError.
func (f *Fragment) AddDomain(cd *ClockDomain) {
	if _, ok := f.domains[cd.Name]; ok {
		panic(domainErrorf("domain %q is already defined", cd.Name))
	}
	f.addDomain(cd)
}

func (f *Fragment) addDomain(cd *ClockDomain) {
	if _, ok := f.domains[cd.Name]; !ok {
		f.domainOrder = append(f.domainOrder, cd.Name)
	}
	f.domains[cd.Name] = cd
}

// Domain returns the clock domain visible under the given name.
func (f *Fragment) Domain(name string) (*ClockDomain, bool) {
	cd, ok := f.domains[name]
	return cd, ok
}

// Domains returns the fragment's clock domains in definition order.
func (f *Fragment) Domains() []*ClockDomain {
	cds := make([]*ClockDomain, 0, len(f.domainOrder))
	for _, name := range f.domainOrder {
		cds = append(cds, f.domains[name])
	}
	return cds
}

// AddSubfragment appends a child fragment. An empty name leaves the
// subfragment anonymous; anonymous subfragments cannot take part in
// domain renaming.
func (f *Fragment) AddSubfragment(sub *Fragment, name string) {
	f.subs = append(f.subs, Subfragment{Fragment: sub, Name: name})
}

// Subfragments returns the child fragments in order. The returned slice
// must not be modified.
func (f *Fragment) Subfragments() []Subfragment { return f.subs }

// FindSubfragment returns the child fragment with the given name.
func (f *Fragment) FindSubfragment(name string) (*Fragment, error) {
	for _, sub := range f.subs {
		if sub.Name == name {
			return sub.Fragment, nil
		}
	}
	return nil, errors.Errorf("no subfragment with name %q", name)
}

// SetGenerated records a named artifact of elaboration, retrievable later
// through FindGenerated.
func (f *Fragment) SetGenerated(name string, value interface{}) {
	f.generated[name] = value
}

// FindGenerated descends named subfragments along path and returns the
// artifact recorded under the final path element.
func (f *Fragment) FindGenerated(path ...string) (interface{}, error) {
	if len(path) == 0 {
		return nil, errors.New("empty generated artifact path")
	}
	if len(path) > 1 {
		sub, err := f.FindSubfragment(path[0])
		if err != nil {
			return nil, err
		}
		return sub.FindGenerated(path[1:]...)
	}
	v, ok := f.generated[path[0]]
	if !ok {
		return nil, errors.Errorf("no generated artifact %q", path[0])
	}
	return v, nil
}

// SetAttr sets a synthesis attribute on the fragment.
func (f *Fragment) SetAttr(name string, value interface{}) {
	f.attrs[name] = value
}

// ConflictMode selects how hierarchy driver conflicts are handled.
type ConflictMode int

const (
	// ConflictWarn logs each conflict and flattens the hierarchy around it.
	ConflictWarn ConflictMode = iota
	// ConflictSilent flattens without logging.
	ConflictSilent
	// ConflictError fails preparation on the first conflict.
	ConflictError
)

// PrepareConfig adjusts fragment preparation.
type PrepareConfig struct {
	// Ports lists the signals to expose at the root. A nil slice makes
	// every signal that is used but never defined a root port; an empty
	// non-nil slice exposes only synthesized domain signals.
	Ports []*Signal

	// Mode selects driver conflict handling; the zero value warns and
	// flattens.
	Mode ConflictMode

	// NoDefaultDomain suppresses synthesis of the default "sync" domain
	// when the design defines no domain of its own.
	NoDefaultDomain bool

	// Logger receives driver conflict warnings. Defaults to the standard
	// logrus logger.
	Logger logrus.FieldLogger
}

// Prepare resolves the fragment tree into a form ready for a backend:
// sampled values are lowered to register chains, clock domains are
// propagated through the hierarchy, driver conflicts are resolved by
// flattening, resets are inserted, domain-relative clock/reset references
// are replaced by concrete signals, and ports are inferred bottom-up.
//
// The receiver's structure is not modified. ClockDomain objects are
// shared with the result, and domain collisions rename them in place,
// which is visible through the original tree.
func (f *Fragment) Prepare(cfg PrepareConfig) (*Fragment, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	frag := lowerSamples(f)

	newDomains, err := frag.propagateDomains(!cfg.NoDefaultDomain)
	if err != nil {
		return nil, err
	}
	if _, _, err := frag.resolveHierarchyConflicts(hierRoot, cfg.Mode, logger); err != nil {
		return nil, err
	}

	resets := make(map[string]Value)
	for _, cd := range frag.Domains() {
		if cd.Rst != nil {
			resets[cd.Name] = cd.Rst
		}
	}
	frag = InsertResets(frag, resets)

	frag, err = lowerDomainSignals(frag, frag.domains)
	if err != nil {
		return nil, err
	}

	if cfg.Ports == nil {
		err = frag.propagatePorts(nil, true)
	} else {
		ports := append([]*Signal(nil), cfg.Ports...)
		for _, cd := range newDomains {
			ports = append(ports, cd.Clk)
			if cd.Rst != nil {
				ports = append(ports, cd.Rst)
			}
		}
		err = frag.propagatePorts(ports, false)
	}
	if err != nil {
		return nil, err
	}
	return frag, nil
}

var hierRoot = []string{"top"}

func subfragName(sub Subfragment, index int) string {
	if sub.Name == "" {
		return fmt.Sprintf("<unnamed #%d>", index)
	}
	return sub.Name
}

// propagateDomains moves every non-local domain definition to the root,
// renaming on collision, and then shares the root's domains with the
// whole tree. When the design defines no domain at all and defaultSync is
// set, a fresh default domain is synthesized; the synthesized domains are
// returned so their signals can be exposed as ports.
func (f *Fragment) propagateDomains(defaultSync bool) ([]*ClockDomain, error) {
	if err := f.propagateDomainsUp(hierRoot); err != nil {
		return nil, err
	}
	var newDomains []*ClockDomain
	if defaultSync && len(f.domains) == 0 {
		cd := NewClockDomain(DefaultDomain)
		f.addDomain(cd)
		newDomains = append(newDomains, cd)
	}
	if err := f.propagateDomainsDown(); err != nil {
		return nil, err
	}
	return newDomains, nil
}

func (f *Fragment) propagateDomainsUp(hierarchy []string) error {
	type contributor struct {
		index int
		name  string // "" for anonymous
	}
	contribs := make(map[string][]contributor)
	var domainOrder []string

	for i := range f.subs {
		sub := f.subs[i]
		subHier := append(append([]string(nil), hierarchy...), subfragName(sub, i))
		if err := sub.Fragment.propagateDomainsUp(subHier); err != nil {
			return err
		}
		for _, cd := range sub.Fragment.Domains() {
			if cd.Local {
				continue
			}
			if _, ok := contribs[cd.Name]; !ok {
				domainOrder = append(domainOrder, cd.Name)
			}
			contribs[cd.Name] = append(contribs[cd.Name], contributor{index: i, name: sub.Name})
		}
	}

	// Rename domains defined by more than one subfragment so they no
	// longer collide; the subfragment names disambiguate.
	for _, domain := range domainOrder {
		cs := contribs[domain]
		if len(cs) == 1 {
			continue
		}
		names := make([]string, 0, len(cs))
		seen := make(map[string]bool)
		for _, c := range cs {
			if c.name == "" {
				return domainErrorf(
					"domain %q is defined by multiple subfragments of %q, some of them anonymous; rename the subfragment domains explicitly or give the subfragments names",
					domain, strings.Join(hierarchy, "."))
			}
			if seen[c.name] {
				return domainErrorf(
					"domain %q is defined by multiple subfragments of %q with identical names; rename the subfragment domains explicitly or give the subfragments distinct names",
					domain, strings.Join(hierarchy, "."))
			}
			seen[c.name] = true
			names = append(names, c.name)
		}
		for _, c := range cs {
			f.subs[c.index].Fragment = RenameDomains(f.subs[c.index].Fragment,
				map[string]string{domain: c.name + "_" + domain})
		}
	}

	// Collect the now unique subfragment domains into this fragment.
	for i := range f.subs {
		for _, cd := range f.subs[i].Fragment.Domains() {
			if cd.Local {
				continue
			}
			if existing, ok := f.domains[cd.Name]; ok {
				if existing != cd {
					return domainErrorf("domain %q is defined in %q and again in one of its subfragments",
						cd.Name, strings.Join(hierarchy, "."))
				}
				continue
			}
			f.addDomain(cd)
		}
	}
	return nil
}

func (f *Fragment) propagateDomainsDown() error {
	for i := range f.subs {
		sub := f.subs[i].Fragment
		for _, cd := range f.Domains() {
			if existing, ok := sub.domains[cd.Name]; ok {
				if existing != cd {
					return domainErrorf("domain %q was not propagated consistently", cd.Name)
				}
				continue
			}
			sub.addDomain(cd)
		}
		if err := sub.propagateDomainsDown(); err != nil {
			return err
		}
	}
	return nil
}

// mergeSubfragment inlines sub into f, keeping sub's own children as
// children of f. Domains are already shared tree-wide when this runs.
func (f *Fragment) mergeSubfragment(sub *Fragment) {
	for _, sig := range sub.ports.Signals() {
		dir, _ := sub.ports.Dir(sig)
		f.ports.Add(sig, dir)
	}
	for _, domain := range sub.drivers.domains() {
		for _, v := range sub.drivers.signals(domain).All() {
			f.drivers.add(v, domain)
		}
	}
	f.stmts = append(f.stmts, sub.stmts...)
	f.subs = append(f.subs, sub.subs...)

	for i := range f.subs {
		if f.subs[i].Fragment == sub {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
	panic(syntaxErrorf("merged fragment is not a subfragment"))
}

// hierEntry identifies a driver of a signal or user of a memory: a
// subfragment, or the current fragment itself when frag is nil.
type hierEntry struct {
	frag *Fragment
	path string
}

func addHierEntry(entries []hierEntry, e hierEntry) []hierEntry {
	for _, have := range entries {
		if have.frag == e.frag && have.path == e.path {
			return entries
		}
	}
	return append(entries, e)
}

// resolveHierarchyConflicts detects signals driven, and memories accessed,
// from more than one fragment, and resolves each conflict by flattening
// the offending subtrees into f. Flattening can surface new conflicts
// between previously unrelated branches, so the pass repeats until a
// fixed point. Returns the set of values driven, and memories used,
// anywhere in the subtree.
func (f *Fragment) resolveHierarchyConflicts(hierarchy []string, mode ConflictMode, logger logrus.FieldLogger) (*SignalSet, *memorySet, error) {
	driverEntries := make(map[interface{}][]hierEntry)
	driverOrder := NewSignalSet()
	memoryEntries := make(map[*Memory][]hierEntry)
	memoryOrder := newMemorySet()

	here := strings.Join(hierarchy, ".")
	addDriver := func(v Value, e hierEntry) {
		driverOrder.Add(v)
		k := valueKey(v)
		driverEntries[k] = addHierEntry(driverEntries[k], e)
	}
	addMemory := func(m *Memory, e hierEntry) {
		memoryOrder.add(m)
		memoryEntries[m] = addHierEntry(memoryEntries[m], e)
	}

	for _, domain := range f.drivers.domains() {
		for _, v := range f.drivers.signals(domain).All() {
			addDriver(v, hierEntry{frag: nil, path: here})
		}
	}

	var toFlatten []hierEntry
	for i := range f.subs {
		sub := f.subs[i]
		subHier := append(append([]string(nil), hierarchy...), subfragName(sub, i))
		subPath := strings.Join(subHier, ".")

		if sub.Fragment.Flatten {
			toFlatten = addHierEntry(toFlatten, hierEntry{frag: sub.Fragment, path: subPath})
		}

		if inst := sub.Fragment.inst; inst != nil {
			// Memory ports are subfragments, but the memory itself belongs
			// to the enclosing fragment; record the access here. Instances
			// are never flattened or recursed into.
			if inst.Type == "$memrd" || inst.Type == "$memwr" {
				if p, ok := inst.Parameter("MEMID"); ok {
					if mem, ok := p.(*Memory); ok {
						addMemory(mem, hierEntry{frag: nil, path: here})
					}
				}
			}
			continue
		}

		subDrivers, subMemories, err := sub.Fragment.resolveHierarchyConflicts(subHier, mode, logger)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range subDrivers.All() {
			addDriver(v, hierEntry{frag: sub.Fragment, path: subPath})
		}
		for _, m := range subMemories.all() {
			addMemory(m, hierEntry{frag: sub.Fragment, path: subPath})
		}
	}

	// A signal or memory with a single contributing fragment is fine;
	// anything else forces every contributing subfragment to be flattened.
	conflicting := func(entries []hierEntry) []string {
		if len(entries) < 2 {
			return nil
		}
		paths := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.frag != nil {
				toFlatten = addHierEntry(toFlatten, e)
			}
			paths = append(paths, e.path)
		}
		sort.Strings(paths)
		return paths
	}

	for _, v := range driverOrder.All() {
		paths := conflicting(driverEntries[valueKey(v)])
		if paths == nil {
			continue
		}
		msg := fmt.Sprintf("signal %v is driven from multiple fragments: %s", v, strings.Join(paths, ", "))
		switch mode {
		case ConflictError:
			return nil, nil, driverConflictf("%s", msg)
		case ConflictWarn:
			logger.Warnf("%s; hierarchy will be flattened", msg)
		}
	}
	for _, m := range memoryOrder.all() {
		paths := conflicting(memoryEntries[m])
		if paths == nil {
			continue
		}
		msg := fmt.Sprintf("memory %q is accessed from multiple fragments: %s", m.Name, strings.Join(paths, ", "))
		switch mode {
		case ConflictError:
			return nil, nil, driverConflictf("%s", msg)
		case ConflictWarn:
			logger.Warnf("%s; hierarchy will be flattened", msg)
		}
	}

	if len(toFlatten) > 0 {
		sort.Slice(toFlatten, func(i, j int) bool { return toFlatten[i].path < toFlatten[j].path })
		for _, e := range toFlatten {
			f.mergeSubfragment(e.frag)
		}
		// Flattening two branches into f can introduce a conflict between
		// the merged logic and a branch that was clean before; iterate
		// until nothing changes.
		return f.resolveHierarchyConflicts(hierarchy, mode, logger)
	}
	return driverOrder, memoryOrder, nil
}

// sigUses is an ordered mapping of signal to the fragments reading it.
type sigUses struct {
	order []*Signal
	m     map[*Signal]*fragSet
}

func (u *sigUses) at(sig *Signal) *fragSet {
	fs, ok := u.m[sig]
	if !ok {
		fs = newFragSet()
		u.m[sig] = fs
		u.order = append(u.order, sig)
	}
	return fs
}

// sigOwner is an ordered mapping of signal to the single fragment that
// defines (or owns the pad of) the signal.
type sigOwner struct {
	order []*Signal
	m     map[*Signal]*Fragment
}

func (o *sigOwner) set(sig *Signal, f *Fragment, what string) error {
	if have, ok := o.m[sig]; ok {
		if have != f {
			return driverConflictf("signal %v is %s in multiple fragments", sig, what)
		}
		return nil
	}
	o.m[sig] = f
	o.order = append(o.order, sig)
	return nil
}

func asSignal(v Value) *Signal {
	sig, ok := v.(*Signal)
	if !ok {
		panic(syntaxErrorf("value %v was not lowered before port propagation", v))
	}
	return sig
}

// buildUseDefGraph walks the tree recording, per signal, the fragments
// reading it and the unique fragment writing it, along with parent links
// and depths for the ancestor search in propagatePorts.
func (f *Fragment) buildUseDefGraph(parent map[*Fragment]*Fragment, level map[*Fragment]int, uses *sigUses, defs, ios *sigOwner) error {
	addUses := func(set *SignalSet) {
		for _, v := range set.All() {
			uses.at(asSignal(v)).add(f)
		}
	}
	addDefs := func(set *SignalSet) error {
		for _, v := range set.All() {
			if err := defs.set(asSignal(v), f, "defined"); err != nil {
				return err
			}
		}
		return nil
	}
	addIOs := func(set *SignalSet) error {
		for _, v := range set.All() {
			if err := ios.set(asSignal(v), f, "used as a pad"); err != nil {
				return err
			}
		}
		return nil
	}

	for _, stmt := range f.stmts {
		addUses(stmt.rhsSignals())
		if err := addDefs(stmt.lhsSignals()); err != nil {
			return err
		}
	}

	// Synchronous drivers implicitly read their domain's clock and reset.
	for _, domain := range f.drivers.domains() {
		if domain == Comb || f.drivers.signals(domain).Len() == 0 {
			continue
		}
		cd, ok := f.domains[domain]
		if !ok {
			return domainErrorf("signals are driven in nonexistent domain %q", domain)
		}
		addUses(NewSignalSet(cd.Clk))
		if cd.Rst != nil {
			addUses(NewSignalSet(cd.Rst))
		}
	}

	for i := range f.subs {
		sub := f.subs[i].Fragment
		if inst := sub.inst; inst != nil {
			// The instance's connections are its ports; the signals feeding
			// an input are read here, the signals wired to an output are
			// defined here.
			for _, np := range inst.NamedPorts {
				switch np.Dir {
				case DirInput:
					for _, v := range np.Value.rhsSignals().All() {
						sub.ports.Add(asSignal(v), DirInput)
					}
					addUses(np.Value.rhsSignals())
				case DirOutput:
					for _, v := range np.Value.lhsSignals().All() {
						sub.ports.Add(asSignal(v), DirOutput)
					}
					if err := addDefs(np.Value.lhsSignals()); err != nil {
						return err
					}
				case DirInout:
					for _, v := range np.Value.lhsSignals().All() {
						sub.ports.Add(asSignal(v), DirInout)
					}
					if err := addIOs(np.Value.lhsSignals()); err != nil {
						return err
					}
				}
			}
			continue
		}
		parent[sub] = f
		level[sub] = level[f] + 1
		if err := sub.buildUseDefGraph(parent, level, uses, defs, ios); err != nil {
			return err
		}
	}
	return nil
}

// propagatePorts infers the port list of every fragment in the tree. For
// each signal the least common ancestor of its writer and readers becomes
// the meeting point: input ports are added on the way up from each
// reader, output ports on the way up from the writer. Inout signals
// surface through every level up to the root.
func (f *Fragment) propagatePorts(ports []*Signal, allUndefAsPorts bool) error {
	parent := map[*Fragment]*Fragment{f: nil}
	level := map[*Fragment]int{f: 0}
	uses := &sigUses{m: make(map[*Signal]*fragSet)}
	defs := &sigOwner{m: make(map[*Signal]*Fragment)}
	ios := &sigOwner{m: make(map[*Signal]*Fragment)}
	if err := f.buildUseDefGraph(parent, level, uses, defs, ios); err != nil {
		return err
	}

	rootPorts := append([]*Signal(nil), ports...)
	if allUndefAsPorts {
		for _, sig := range uses.order {
			if _, ok := defs.m[sig]; ok {
				continue
			}
			rootPorts = append(rootPorts, sig)
		}
	}
	// The root itself counts as a user of every explicit port, so that a
	// port driven by the outside world reaches down to its readers.
	for _, sig := range rootPorts {
		uses.at(sig).add(f)
	}

	type lcaKey struct{ u, v *Fragment }
	lcaCache := make(map[lcaKey]*Fragment)
	var lcaOf func(u, v *Fragment) *Fragment
	lcaOf = func(u, v *Fragment) *Fragment {
		key := lcaKey{u, v}
		if r, ok := lcaCache[key]; ok {
			return r
		}
		fu, fv := u, v
		if level[fu] < level[fv] {
			fu, fv = fv, fu
		}
		for i := level[fu] - level[fv]; i > 0; i-- {
			fu = parent[fu]
		}
		if fu != fv {
			for parent[fu] != parent[fv] {
				fu = parent[fu]
				fv = parent[fv]
			}
			fu = parent[fu]
		}
		lcaCache[key] = fu
		return fu
	}

	for _, sig := range uses.order {
		def, hasDef := defs.m[sig]
		var lca *Fragment
		if hasDef {
			lca = def
		}
		for _, u := range uses.m[sig].elems {
			if lca == nil {
				lca = u
				continue
			}
			lca = lcaOf(lca, u)
		}

		for _, u := range uses.m[sig].elems {
			if hasDef && u == def {
				continue
			}
			for frag := u; frag != lca; frag = parent[frag] {
				frag.ports.Add(sig, DirInput)
			}
		}
		if hasDef {
			for frag := def; frag != lca; frag = parent[frag] {
				frag.ports.Add(sig, DirOutput)
			}
		}
	}

	for _, sig := range ios.order {
		for frag := ios.m[sig]; frag != nil; frag = parent[frag] {
			frag.ports.Add(sig, DirInout)
		}
	}

	for _, sig := range rootPorts {
		if _, ok := ios.m[sig]; ok {
			continue
		}
		if _, ok := defs.m[sig]; ok {
			f.ports.Add(sig, DirOutput)
		} else {
			f.ports.Add(sig, DirInput)
		}
	}
	return nil
}
