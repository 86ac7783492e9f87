// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "strings"

// A Parameter is a named compile-time argument of an instance.
type Parameter struct {
	Name  string
	Value interface{}
}

// A NamedPort connects a value to a named port of an instance.
type NamedPort struct {
	Name  string
	Value Value
	Dir   PortDir
}

// An Instance is an opaque foreign primitive: a cell of a given type with
// parameters and named port connections, but no statements of its own.
// Instances pass through elaboration untouched; they are never flattened
// and never recursed into.
type Instance struct {
	Fragment

	Type       string
	Parameters []Parameter
	NamedPorts []NamedPort
}

func (i *Instance) init() {
	i.Fragment.init()
	i.Fragment.inst = i
}

// An InstanceArg is one argument of an instantiation: an attribute ("a"),
// a parameter ("p"), or a port connection ("i", "o", "io").
type InstanceArg struct {
	Kind  string
	Name  string
	Value interface{}
}

// InstAttr returns a synthesis attribute argument.
func InstAttr(name string, value interface{}) InstanceArg {
	return InstanceArg{Kind: "a", Name: name, Value: value}
}

// InstParam returns a parameter argument.
func InstParam(name string, value interface{}) InstanceArg {
	return InstanceArg{Kind: "p", Name: name, Value: value}
}

// InstInput connects value to the named input port.
func InstInput(name string, value Value) InstanceArg {
	return InstanceArg{Kind: "i", Name: name, Value: value}
}

// InstOutput connects value to the named output port.
func InstOutput(name string, value Value) InstanceArg {
	return InstanceArg{Kind: "o", Name: name, Value: value}
}

// InstInOut connects value to the named bidirectional port.
func InstInOut(name string, value Value) InstanceArg {
	return InstanceArg{Kind: "io", Name: name, Value: value}
}

// InstKW parses a prefixed argument name of the form "a_NAME", "p_NAME",
// "i_NAME", "o_NAME" or "io_NAME".
func InstKW(kw string, value interface{}) (InstanceArg, error) {
	sep := strings.IndexByte(kw, '_')
	if sep > 0 {
		kind, name := kw[:sep], kw[sep+1:]
		switch kind {
		case "a", "p", "i", "o", "io":
			return InstanceArg{Kind: kind, Name: name, Value: value}, nil
		}
	}
	return InstanceArg{}, &InstanceArgError{Kind: kw, Name: kw}
}

// NewInstance returns an instance of the given cell type.
func NewInstance(typ string, args ...InstanceArg) (*Instance, error) {
	i := &Instance{Type: typ}
	i.init()
	for _, arg := range args {
		switch arg.Kind {
		case "a":
			i.attrs[arg.Name] = arg.Value
		case "p":
			i.Parameters = append(i.Parameters, Parameter{Name: arg.Name, Value: arg.Value})
		case "i", "o", "io":
			v, ok := arg.Value.(Value)
			if !ok {
				return nil, instanceArgErrorf(arg.Kind, arg.Name,
					"instance port %q must connect to a value, not %T", arg.Name, arg.Value)
			}
			i.NamedPorts = append(i.NamedPorts, NamedPort{Name: arg.Name, Value: v, Dir: PortDir(arg.Kind)})
		default:
			return nil, &InstanceArgError{Kind: arg.Kind, Name: arg.Name}
		}
	}
	return i, nil
}

// Elaborate returns the instance itself; instances are terminal.
func (i *Instance) Elaborate(platform interface{}) Elaboratable { return i }

// Parameter returns the value of the named parameter.
func (i *Instance) Parameter(name string) (interface{}, bool) {
	for _, p := range i.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}
