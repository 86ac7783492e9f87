// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "fmt"

// SyntaxError reports misuse of the module builder or of a statement
// constructor: a control construct used outside of its required enclosing
// context, a malformed case value, or an assignment appended to the wrong
// place. Builder methods panic with a *SyntaxError since these are
// programming errors, not conditions a caller can recover from.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string { return e.Msg }

func syntaxErrorf(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...)}
}

// DomainError reports an unresolvable clock domain condition: two
// subfragments defining the same domain without names to disambiguate by,
// or a reference to a domain that does not exist.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }

func domainErrorf(format string, args ...interface{}) *DomainError {
	return &DomainError{Msg: fmt.Sprintf(format, args...)}
}

// DriverConflictError reports a signal or memory driven from more than one
// place. Within a single module builder this is always fatal. Across the
// fragment hierarchy it is recoverable by flattening unless the caller
// requested ConflictError mode.
type DriverConflictError struct {
	Msg string
}

func (e *DriverConflictError) Error() string { return e.Msg }

func driverConflictf(format string, args ...interface{}) *DriverConflictError {
	return &DriverConflictError{Msg: fmt.Sprintf(format, args...)}
}

// InstanceArgError reports a malformed foreign-primitive instantiation
// argument. Msg, when set, overrides the default bad-kind message.
type InstanceArgError struct {
	Kind string
	Name string
	Msg  string
}

func (e *InstanceArgError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("instance argument kind %q for %q is not one of \"a\", \"p\", \"i\", \"o\" or \"io\"", e.Kind, e.Name)
}

func instanceArgErrorf(kind, name, format string, args ...interface{}) *InstanceArgError {
	return &InstanceArgError{Kind: kind, Name: name, Msg: fmt.Sprintf(format, args...)}
}
