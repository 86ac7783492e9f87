// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package bitpat implements bit-pattern matching for switch cases.
//
// A pattern is a string over the alphabet {'0', '1', '-'}, most significant
// bit first. '-' matches either bit value.
package bitpat

import (
	"strings"

	"github.com/pkg/errors"
)

// FromUint formats v as a width-wide pattern with no don't-care bits.
// It returns an error if v does not fit in width bits.
func FromUint(v uint64, width int) (string, error) {
	if width < BitsFor(v) {
		return "", errors.Errorf("value %b does not fit in %d bits", v, width)
	}
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = '0' + byte(v&1)
		v >>= 1
	}
	return string(b), nil
}

// Validate checks that p is a well-formed pattern of the given width.
func Validate(p string, width int) error {
	if len(p) != width {
		return errors.Errorf("pattern %q has width %d, expected %d", p, len(p), width)
	}
	if i := strings.IndexFunc(p, func(r rune) bool {
		return r != '0' && r != '1' && r != '-'
	}); i >= 0 {
		return errors.Errorf("pattern %q contains invalid character %q", p, p[i])
	}
	return nil
}

// Matches reports whether the value v matches pattern p. Bits of v above
// the pattern width must be zero for a match.
func Matches(p string, v uint64) bool {
	for i := len(p) - 1; i >= 0; i-- {
		bit := v & 1
		v >>= 1
		switch p[i] {
		case '-':
		case '0':
			if bit != 0 {
				return false
			}
		case '1':
			if bit != 1 {
				return false
			}
		}
	}
	return v == 0
}

// Overlap reports whether some value matches both patterns. Patterns of
// different widths never overlap.
func Overlap(p, q string) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] && p[i] != '-' && q[i] != '-' {
			return false
		}
	}
	return true
}

// BitsFor returns the number of bits needed to represent n.
// BitsFor(0) is 0.
func BitsFor(n uint64) int {
	r := 0
	for n != 0 {
		n >>= 1
		r++
	}
	return r
}
