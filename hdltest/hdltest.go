// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdltest provides utility functions for testing designs.
package hdltest

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/veriq/hdl"
)

// Elaborate resolves e into a fragment, failing the test on error.
func Elaborate(t *testing.T, e hdl.Elaboratable, platform interface{}) *hdl.Fragment {
	t.Helper()
	f, err := hdl.ResolveFragment(e, platform)
	require.NoError(t, err)
	return f
}

// Prepare elaborates e with a nil platform and runs the preparation
// pipeline over it, failing the test on error.
func Prepare(t *testing.T, e hdl.Elaboratable, cfg hdl.PrepareConfig) *hdl.Fragment {
	t.Helper()
	if cfg.Logger == nil {
		logger, _ := Logger()
		cfg.Logger = logger
	}
	prepared, err := Elaborate(t, e, nil).Prepare(cfg)
	require.NoError(t, err)
	return prepared
}

// Logger returns a silent logger together with a hook recording every
// entry, for asserting on emitted diagnostics.
func Logger() (*logrus.Logger, *logtest.Hook) {
	return logtest.NewNullLogger()
}

// SingleSwitch requires that the fragment lowered to exactly one Switch
// statement and returns it.
func SingleSwitch(t *testing.T, f *hdl.Fragment) *hdl.Switch {
	t.Helper()
	stmts := f.Statements()
	require.Len(t, stmts, 1)
	sw, ok := stmts[0].(*hdl.Switch)
	require.True(t, ok, "statement is %T, not *hdl.Switch", stmts[0])
	return sw
}

// DomainNames returns the names of the fragment's clock domains in
// definition order.
func DomainNames(f *hdl.Fragment) []string {
	var names []string
	for _, cd := range f.Domains() {
		names = append(names, cd.Name)
	}
	return names
}

// PortDirs returns the fragment's ports as a name-to-direction map.
func PortDirs(f *hdl.Fragment) map[string]hdl.PortDir {
	dirs := make(map[string]hdl.PortDir)
	for _, sig := range f.Ports().Signals() {
		d, _ := f.Ports().Dir(sig)
		dirs[sig.Name] = d
	}
	return dirs
}
