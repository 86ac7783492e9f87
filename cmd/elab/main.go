// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Command elab builds a small demonstration design, runs the elaboration
// pipeline over it and dumps the result.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/veriq/hdl"
)

// divider pulses tick once every period cycles.
type divider struct {
	period int
	tick   *hdl.Signal
}

func newDivider(period int, tick *hdl.Signal) *divider {
	d := &divider{period: period, tick: tick}
	hdl.Track(d)
	return d
}

func (d *divider) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	ctr := hdl.NewSignalRange("ctr", uint64(d.period))
	m.If(hdl.Eq(ctr, hdl.C(uint64(d.period-1))), func() {
		m.D(hdl.DefaultDomain).Add(hdl.NewAssign(ctr, hdl.C(0)))
		m.D(hdl.Comb).Add(hdl.NewAssign(d.tick, hdl.C(1)))
	})
	m.Else(func() {
		m.D(hdl.DefaultDomain).Add(hdl.NewAssign(ctr, hdl.Add(ctr, hdl.C(1))))
	})
	return m
}

// blinker toggles led on every tick through a two-state machine.
type blinker struct {
	tick hdl.Value
	led  *hdl.Signal
}

func newBlinker(tick hdl.Value, led *hdl.Signal) *blinker {
	b := &blinker{tick: tick, led: led}
	hdl.Track(b)
	return b
}

func (b *blinker) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	m.FSM(hdl.FSMOpts{Name: "blink"}, func(fsm *hdl.FSM) {
		m.State("OFF", func() {
			m.D(hdl.Comb).Add(hdl.NewAssign(b.led, hdl.C(0)))
			m.If(b.tick, func() {
				m.Next("ON")
			})
		})
		m.State("ON", func() {
			m.D(hdl.Comb).Add(hdl.NewAssign(b.led, hdl.C(1)))
			m.If(b.tick, func() {
				m.Next("OFF")
			})
		})
	})
	return m
}

func buildTop(period int) (*hdl.Module, *hdl.Signal) {
	led := hdl.NewSignal("led", 1)
	tick := hdl.NewSignal("tick", 1)

	m := hdl.NewModule()
	m.Submodule("div", newDivider(period, tick))
	m.Submodule("blink", newBlinker(tick, led))
	return m, led
}

func conflictMode(name string) (hdl.ConflictMode, error) {
	switch name {
	case "warn":
		return hdl.ConflictWarn, nil
	case "silent":
		return hdl.ConflictSilent, nil
	case "error":
		return hdl.ConflictError, nil
	}
	return 0, fmt.Errorf("unknown conflict mode %q (want warn, silent or error)", name)
}

func dump(f *hdl.Fragment, name string, depth int) {
	indent := strings.Repeat("  ", depth)
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Printf("%s%s: %d statement(s)\n", indent, name, len(f.Statements()))
	for _, cd := range f.Domains() {
		rst := "reset-less"
		if cd.Rst != nil {
			rst = "rst " + cd.Rst.Name
		}
		fmt.Printf("%s  domain %s: clk %s, %s\n", indent, cd.Name, cd.Clk.Name, rst)
	}
	for _, sig := range f.Ports().Signals() {
		dir, _ := f.Ports().Dir(sig)
		fmt.Printf("%s  port %-2s %s (%d bit)\n", indent, dir, sig.Name, sig.Bits)
	}
	for _, sub := range f.Subfragments() {
		dump(sub.Fragment, sub.Name, depth+1)
	}
}

func run(period int, mode string) error {
	cmode, err := conflictMode(mode)
	if err != nil {
		return err
	}

	top, led := buildTop(period)
	frag, err := hdl.ResolveFragment(top, nil)
	if err != nil {
		return err
	}
	prepared, err := frag.Prepare(hdl.PrepareConfig{
		Ports: []*hdl.Signal{led},
		Mode:  cmode,
	})
	if err != nil {
		return err
	}

	dump(prepared, "top", 0)

	if fsm, err := prepared.FindGenerated("blink", "blink"); err == nil {
		for enc, state := range fsm.(*hdl.FSM).Decoding() {
			fmt.Printf("state %d: %s\n", enc, state)
		}
	}

	if n := hdl.CheckUnused(logrus.StandardLogger()); n > 0 {
		return fmt.Errorf("%d elaboratable(s) created but never used", n)
	}
	return nil
}

func main() {
	var (
		period int
		mode   string
	)
	root := &cobra.Command{
		Use:   "elab",
		Short: "elaborate the demonstration blinker design and dump the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(period, mode)
		},
		SilenceUsage: true,
	}
	root.Flags().IntVar(&period, "period", 8, "divider period in clock cycles")
	root.Flags().StringVar(&mode, "conflict-mode", "warn", "driver conflict handling: warn, silent or error")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
