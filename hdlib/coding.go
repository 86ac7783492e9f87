// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdlib

import "github.com/veriq/hdl"

// An Encoder encodes one-hot to binary.
//
// If exactly one bit of I is asserted, N is low and O holds the index of
// that bit. Otherwise N is high and O is 0.
type Encoder struct {
	Width int

	I *hdl.Signal // one-hot input
	O *hdl.Signal // encoded binary
	N *hdl.Signal // invalid: none or multiple input bits asserted
}

// NewEncoder returns a one-hot encoder for the given input width.
func NewEncoder(width int) *Encoder {
	e := &Encoder{
		Width: width,
		I:     hdl.NewSignal("i", width),
		O:     hdl.NewSignalRange("o", uint64(max2(width))),
		N:     hdl.NewSignal("n", 1),
	}
	hdl.Track(e)
	return e
}

func (e *Encoder) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	m.Switch(e.I, func() {
		for j := 0; j < e.Width; j++ {
			j := j
			m.Case(func() {
				m.D(hdl.Comb).Add(hdl.NewAssign(e.O, hdl.C(uint64(j))))
			}, uint64(1)<<uint(j))
		}
		m.Case(func() {
			m.D(hdl.Comb).Add(hdl.NewAssign(e.N, hdl.C(1)))
		})
	})
	return m
}

// A PriorityEncoder encodes requests to binary.
//
// If any bit of I is asserted, N is low and O holds the index of the
// least significant asserted bit. Otherwise N is high and O is 0.
type PriorityEncoder struct {
	Width int

	I *hdl.Signal // input requests
	O *hdl.Signal // encoded binary
	N *hdl.Signal // invalid: no input bits asserted
}

// NewPriorityEncoder returns a priority encoder for the given input
// width.
func NewPriorityEncoder(width int) *PriorityEncoder {
	e := &PriorityEncoder{
		Width: width,
		I:     hdl.NewSignal("i", width),
		O:     hdl.NewSignalRange("o", uint64(max2(width))),
		N:     hdl.NewSignal("n", 1),
	}
	hdl.Track(e)
	return e
}

func (e *PriorityEncoder) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	// Lower bits are written later, so they take priority.
	for j := e.Width - 1; j >= 0; j-- {
		j := j
		m.If(hdl.Bit(e.I, j), func() {
			m.D(hdl.Comb).Add(hdl.NewAssign(e.O, hdl.C(uint64(j))))
		})
	}
	m.D(hdl.Comb).Add(hdl.NewAssign(e.N, hdl.Eq(e.I, hdl.C(0))))
	return m
}

// A Decoder decodes binary to one-hot.
//
// If N is low, exactly the bit of O selected by I is asserted. If N is
// high, O is 0.
type Decoder struct {
	Width int

	I *hdl.Signal // input binary
	O *hdl.Signal // decoded one-hot
	N *hdl.Signal // invalid: no output bits are to be asserted
}

// NewDecoder returns a one-hot decoder for the given output width.
func NewDecoder(width int) *Decoder {
	d := &Decoder{
		Width: width,
		I:     hdl.NewSignalRange("i", uint64(max2(width))),
		O:     hdl.NewSignal("o", width),
		N:     hdl.NewSignal("n", 1),
	}
	hdl.Track(d)
	return d
}

func (d *Decoder) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	m.Switch(d.I, func() {
		for j := 0; j < d.Width; j++ {
			j := j
			m.Case(func() {
				m.D(hdl.Comb).Add(hdl.NewAssign(d.O, hdl.C(uint64(1)<<uint(j))))
			}, uint64(j))
		}
	})
	m.If(d.N, func() {
		m.D(hdl.Comb).Add(hdl.NewAssign(d.O, hdl.C(0)))
	})
	return m
}

// NewPriorityDecoder returns a decoder of binary to a priority request;
// it is identical to a plain Decoder.
func NewPriorityDecoder(width int) *Decoder { return NewDecoder(width) }

// A GrayEncoder encodes natural binary to Gray code.
type GrayEncoder struct {
	Width int

	I *hdl.Signal
	O *hdl.Signal
}

// NewGrayEncoder returns a Gray encoder of the given width.
func NewGrayEncoder(width int) *GrayEncoder {
	e := &GrayEncoder{
		Width: width,
		I:     hdl.NewSignal("i", width),
		O:     hdl.NewSignal("o", width),
	}
	hdl.Track(e)
	return e
}

func (e *GrayEncoder) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	if e.Width == 1 {
		m.D(hdl.Comb).Add(hdl.NewAssign(e.O, e.I))
	} else {
		m.D(hdl.Comb).Add(hdl.NewAssign(e.O, hdl.Xor(e.I, hdl.NewSlice(e.I, 1, e.Width))))
	}
	return m
}

// A GrayDecoder decodes Gray code to natural binary.
type GrayDecoder struct {
	Width int

	I *hdl.Signal
	O *hdl.Signal
}

// NewGrayDecoder returns a Gray decoder of the given width.
func NewGrayDecoder(width int) *GrayDecoder {
	d := &GrayDecoder{
		Width: width,
		I:     hdl.NewSignal("i", width),
		O:     hdl.NewSignal("o", width),
	}
	hdl.Track(d)
	return d
}

func (d *GrayDecoder) Elaborate(platform interface{}) hdl.Elaboratable {
	m := hdl.NewModule()
	m.D(hdl.Comb).Add(hdl.NewAssign(hdl.Bit(d.O, d.Width-1), hdl.Bit(d.I, d.Width-1)))
	for j := d.Width - 2; j >= 0; j-- {
		m.D(hdl.Comb).Add(hdl.NewAssign(hdl.Bit(d.O, j),
			hdl.Xor(hdl.Bit(d.O, j+1), hdl.Bit(d.I, j))))
	}
	return m
}

func max2(width int) int {
	if width < 2 {
		return 2
	}
	return width
}
