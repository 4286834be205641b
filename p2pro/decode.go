// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package p2pro

import (
	"encoding/binary"
)

// Calibration holds the raw-to-temperature transfer function for one camera
// session. It is loaded once at session start and never mutated; swapping
// calibration means constructing a new value.
//
// The transfer is linear: °C = Gain*count + Offset. The P2 Pro encodes
// Kelvin*64, so the defaults are Gain=1/64 and Offset=-273.15.
type Calibration struct {
	Gain   float64
	Offset float64
	// Emissivity is the assumed surface emissivity. The sensor applies it
	// internally; it is carried here so captures can record it.
	Emissivity float64
	// SanityMinC and SanityMaxC bound physically plausible readings. A
	// decoded pixel outside the band fails the whole frame.
	SanityMinC float64
	SanityMaxC float64
}

// DefaultCalibration returns the P2 Pro factory transfer function with the
// documented -40°C to 550°C measurement band.
func DefaultCalibration() Calibration {
	return Calibration{
		Gain:       1.0 / 64.0,
		Offset:     -273.15,
		Emissivity: 0.95,
		SanityMinC: -40,
		SanityMaxC: 550,
	}
}

// Convert applies the transfer function to a single raw count.
func (c Calibration) Convert(count uint16) float64 {
	return c.Gain*float64(count) + c.Offset
}

// Decode converts one raw frame into a temperature field under g and c.
//
// The length is validated up front; a mismatched buffer fails with
// MalformedFrameError before any pixel is converted. Min, max, mean and the
// center spot are reduced in the same pass as the conversion. The band check
// is written so a NaN gain or offset also fails the frame instead of
// propagating non-finite pixels.
func Decode(raw *RawFrame, g Geometry, c Calibration) (*Frame, error) {
	want := g.FrameBytes()
	if len(raw.Pix) != want {
		return nil, &MalformedFrameError{Got: len(raw.Pix), Want: want}
	}
	f := &Frame{
		Width:    g.Width,
		Height:   g.Height,
		Pix:      make([]float64, g.Pixels()),
		Seq:      raw.Seq,
		Captured: raw.Captured,
	}
	min := c.SanityMaxC
	max := c.SanityMinC
	sum := 0.0
	for i := range f.Pix {
		count := binary.LittleEndian.Uint16(raw.Pix[2*i:])
		t := c.Convert(count)
		if !(t >= c.SanityMinC && t <= c.SanityMaxC) {
			return nil, &OutOfRangeError{X: i % g.Width, Y: i / g.Width, Temp: t}
		}
		f.Pix[i] = t
		sum += t
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	f.Stats.Min = min
	f.Stats.Max = max
	f.Stats.Mean = sum / float64(len(f.Pix))
	f.Stats.Center = f.At(g.Width/2, g.Height/2)
	return f, nil
}
