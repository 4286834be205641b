// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package palette maps temperature fields to false color images.
//
// A Palette is a fixed 256 entry lookup table built once from gradient
// control points; selection happens at session construction and the value is
// never mutated, so an in-flight render cannot observe a palette change.
package palette

import (
	"image/color"

	"github.com/pkg/errors"
)

// Palette is an ordered mapping from normalized intensity in [0,1] to RGB.
type Palette struct {
	name string
	lut  [256]color.RGBA
}

// Name returns the palette identifier used for selection.
func (p *Palette) Name() string {
	return p.name
}

// At returns the color for a normalized intensity v clamped to [0,1].
func (p *Palette) At(v float64) color.RGBA {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return p.lut[int(v*255+0.5)]
}

// The three palettes the camera UI exposes. Iron is the traditional
// thermography gradient, Rainbow maximizes hue separation, Gray is plain
// grayscale.
var (
	Iron = newPalette("iron", []stop{
		{0.00, color.RGBA{0, 0, 0, 255}},
		{0.13, color.RGBA{32, 0, 90, 255}},
		{0.35, color.RGBA{143, 10, 135, 255}},
		{0.57, color.RGBA{217, 72, 40, 255}},
		{0.78, color.RGBA{255, 166, 18, 255}},
		{1.00, color.RGBA{255, 255, 255, 255}},
	})
	Rainbow = newPalette("rainbow", []stop{
		{0.00, color.RGBA{0, 0, 255, 255}},
		{0.25, color.RGBA{0, 255, 255, 255}},
		{0.50, color.RGBA{0, 255, 0, 255}},
		{0.75, color.RGBA{255, 255, 0, 255}},
		{1.00, color.RGBA{255, 0, 0, 255}},
	})
	Gray = newPalette("gray", []stop{
		{0.00, color.RGBA{0, 0, 0, 255}},
		{1.00, color.RGBA{255, 255, 255, 255}},
	})
)

// All returns the built-in palettes in UI order.
func All() []*Palette {
	return []*Palette{Iron, Rainbow, Gray}
}

// ByName returns the built-in palette with that name.
func ByName(name string) (*Palette, error) {
	for _, p := range All() {
		if p.name == name {
			return p, nil
		}
	}
	return nil, errors.Errorf("unknown palette %q", name)
}

// stop is a gradient control point at position p in [0,1].
type stop struct {
	p float64
	c color.RGBA
}

// newPalette fills the lookup table by linear interpolation between stops.
// Stops must be sorted and span 0 to 1.
func newPalette(name string, stops []stop) *Palette {
	p := &Palette{name: name}
	for i := 0; i < 256; i++ {
		v := float64(i) / 255
		hi := 1
		for hi < len(stops)-1 && stops[hi].p < v {
			hi++
		}
		lo := hi - 1
		span := stops[hi].p - stops[lo].p
		t := 0.0
		if span > 0 {
			t = (v - stops[lo].p) / span
		}
		p.lut[i] = color.RGBA{
			R: lerp(stops[lo].c.R, stops[hi].c.R, t),
			G: lerp(stops[lo].c.G, stops[hi].c.G, t),
			B: lerp(stops[lo].c.B, stops[hi].c.B, t),
			A: 255,
		}
	}
	return p
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
