// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import (
	"image"

	"github.com/thermal2pro/go-p2pro/p2pro"
)

// Scale selects how temperatures map onto the palette.
//
// Auto stretches each frame over its own min/max for maximum contrast;
// consecutive frames are then not color comparable. Fixed maps against an
// absolute range so the same temperature always gets the same color.
type Scale struct {
	Min  float64
	Max  float64
	Auto bool
}

// AutoRange scales each frame by its own min/max.
var AutoRange = Scale{Auto: true}

// Fixed scales every frame against the absolute range [min, max] °C.
func Fixed(min, max float64) Scale {
	return Scale{Min: min, Max: max}
}

// rangeFor resolves the effective range for one frame.
func (s Scale) rangeFor(f *p2pro.Frame) (float64, float64) {
	if s.Auto {
		return f.Stats.Min, f.Stats.Max
	}
	return s.Min, s.Max
}

// Render maps a temperature field to a false color image.
//
// Render is pure: it has no state, allocates a fresh image and identical
// inputs produce byte identical output. A flat field (max == min) maps every
// pixel to the palette midpoint instead of dividing by zero.
func Render(f *p2pro.Frame, p *Palette, s Scale) *image.RGBA {
	min, max := s.rangeFor(f)
	span := max - min
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, t := range f.Pix {
		n := 0.5
		if span > 0 {
			n = (t - min) / span
		}
		c := p.At(n)
		o := 4 * i
		img.Pix[o] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = c.A
	}
	return img
}
