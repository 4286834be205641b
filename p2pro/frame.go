// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package p2pro

import (
	"fmt"
	"time"
)

// RawFrame is one acquisition cycle worth of unconverted sensor bytes. It is
// filled in place by Camera.ReadFrame and must not be touched once handed to
// Decode; Decode is its only consumer.
type RawFrame struct {
	// Pix holds Geometry.FrameBytes() bytes of 16 bits little endian raw
	// counts.
	Pix []byte
	// Seq increments once per successful read on the producing device.
	Seq uint64
	// Captured is the local time the last byte of the frame was read.
	Captured time.Time
}

// NewRawFrame returns a frame buffer sized for g.
func NewRawFrame(g Geometry) *RawFrame {
	return &RawFrame{Pix: make([]byte, g.FrameBytes())}
}

// Stats are the scalar reductions computed during decode, in °C. They are
// computed in the same pass as the conversion so consumers can overlay
// readings without a second traversal.
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	Center float64
}

func (s Stats) String() string {
	return fmt.Sprintf("min %.1f°C max %.1f°C mean %.1f°C center %.1f°C", s.Min, s.Max, s.Mean, s.Center)
}

// Frame is a decoded temperature field. Width*Height always equals len(Pix)
// and every value is finite; Decode rejects frames where either would not
// hold. A Frame is immutable once returned by Decode.
type Frame struct {
	Width  int
	Height int
	// Pix is the per-pixel temperature in °C, row major.
	Pix   []float64
	Stats Stats
	// Seq and Captured carry over from the RawFrame.
	Seq      uint64
	Captured time.Time
}

// At returns the temperature at (x, y). No bounds check.
func (f *Frame) At(x, y int) float64 {
	return f.Pix[y*f.Width+x]
}
