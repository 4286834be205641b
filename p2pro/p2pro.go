// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package p2pro reads and converts frames from an InfiRay P2 Pro class USB
// thermal camera.
//
// The P2 Pro enumerates as a USB video class device and exposes a raw
// radiometric stream: each pixel is a 16 bits little endian count equal to
// the absolute temperature in Kelvin times 64. The sensor is 256x192 and
// sends 25 frames per second.
//
// References:
// InfiRay P2 Pro product page:
//   https://www.infiray.com/p2-pro-thermal-camera-for-smartphone
//
// Reverse engineered stream layout and radiometric encoding:
//   https://github.com/leswright1977/PyThermalcamera
//   The second half of the 256x384 YUYV capture carries the raw 16 bits
//   Kelvin*64 samples; this package consumes that raw sub-stream.
package p2pro

import (
	"io"
	"time"
)

// Default sensor geometry and timing for the P2 Pro.
const (
	DefaultWidth  = 256
	DefaultHeight = 192
	// The camera sends frames at a nominal 25Hz.
	FrameInterval = 40 * time.Millisecond
	// DefaultTimeout is well over twice the inter-frame interval so normal
	// jitter is not reported as a failure.
	DefaultTimeout = 250 * time.Millisecond
)

// Geometry is the fixed frame layout negotiated with the sensor at open
// time. It never changes for the lifetime of a device handle.
type Geometry struct {
	Width  int
	Height int
	// BitsPerPixel is 16 for the raw radiometric stream.
	BitsPerPixel int
}

// DefaultGeometry returns the native P2 Pro raw stream layout.
func DefaultGeometry() Geometry {
	return Geometry{Width: DefaultWidth, Height: DefaultHeight, BitsPerPixel: 16}
}

// FrameBytes returns the exact number of bytes in one raw frame.
func (g Geometry) FrameBytes() int {
	return g.Width * g.Height * g.BitsPerPixel / 8
}

// Pixels returns the pixel count of one frame.
func (g Geometry) Pixels() int {
	return g.Width * g.Height
}

// Camera produces fixed size raw frames at the sensor's native rate. It is
// implemented by Dev and can be mocked; p2protest provides a fake.
//
// ReadFrame blocks until one full frame is available or the read deadline
// expires. It never retries on its own; retry policy belongs to the caller,
// which can tell transient from persistent failures.
type Camera interface {
	io.Closer

	ReadFrame(f *RawFrame) error
	Geometry() Geometry
}
