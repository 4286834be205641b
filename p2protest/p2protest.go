// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package p2protest implements a fake P2 Pro camera.
//
// The fake emits an animated synthetic scene at the sensor's native rate: a
// travelling interference pattern over room temperature, a hot spot orbiting
// the center and a little gaussian noise. Every emitted frame decodes
// cleanly inside the default sanity band. Pacing goes through an injectable
// clock so tests can step time instead of sleeping.
package p2protest

import (
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/thermal2pro/go-p2pro/p2pro"
)

// Scene temperatures in °C.
const (
	ambientC = 22
	rippleC  = 6
	hotSpotC = 80
	noiseC   = 0.2
)

// Camera is a fake implementing p2pro.Camera.
type Camera struct {
	geom   p2pro.Geometry
	clk    clock.Clock
	calib  p2pro.Calibration
	closed int32

	lock  sync.Mutex
	seq   uint64
	phase float64
	rand  *rand.Rand
}

// New returns a fake camera with the given geometry. A nil clk uses the wall
// clock, which paces ReadFrame at the real 25Hz.
func New(g p2pro.Geometry, clk clock.Clock) *Camera {
	if g.Width == 0 {
		g = p2pro.DefaultGeometry()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Camera{
		geom:  g,
		clk:   clk,
		calib: p2pro.DefaultCalibration(),
		rand:  rand.New(rand.NewSource(0)),
	}
}

// Geometry returns the fake's frame layout.
func (c *Camera) Geometry() p2pro.Geometry {
	return c.geom
}

// ReadFrame sleeps one frame interval on the injected clock, then fills f
// with the next scene frame encoded as raw little endian counts.
func (c *Camera) ReadFrame(f *p2pro.RawFrame) error {
	if atomic.LoadInt32(&c.closed) != 0 {
		return p2pro.ErrDisconnected
	}
	c.clk.Sleep(p2pro.FrameInterval)
	if atomic.LoadInt32(&c.closed) != 0 {
		return p2pro.ErrDisconnected
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	want := c.geom.FrameBytes()
	if cap(f.Pix) < want {
		f.Pix = make([]byte, want)
	}
	f.Pix = f.Pix[:want]

	c.phase += 2 * math.Pi / 100
	w := c.geom.Width
	h := c.geom.Height
	// Hot spot orbiting the center, as on the bench scene the original app
	// was developed against.
	hx := float64(w)/2 + math.Sin(c.phase)*float64(w)/5
	hy := float64(h)/2 + math.Cos(c.phase)*float64(h)/6
	for y := 0; y < h; y++ {
		fy := float64(y)
		for x := 0; x < w; x++ {
			fx := float64(x)
			t := ambientC +
				rippleC*0.5*(math.Sin(fx/32+c.phase)+math.Cos(fy/32-c.phase)) +
				c.rand.NormFloat64()*noiseC
			if d := (fx-hx)*(fx-hx) + (fy-hy)*(fy-hy); d < 100 {
				t += (hotSpotC - ambientC) * (1 - d/100)
			}
			count := uint16((t - c.calib.Offset) / c.calib.Gain)
			binary.LittleEndian.PutUint16(f.Pix[2*(y*w+x):], count)
		}
	}
	c.seq++
	f.Seq = c.seq
	f.Captured = c.clk.Now()
	return nil
}

// Close marks the fake disconnected. Idempotent.
func (c *Camera) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	return nil
}
