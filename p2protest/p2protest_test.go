// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package p2protest

import (
	"bytes"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/thermal2pro/go-p2pro/p2pro"
)

var testGeom = p2pro.Geometry{Width: 16, Height: 12, BitsPerPixel: 16}

// read steps the mock clock past one frame interval while a read is in
// flight.
func read(t *testing.T, cam *Camera, clk *clock.Mock, f *p2pro.RawFrame) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- cam.ReadFrame(f) }()
	// Let the reader reach its sleep before advancing time.
	time.Sleep(10 * time.Millisecond)
	clk.Add(p2pro.FrameInterval)
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("read did not complete")
		return nil
	}
}

func TestFramesDecode(t *testing.T) {
	clk := clock.NewMock()
	cam := New(testGeom, clk)
	calib := p2pro.DefaultCalibration()

	f := p2pro.NewRawFrame(testGeom)
	test.That(t, read(t, cam, clk, f), test.ShouldBeNil)
	test.That(t, f.Seq, test.ShouldEqual, 1)

	frame, err := p2pro.Decode(f, testGeom, calib)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Pix, test.ShouldHaveLength, testGeom.Pixels())
	// The synthetic scene stays inside the sanity band with margin.
	test.That(t, frame.Stats.Min, test.ShouldBeGreaterThan, 0.0)
	test.That(t, frame.Stats.Max, test.ShouldBeLessThan, 120.0)
	test.That(t, frame.Stats.Max, test.ShouldBeGreaterThan, frame.Stats.Min)
}

func TestSceneAnimates(t *testing.T) {
	clk := clock.NewMock()
	cam := New(testGeom, clk)

	a := p2pro.NewRawFrame(testGeom)
	b := p2pro.NewRawFrame(testGeom)
	test.That(t, read(t, cam, clk, a), test.ShouldBeNil)
	test.That(t, read(t, cam, clk, b), test.ShouldBeNil)
	test.That(t, b.Seq, test.ShouldEqual, 2)
	test.That(t, bytes.Equal(a.Pix, b.Pix), test.ShouldBeFalse)
}

func TestDefaultGeometry(t *testing.T) {
	cam := New(p2pro.Geometry{}, clock.NewMock())
	test.That(t, cam.Geometry(), test.ShouldResemble, p2pro.DefaultGeometry())
}

func TestClose(t *testing.T) {
	cam := New(testGeom, clock.NewMock())
	test.That(t, cam.Close(), test.ShouldBeNil)
	test.That(t, cam.Close(), test.ShouldBeNil)
	err := cam.ReadFrame(p2pro.NewRawFrame(testGeom))
	test.That(t, err, test.ShouldEqual, p2pro.ErrDisconnected)
}
