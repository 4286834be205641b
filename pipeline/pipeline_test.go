// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import (
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/thermal2pro/go-p2pro/p2pro"
	"github.com/thermal2pro/go-p2pro/palette"
)

var testGeom = p2pro.Geometry{Width: 8, Height: 4, BitsPerPixel: 16}

// fillRaw encodes a uniform tempC frame under the factory calibration.
func fillRaw(f *p2pro.RawFrame, g p2pro.Geometry, tempC float64) {
	c := p2pro.DefaultCalibration()
	count := uint16((tempC - c.Offset) / c.Gain)
	if cap(f.Pix) < g.FrameBytes() {
		f.Pix = make([]byte, g.FrameBytes())
	}
	f.Pix = f.Pix[:g.FrameBytes()]
	for i := 0; i < g.Pixels(); i++ {
		binary.LittleEndian.PutUint16(f.Pix[2*i:], count)
	}
}

// scriptCam plays one step function per read, then blocks until closed.
type scriptCam struct {
	steps   []func(f *p2pro.RawFrame) error
	reads   int32
	closed  int32
	release chan struct{}
}

func newScriptCam(steps ...func(f *p2pro.RawFrame) error) *scriptCam {
	return &scriptCam{steps: steps, release: make(chan struct{})}
}

func (c *scriptCam) Geometry() p2pro.Geometry {
	return testGeom
}

func (c *scriptCam) ReadFrame(f *p2pro.RawFrame) error {
	if atomic.LoadInt32(&c.closed) != 0 {
		return p2pro.ErrDisconnected
	}
	n := int(atomic.AddInt32(&c.reads, 1)) - 1
	if n < len(c.steps) {
		return c.steps[n](f)
	}
	// Script exhausted: behave like a camera with nothing more to say until
	// the handle is closed.
	<-c.release
	return p2pro.ErrDisconnected
}

func (c *scriptCam) Close() error {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.release)
	}
	return nil
}

func good(tempC float64) func(f *p2pro.RawFrame) error {
	return func(f *p2pro.RawFrame) error {
		fillRaw(f, testGeom, tempC)
		return nil
	}
}

func timeout() func(f *p2pro.RawFrame) error {
	return func(f *p2pro.RawFrame) error { return p2pro.ErrTimeout }
}

// malformed truncates the buffer so decode rejects the frame.
func malformed() func(f *p2pro.RawFrame) error {
	return func(f *p2pro.RawFrame) error {
		fillRaw(f, testGeom, 25)
		f.Pix = f.Pix[:len(f.Pix)-2]
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFailureBound(t *testing.T) {
	// A camera that only ever times out: after exactly MaxFailures
	// consecutive misses the session is Disconnected and no snapshot was
	// ever published.
	cam := newScriptCam(timeout(), timeout(), timeout(), timeout(), timeout())
	p := New(cam, Config{MaxFailures: 5}, golog.NewTestLogger(t))
	p.Start()
	waitFor(t, func() bool { return p.State() == Disconnected })

	test.That(t, atomic.LoadInt32(&cam.reads), test.ShouldEqual, 5)
	test.That(t, atomic.LoadInt32(&cam.closed), test.ShouldEqual, 1)
	_, ok := p.Snapshot()
	test.That(t, ok, test.ShouldBeFalse)
	s := p.Stats()
	test.That(t, s.Timeouts, test.ShouldEqual, 5)
	test.That(t, s.Published, test.ShouldEqual, 0)
}

func TestStaleSnapshotSurvivesDisconnect(t *testing.T) {
	cam := newScriptCam(good(20), good(21), timeout(), timeout(), timeout())
	p := New(cam, Config{MaxFailures: 3}, golog.NewTestLogger(t))
	p.Start()
	waitFor(t, func() bool { return p.State() == Disconnected })

	// The last good frame stays visible: stale but valid, never blank.
	snap, ok := p.Snapshot()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, snap.Seq, test.ShouldEqual, 2)
	test.That(t, snap.Frame.Stats.Center, test.ShouldAlmostEqual, 21, 0.02)
}

func TestTransientFailuresReset(t *testing.T) {
	// Failures interleaved with good frames never reach the bound.
	cam := newScriptCam(timeout(), timeout(), good(20), timeout(), timeout(), good(21))
	p := New(cam, Config{MaxFailures: 3}, golog.NewTestLogger(t))
	p.Start()
	waitFor(t, func() bool { return p.Stats().Published == 2 })
	test.That(t, p.State(), test.ShouldEqual, Running)
	test.That(t, p.Stats().Resets, test.ShouldEqual, 2)
	p.Stop()
	test.That(t, p.State(), test.ShouldEqual, Stopped)
}

func TestDroppedFrameDoesNotPublish(t *testing.T) {
	// Decode failure on cycle 3 only: the sequence does not advance on that
	// cycle but does on 1, 2, 4 and 5.
	cam := newScriptCam(good(20), good(21), malformed(), good(22), good(23))
	p := New(cam, Config{MaxFailures: 3}, golog.NewTestLogger(t))
	p.Start()
	waitFor(t, func() bool { return p.Stats().Published == 4 })
	p.Stop()

	s := p.Stats()
	test.That(t, s.Published, test.ShouldEqual, 4)
	test.That(t, s.Dropped, test.ShouldEqual, 1)
	snap, ok := p.Snapshot()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, snap.Seq, test.ShouldEqual, 4)
	test.That(t, snap.Frame.Stats.Center, test.ShouldAlmostEqual, 23, 0.02)
}

func TestStopReleasesCamera(t *testing.T) {
	cam := newScriptCam(good(20))
	p := New(cam, Config{}, golog.NewTestLogger(t))
	p.Start()
	waitFor(t, func() bool { return p.Stats().Published == 1 })
	// The camera blocks on its exhausted script now; Stop must unblock it by
	// closing the handle.
	p.Stop()
	test.That(t, p.State(), test.ShouldEqual, Stopped)
	test.That(t, atomic.LoadInt32(&cam.closed), test.ShouldEqual, 1)
	// Stop again is a no-op.
	p.Stop()
	test.That(t, p.State(), test.ShouldEqual, Stopped)
}

func TestUpdatesDropInsteadOfQueue(t *testing.T) {
	cam := newScriptCam(good(20), good(21), good(22))
	p := New(cam, Config{}, golog.NewTestLogger(t))
	p.Start()
	waitFor(t, func() bool { return p.Stats().Published == 3 })
	p.Stop()

	// Three publishes with no consumer leave at most one pending signal.
	select {
	case <-p.Updates():
	default:
		t.Fatal("expected one pending update")
	}
	select {
	case <-p.Updates():
		t.Fatal("updates must drop, not queue")
	default:
	}
}

func TestSnapshotImmutable(t *testing.T) {
	cam := newScriptCam(good(20), good(30))
	p := New(cam, Config{Palette: palette.Gray, Scale: palette.Fixed(0, 50)}, golog.NewTestLogger(t))
	p.Start()
	waitFor(t, func() bool { return p.Stats().Published == 1 })
	first, ok := p.Snapshot()
	test.That(t, ok, test.ShouldBeTrue)
	center := first.Frame.Stats.Center
	pix := first.Image.Pix[0]

	waitFor(t, func() bool { return p.Stats().Published == 2 })
	p.Stop()
	// The snapshot handed out earlier did not change under the consumer.
	test.That(t, first.Seq, test.ShouldEqual, 1)
	test.That(t, first.Frame.Stats.Center, test.ShouldEqual, center)
	test.That(t, first.Image.Pix[0], test.ShouldEqual, pix)
}
