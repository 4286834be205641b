// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package p2pro

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Dev is an open handle on the camera's raw video interface. It reads full
// fixed size frames, one blocking read cycle at a time.
//
// Dev performs no retries and no policy: every failure mode is surfaced as a
// typed error and the caller decides between retry and teardown.
type Dev struct {
	geom    Geometry
	timeout time.Duration
	closed  int32
	seq     uint64

	// lock serializes reads; Close can happen concurrently.
	lock sync.Mutex
	f    *os.File
}

// Open opens the raw video device node at path, e.g. /dev/video0.
//
// timeout bounds each ReadFrame call. Pass 0 for DefaultTimeout; the value
// should stay at or above twice the inter-frame interval so ordinary jitter
// is not mis-declared a failure.
func Open(path string, g Geometry, timeout time.Duration) (*Dev, error) {
	if g.Width <= 0 || g.Height <= 0 || g.BitsPerPixel != 16 {
		return nil, errors.Errorf("unsupported geometry %dx%d/%d", g.Width, g.Height, g.BitsPerPixel)
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	f, err := os.OpenFile(path, os.O_RDWR, os.ModeExclusive)
	if err != nil {
		return nil, errors.Wrap(err, "device unavailable")
	}
	return &Dev{geom: g, timeout: timeout, f: f}, nil
}

// Geometry returns the fixed frame layout this handle was opened with.
func (d *Dev) Geometry() Geometry {
	return d.geom
}

// ReadFrame blocks until one full raw frame is read into f, growing f.Pix if
// needed. On success the handle's sequence counter advances and f carries it
// along with the capture timestamp.
//
// Returns ErrTimeout when the deadline elapses before a full frame arrived,
// ErrDisconnected when the handle is closed or the device is gone, and
// *ShortReadError when the device returned a truncated frame.
func (d *Dev) ReadFrame(f *RawFrame) error {
	want := d.geom.FrameBytes()
	if cap(f.Pix) < want {
		f.Pix = make([]byte, want)
	}
	f.Pix = f.Pix[:want]

	if atomic.LoadInt32(&d.closed) != 0 {
		return ErrDisconnected
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.f == nil {
		return ErrDisconnected
	}
	// Character devices support poll so the deadline is honored; plain files
	// used in tests do not, and reads on them return immediately anyway.
	_ = d.f.SetReadDeadline(time.Now().Add(d.timeout))
	n, err := io.ReadFull(d.f, f.Pix)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrDeadlineExceeded):
		if n > 0 {
			return &ShortReadError{Got: n, Want: want}
		}
		return ErrTimeout
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &ShortReadError{Got: n, Want: want}
	default:
		// EOF, EIO, ENODEV, use of closed file: the camera is gone.
		return ErrDisconnected
	}
	d.seq++
	f.Seq = d.seq
	f.Captured = time.Now()
	return nil
}

// Close releases the device node. It is idempotent and unblocks an in-flight
// ReadFrame, which then reports ErrDisconnected.
func (d *Dev) Close() error {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil
	}
	// Closing the file first interrupts a blocked read; only then take the
	// lock to clear the handle.
	err := d.f.Close()
	d.lock.Lock()
	d.f = nil
	d.lock.Unlock()
	return err
}
