// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package p2pro

import (
	"fmt"

	"github.com/pkg/errors"
)

// Read time failures. Both are recoverable up to a bound decided one layer
// up; this package only reports them.
var (
	// ErrTimeout is returned by ReadFrame when no full frame arrived within
	// the configured deadline.
	ErrTimeout = errors.New("frame read timed out")
	// ErrDisconnected is returned by ReadFrame once the device handle is
	// closed or the camera is gone.
	ErrDisconnected = errors.New("device disconnected")
)

// ShortReadError is returned by ReadFrame when the device delivered fewer
// bytes than one full frame. It is reported as-is, never silently retried.
type ShortReadError struct {
	Got  int
	Want int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short frame read: got %d bytes, want %d", e.Got, e.Want)
}

// MalformedFrameError is returned by Decode when the raw buffer length does
// not match the geometry. No partial conversion is attempted.
type MalformedFrameError struct {
	Got  int
	Want int
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame: %d bytes, want %d", e.Got, e.Want)
}

// OutOfRangeError is returned by Decode when a converted pixel falls outside
// the sensor's plausible band. The whole frame is rejected; a systematic
// glitch corrupts many pixels and clamping would hide it.
type OutOfRangeError struct {
	X    int
	Y    int
	Temp float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("pixel (%d,%d) decoded to %.1f°C, outside sanity band", e.X, e.Y, e.Temp)
}
