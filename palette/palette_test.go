// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import (
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestByName(t *testing.T) {
	for _, p := range All() {
		got, err := ByName(p.Name())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, p)
	}
	_, err := ByName("plasma")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAtClamps(t *testing.T) {
	for _, p := range All() {
		test.That(t, p.At(-0.5), test.ShouldResemble, p.At(0))
		test.That(t, p.At(1.5), test.ShouldResemble, p.At(1))
	}
}

func TestEndpoints(t *testing.T) {
	data := []struct {
		p    *Palette
		low  color.RGBA
		high color.RGBA
	}{
		{Iron, color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255}},
		{Rainbow, color.RGBA{0, 0, 255, 255}, color.RGBA{255, 0, 0, 255}},
		{Gray, color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255}},
	}
	for _, line := range data {
		test.That(t, line.p.At(0), test.ShouldResemble, line.low)
		test.That(t, line.p.At(1), test.ShouldResemble, line.high)
	}
}

func TestGrayLinear(t *testing.T) {
	c := Gray.At(0.5)
	test.That(t, c.R, test.ShouldEqual, c.G)
	test.That(t, c.G, test.ShouldEqual, c.B)
	test.That(t, int(c.R), test.ShouldAlmostEqual, 128, 1)
}
