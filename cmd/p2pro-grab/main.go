// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// p2pro-grab captures a single false color frame to a PNG file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/thermal2pro/go-p2pro/p2pro"
	"github.com/thermal2pro/go-p2pro/p2protest"
	"github.com/thermal2pro/go-p2pro/palette"
)

func mainImpl() error {
	device := flag.String("d", "/dev/video0", "raw video device node")
	fake := flag.Bool("fake", false, "use a synthetic camera instead of hardware")
	palName := flag.String("palette", "iron", "iron, rainbow or gray")
	min := flag.Float64("min", 0, "fixed scale low end in °C")
	max := flag.Float64("max", 0, "fixed scale high end in °C; equal to -min means auto range")
	meta := flag.Bool("meta", false, "print frame statistics")
	flag.Parse()

	if flag.NArg() != 1 {
		return errors.New("supply path to PNG to save")
	}

	geom := p2pro.DefaultGeometry()
	var cam p2pro.Camera
	if *fake {
		cam = p2protest.New(geom, nil)
	} else {
		var err error
		cam, err = p2pro.Open(*device, geom, 0)
		if err != nil {
			return fmt.Errorf("%s\nIf testing without hardware, use -fake to simulate a camera", err)
		}
	}
	defer cam.Close()

	pal, err := palette.ByName(*palName)
	if err != nil {
		return err
	}
	scale := palette.AutoRange
	if *max != *min {
		scale = palette.Fixed(*min, *max)
	}

	raw := p2pro.NewRawFrame(geom)
	if err := cam.ReadFrame(raw); err != nil {
		return err
	}
	frame, err := p2pro.Decode(raw, geom, p2pro.DefaultCalibration())
	if err != nil {
		return err
	}
	if *meta {
		fmt.Printf("Captured: %s\n", frame.Captured)
		fmt.Printf("Seq:      %d\n", frame.Seq)
		fmt.Printf("Stats:    %s\n", frame.Stats)
	}
	return writePNG(flag.Args()[0], palette.Render(frame, pal, scale))
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\np2pro-grab: %s.\n", err)
		os.Exit(1)
	}
}
