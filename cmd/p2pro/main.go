// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// p2pro serves a live view of a P2 Pro thermal camera over HTTP and saves
// captures on request.
package main

import (
	"fmt"
	"os"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/edaniels/golog"
	"github.com/maruel/interrupt"
	"github.com/pkg/errors"

	"github.com/thermal2pro/go-p2pro/p2pro"
	"github.com/thermal2pro/go-p2pro/p2protest"
	"github.com/thermal2pro/go-p2pro/palette"
	"github.com/thermal2pro/go-p2pro/pipeline"
)

type options struct {
	Device      string        `arg:"-d,--device" default:"/dev/video0" help:"raw video device node"`
	Width       int           `default:"256" help:"sensor width in pixels"`
	Height      int           `default:"192" help:"sensor height in pixels"`
	Fake        bool          `help:"use a synthetic camera instead of hardware"`
	Port        int           `arg:"-p,--port" default:"8010" help:"http port to listen on"`
	Palette     string        `default:"iron" help:"iron, rainbow or gray"`
	Min         float64       `help:"fixed scale low end in °C; with --max"`
	Max         float64       `help:"fixed scale high end in °C; equal to --min means auto range"`
	Gain        float64       `help:"calibration gain override; 0 means factory"`
	Offset      float64       `help:"calibration offset override in °C; 0 means factory"`
	Timeout     time.Duration `default:"250ms" help:"per frame read deadline"`
	MaxFailures int           `default:"25" help:"consecutive read failures before declaring the camera gone"`
	CaptureDir  string        `default:"/mnt/thermal_storage/thermal_captures" help:"preferred capture directory"`
	Watch       bool          `help:"exit when the executable changes on disk"`
	Verbose     bool          `arg:"-v" help:"log http requests and debug output"`
}

func mainImpl() error {
	var opts options
	arg.MustParse(&opts)

	var logger golog.Logger
	if opts.Verbose {
		logger = golog.NewDevelopmentLogger("p2pro")
	} else {
		logger = golog.NewLogger("p2pro")
	}

	interrupt.HandleCtrlC()

	geom := p2pro.Geometry{Width: opts.Width, Height: opts.Height, BitsPerPixel: 16}
	var cam p2pro.Camera
	if opts.Fake {
		cam = p2protest.New(geom, nil)
	} else {
		var err error
		cam, err = p2pro.Open(opts.Device, geom, opts.Timeout)
		if err != nil {
			return errors.Wrap(err, "if testing without hardware, use --fake to simulate a camera")
		}
	}

	calib := p2pro.DefaultCalibration()
	if opts.Gain != 0 {
		calib.Gain = opts.Gain
	}
	if opts.Offset != 0 {
		calib.Offset = opts.Offset
	}
	pal, err := palette.ByName(opts.Palette)
	if err != nil {
		cam.Close()
		return err
	}
	scale := palette.AutoRange
	if opts.Max != opts.Min {
		scale = palette.Fixed(opts.Min, opts.Max)
	}

	pl := pipeline.New(cam, pipeline.Config{
		Calibration: calib,
		Palette:     pal,
		Scale:       scale,
		MaxFailures: opts.MaxFailures,
	}, logger)
	pl.Start()
	defer pl.Stop()

	store := newStorage(opts.CaptureDir, logger)
	startServer(opts.Port, pl, store, logger, opts.Verbose)

	if opts.Watch {
		go func() {
			if err := watchFile(); err != nil {
				logger.Errorw("watch failed", "error", err)
			}
			interrupt.Set()
		}()
	}

	for !interrupt.IsSet() {
		if pl.State() == pipeline.Disconnected {
			fmt.Print("\n")
			return errors.New("camera disconnected; check the USB connection and restart")
		}
		s := pl.Stats()
		fmt.Printf("\r%d frames %d dropped %d timeouts %d short %d gone", s.Published, s.Dropped, s.Timeouts, s.ShortReads, s.Disconnects)
		time.Sleep(time.Second)
	}
	fmt.Print("\n")
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\np2pro: %s.\n", err)
		os.Exit(1)
	}
}
