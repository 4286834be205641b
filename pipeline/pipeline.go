// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pipeline drives the acquisition loop: read raw frames, decode them
// to temperatures, render them through a palette and publish the latest
// result as an immutable snapshot.
//
// The loop is the sole writer; any number of consumers read the latest
// snapshot without ever blocking the sensor read. A consumer that wants to
// follow the stream listens on Updates, which drops rather than queues when
// the consumer is slower than the camera.
package pipeline

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/edaniels/golog"

	"github.com/thermal2pro/go-p2pro/p2pro"
	"github.com/thermal2pro/go-p2pro/palette"
)

// State of the acquisition session.
type State int32

const (
	// Stopped is both the initial state and the terminal state after a user
	// requested stop.
	Stopped State = iota
	Running
	// Disconnected is entered after too many consecutive read failures. The
	// device handle is released; restarting requires a fresh open.
	Disconnected
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DefaultMaxFailures is roughly one second of consecutive misses at the
// camera's native 25Hz.
const DefaultMaxFailures = 25

// Config is the session configuration. All values are fixed at New; swapping
// the palette or calibration means constructing a new session.
type Config struct {
	Calibration p2pro.Calibration
	Palette     *palette.Palette
	Scale       palette.Scale
	// MaxFailures bounds consecutive read failures (timeout, short read,
	// disconnect) before the session goes Disconnected. 0 means
	// DefaultMaxFailures.
	MaxFailures int
}

// Snapshot is an internally consistent bundle of the latest decoded field,
// its rendering and the publish sequence number. Everything in it is
// immutable; capture and display consumers may hold it indefinitely.
type Snapshot struct {
	Frame *p2pro.Frame
	Image *image.RGBA
	// Seq increments once per published frame, starting at 1. Dropped frames
	// do not advance it.
	Seq uint64
}

// Stats counts what happened to every acquisition cycle so far.
type Stats struct {
	Published   int
	Dropped     int
	Timeouts    int
	ShortReads  int
	Disconnects int
	// Resets counts the times a successful read ended a failure streak.
	Resets int
}

// Pipeline owns one camera handle and publishes its frames. Use New then
// Start; the camera is released when the session reaches a terminal state.
type Pipeline struct {
	cam    p2pro.Camera
	cfg    Config
	logger golog.Logger
	state  int32

	stop    chan struct{}
	done    chan struct{}
	updates chan struct{}

	// lock guards snap and stats. The loop is the only writer; the pointer
	// swap under the lock is what makes a published snapshot whole and torn
	// reads impossible.
	lock  sync.Mutex
	snap  *Snapshot
	stats Stats
}

// New wires a controller to an open camera. The camera handle is owned by
// the pipeline from this point on and is closed on Stop or disconnect.
func New(cam p2pro.Camera, cfg Config, logger golog.Logger) *Pipeline {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.Palette == nil {
		cfg.Palette = palette.Iron
	}
	if !cfg.Scale.Auto && cfg.Scale.Min == cfg.Scale.Max {
		cfg.Scale = palette.AutoRange
	}
	if logger == nil {
		logger = golog.NewLogger("pipeline")
	}
	return &Pipeline{
		cam:     cam,
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		updates: make(chan struct{}, 1),
	}
}

// Start launches the acquisition loop on its own goroutine. Device reads
// block for up to a frame timeout, so the loop must never share a goroutine
// with a display or capture path.
func (p *Pipeline) Start() {
	if !atomic.CompareAndSwapInt32(&p.state, int32(Stopped), int32(Running)) {
		return
	}
	go p.run()
}

// Stop requests a cooperative stop, closes the camera to unblock an
// in-flight read and waits for the loop to exit. Safe to call more than
// once and before Start.
func (p *Pipeline) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	if atomic.LoadInt32(&p.state) != int32(Running) {
		// Loop never ran; release the handle here.
		_ = p.cam.Close()
		return
	}
	_ = p.cam.Close()
	<-p.done
}

// State returns the current session state.
func (p *Pipeline) State() State {
	return State(atomic.LoadInt32(&p.state))
}

// Snapshot returns the latest published snapshot. ok is false before the
// first successful cycle. The returned value stays valid and self consistent
// even while newer frames are published.
func (p *Pipeline) Snapshot() (Snapshot, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.snap == nil {
		return Snapshot{}, false
	}
	return *p.snap, true
}

// Updates signals once per published frame. The channel has capacity one and
// publishes drop instead of queueing: a slow consumer skips frames and never
// back-pressures the sensor read.
func (p *Pipeline) Updates() <-chan struct{} {
	return p.updates
}

// Stats returns a copy of the cycle counters.
func (p *Pipeline) Stats() Stats {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.stats
}

func (p *Pipeline) run() {
	defer close(p.done)
	// The loop owns the handle; it is released exactly once on any exit.
	defer p.cam.Close()

	raw := p2pro.NewRawFrame(p.cam.Geometry())
	failures := 0
	seq := uint64(0)
	for {
		select {
		case <-p.stop:
			atomic.StoreInt32(&p.state, int32(Stopped))
			return
		default:
		}

		if err := p.cam.ReadFrame(raw); err != nil {
			select {
			case <-p.stop:
				// The read was unblocked by Stop closing the handle.
				atomic.StoreInt32(&p.state, int32(Stopped))
				return
			default:
			}
			p.countReadFailure(err)
			failures++
			if failures >= p.cfg.MaxFailures {
				p.logger.Errorw("giving up on camera", "consecutive_failures", failures, "error", err)
				atomic.StoreInt32(&p.state, int32(Disconnected))
				return
			}
			continue
		}
		if failures > 0 {
			p.lock.Lock()
			p.stats.Resets++
			p.lock.Unlock()
		}
		failures = 0

		frame, err := p2pro.Decode(raw, p.cam.Geometry(), p.cfg.Calibration)
		if err != nil {
			// Dropped frame: never published, loop continues with the next
			// cycle and the previous snapshot stays visible.
			p.logger.Warnw("dropping frame", "seq", raw.Seq, "error", err)
			p.lock.Lock()
			p.stats.Dropped++
			p.lock.Unlock()
			continue
		}

		img := palette.Render(frame, p.cfg.Palette, p.cfg.Scale)
		seq++
		p.lock.Lock()
		p.snap = &Snapshot{Frame: frame, Image: img, Seq: seq}
		p.stats.Published++
		p.lock.Unlock()
		select {
		case p.updates <- struct{}{}:
		default:
		}
	}
}

func (p *Pipeline) countReadFailure(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	var short *p2pro.ShortReadError
	switch {
	case err == p2pro.ErrTimeout:
		p.stats.Timeouts++
	case err == p2pro.ErrDisconnected:
		p.stats.Disconnects++
	case errors.As(err, &short):
		p.stats.ShortReads++
	}
}
