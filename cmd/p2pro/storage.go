// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"image/png"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/thermal2pro/go-p2pro/pipeline"
)

// storage picks where captures land: the preferred directory (typically an
// external card) when writable, the home directory otherwise.
type storage struct {
	primary  string
	fallback string
	logger   golog.Logger
}

func newStorage(primary string, logger golog.Logger) *storage {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	s := &storage{
		primary:  primary,
		fallback: filepath.Join(home, "thermal_captures"),
		logger:   logger,
	}
	// Best effort; a read-only mount just pushes us to the fallback.
	_ = os.MkdirAll(s.primary, 0755)
	_ = os.MkdirAll(s.fallback, 0755)
	return s
}

// dir returns the directory captures currently go to.
func (s *storage) dir() string {
	if writable(s.primary) {
		return s.primary
	}
	return s.fallback
}

// save writes the snapshot's rendered image as a timestamped PNG and returns
// the full path.
func (s *storage) save(snap pipeline.Snapshot) (string, error) {
	name := "thermal_" + snap.Frame.Captured.Format("20060102_150405") + ".png"
	path := filepath.Join(s.dir(), name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return "", errors.Wrap(err, "saving capture")
	}
	defer f.Close()
	if err := png.Encode(f, snap.Image); err != nil {
		return "", errors.Wrap(err, "encoding capture")
	}
	s.logger.Infow("captured", "path", path, "seq", snap.Seq)
	return path, nil
}

func writable(dir string) bool {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe")
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}
