// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package main

import "github.com/maruel/interrupt"

func watchFile() error {
	<-interrupt.Channel
	return nil
}
