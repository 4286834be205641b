// Copyright 2026 The go-p2pro Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"image/png"
	"net/http"

	"github.com/edaniels/golog"
	"github.com/maruel/interrupt"
	"github.com/maruel/serve-dir/loghttp"
	"golang.org/x/net/websocket"

	"github.com/thermal2pro/go-p2pro/palette"
	"github.com/thermal2pro/go-p2pro/pipeline"
)

type server struct {
	pl     *pipeline.Pipeline
	store  *storage
	logger golog.Logger
}

func startServer(port int, pl *pipeline.Pipeline, store *storage, logger golog.Logger, verbose bool) *server {
	s := &server{pl: pl, store: store, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.root)
	mux.HandleFunc("/still.png", s.still)
	mux.HandleFunc("/favicon.ico", s.still)
	mux.HandleFunc("/snapshot.json", s.snapshot)
	mux.HandleFunc("/capture", s.capture)
	mux.Handle("/captures/", http.StripPrefix("/captures/", http.FileServer(http.Dir(store.dir()))))
	mux.Handle("/stream", websocket.Handler(s.stream))
	var h http.Handler = mux
	if verbose {
		h = &loghttp.Handler{Handler: mux}
	}
	fmt.Printf("Listening on %d\n", port)
	go http.ListenAndServe(fmt.Sprintf(":%d", port), h)
	return s
}

var rootTmpl = template.Must(template.New("root").Parse(`
	<html>
	<head>
		<title>p2pro</title>
		<style>
			img.large {
				width: 768; /* Multiple of 256 */
				height: auto;
				image-rendering: pixelated;
			}
		</style>
		<script>
		var ws = new WebSocket("ws://" + location.host + "/stream");
		ws.onmessage = function(e) {
			if (e.data[0] == "I") {
				document.getElementById("live").src = "data:image/png;base64," + e.data.slice(1);
			} else if (e.data[0] == "M") {
				var m = JSON.parse(e.data.slice(1));
				document.getElementById("meta").textContent =
					"#" + m.Seq + "  center " + m.Center.toFixed(1) + "°C  [" +
					m.Min.toFixed(1) + " … " + m.Max.toFixed(1) + "]";
			}
		};
		function capture() {
			fetch("/capture", {method: "POST"}).then(r => r.json()).then(j => {
				document.getElementById("saved").textContent = "saved " + j.Path;
			});
		}
		</script>
	</head>
	<body>
	<img class="large" id="live" src="/still.png"></img>
	<br>
	<span id="meta"></span>
	<br>
	<button onclick="capture()">Capture</button>
	<span id="saved"></span> <a href="/captures/">browse</a>
	<br>
	Captures go to {{.Dir}}
	</body>
	</html>`))

func (s *server) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	data := struct{ Dir string }{Dir: s.store.dir()}
	if err := rootTmpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// still serves the latest rendered frame. ?palette=rainbow re-renders the
// snapshot's temperature field through another palette without touching the
// session configuration.
func (s *server) still(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.pl.Snapshot()
	if !ok {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	img := snap.Image
	if name := r.URL.Query().Get("palette"); name != "" {
		p, err := palette.ByName(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		img = palette.Render(snap.Frame, p, palette.AutoRange)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := png.Encode(w, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// streamMeta is the metadata side-channel sent along each streamed frame.
type streamMeta struct {
	Seq    uint64
	Min    float64
	Max    float64
	Mean   float64
	Center float64
}

// stream pushes "I" prefixed base64 PNG frames and "M" prefixed JSON
// metadata over a websocket. A slow client simply sees fewer frames; the
// pipeline never waits for it.
func (s *server) stream(w *websocket.Conn) {
	defer w.Close()
	buf := &bytes.Buffer{}
	last := uint64(0)
	for !interrupt.IsSet() {
		select {
		case <-interrupt.Channel:
			return
		case <-s.pl.Updates():
		}
		snap, ok := s.pl.Snapshot()
		if !ok || snap.Seq == last {
			continue
		}
		last = snap.Seq

		buf.WriteString("I")
		encoder := base64.NewEncoder(base64.StdEncoding, buf)
		err := png.Encode(encoder, snap.Image)
		if err == nil {
			encoder.Close()
			_, err = w.Write(buf.Bytes())
		}
		buf.Reset()
		if err == nil {
			buf.WriteString("M")
			m := streamMeta{
				Seq:    snap.Seq,
				Min:    snap.Frame.Stats.Min,
				Max:    snap.Frame.Stats.Max,
				Mean:   snap.Frame.Stats.Mean,
				Center: snap.Frame.Stats.Center,
			}
			if err = json.NewEncoder(buf).Encode(&m); err == nil {
				_, err = w.Write(buf.Bytes())
			}
			buf.Reset()
		}
		if err != nil {
			s.logger.Debugw("websocket client gone", "error", err)
			return
		}
	}
}

func (s *server) snapshot(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		State      string
		Stats      pipeline.Stats
		Frame      *streamMeta `json:",omitempty"`
		CaptureDir string
		FreeBytes  uint64
	}
	out := resp{
		State:      s.pl.State().String(),
		Stats:      s.pl.Stats(),
		CaptureDir: s.store.dir(),
		FreeBytes:  diskFree(s.store.dir()),
	}
	if snap, ok := s.pl.Snapshot(); ok {
		out.Frame = &streamMeta{
			Seq:    snap.Seq,
			Min:    snap.Frame.Stats.Min,
			Max:    snap.Frame.Stats.Max,
			Mean:   snap.Frame.Stats.Mean,
			Center: snap.Frame.Stats.Center,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// capture persists the current snapshot. The snapshot is immutable so the
// write happens without holding up the pipeline.
func (s *server) capture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.pl.Snapshot()
	if !ok {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	path, err := s.store.save(snap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct{ Path string }{Path: path})
}
