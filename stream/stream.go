// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stream serves a live view of a monochrome panel over HTTP.
//
// Each client gets the current frame right away, then a new one after every
// Update. The protocol is "MJPEG" (https://en.wikipedia.org/wiki/Motion_JPEG)
// as used by IP cameras, so a browser shows it in a plain <img> tag. PNG is
// the default since it is lossless for 1 bit content; JPEG is selected with
// Opts.Format or the "format" URL parameter.
package stream

import (
	"image"
	"image/draw"
	"sync"
)

// Opts for a Sink.
type Opts struct {
	// Format is the default image format sent to clients.
	Format Format
	// Quality of JPEG frames, 1 to 100. Defaults to 90.
	Quality int
}

// Sink holds the latest frame and the connected clients.
type Sink struct {
	format  Format
	quality int

	mu      sync.Mutex
	frame   *image.Gray
	clients map[*client]struct{}
	cache   map[Format][]byte
}

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

// New returns a Sink of the size of r, initially black.
func New(r image.Rectangle, opts *Opts) *Sink {
	if opts == nil {
		opts = &Opts{}
	}
	s := &Sink{
		format:  opts.Format,
		quality: opts.Quality,
		frame:   image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy())),
		clients: map[*client]struct{}{},
		cache:   map[Format][]byte{},
	}
	if s.quality <= 0 || s.quality > 100 {
		s.quality = 90
	}
	return s
}

func (s *Sink) String() string {
	return "stream.Sink"
}

// Bounds returns the frame size.
func (s *Sink) Bounds() image.Rectangle {
	return s.frame.Rect
}

// Update copies src, e.g. a sim.Panel, as the new frame and notifies every
// client.
func (s *Sink) Update(src image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.frame, s.frame.Rect, src, src.Bounds().Min, draw.Src)
	for f := range s.cache {
		delete(s.cache, f)
	}
	for c := range s.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (s *Sink) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Halt terminates every running client request asynchronously.
func (s *Sink) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	return nil
}

// snapshot returns the current frame encoded in f. Encodings are cached
// until the next Update.
func (s *Sink) snapshot(f Format) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.cache[f]; ok {
		return b, nil
	}
	b, err := f.encode(s.frame, s.quality)
	if err != nil {
		return nil, err
	}
	s.cache[f] = b
	return b, nil
}
