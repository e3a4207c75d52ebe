// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stream

import (
	"mime"
	"net/http"
	"net/textproto"

	"github.com/sirupsen/logrus"
)

// ServeHTTP sends the stream of frames. Clients can explicitly request PNG
// or JPEG images with "?format=png" or "?format=jpeg".
func (s *Sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	f := s.format
	if v := r.URL.Query().Get("format"); v != "" {
		var err error
		if f, err = ParseFormat(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	pw := newPartWriter(w)
	w.Header().Set("Content-Type", mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": pw.boundary}))

	c := &client{refresh: make(chan struct{}, 1), terminate: make(chan struct{}, 1)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", f.mimeType())
	header.Set("Content-Transfer-Encoding", "binary")
	for {
		b, err := s.snapshot(f)
		if err != nil {
			logrus.Warningf("Unable to encode frame: %v", err)
			return
		}
		// Write errors mean the client is gone.
		if err := pw.writeFrame(header, b); err != nil {
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}
