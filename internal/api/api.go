// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package api exposes a display over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/fogleman/gg"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ErrorMessage is the body of every non-image response.
type ErrorMessage struct {
	ErrStatusCode int    `json:"status_code"`
	ErrMessage    string `json:"message"`
}

// Text is the body of POST /api/text.
type Text struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Text  string `json:"text"`
	Clear bool   `json:"clear"`
}

// Rect is the body of POST /api/rect.
type Rect struct {
	X  int  `json:"x"`
	Y  int  `json:"y"`
	W  int  `json:"w"`
	H  int  `json:"h"`
	On bool `json:"on"`
}

// Line is the body of POST /api/console.
type Line struct {
	Line string `json:"line"`
}

// Server serializes access to a display.
//
// Every request runs as a single operation under one lock, so the bus never
// sees interleaved transactions.
type Server struct {
	lock    sync.Mutex
	d       *ssd1306.Dev
	console *ssd1306.Console
	view    image.Image
	after   func()

	router *mux.Router
	api    *mux.Router
}

// New returns a server for d.
//
// GET /api/frame serves view, e.g. a sim.Panel, or the framebuffer of d when
// view is nil. after, if not nil, is called under the lock after every
// successful change.
func New(d *ssd1306.Dev, view image.Image, after func()) *Server {
	if view == nil {
		view = d.Image()
	}
	s := &Server{d: d, console: ssd1306.NewConsole(d), view: view, after: after}
	s.router = mux.NewRouter().StrictSlash(false)
	r := s.router.PathPrefix("/api").Subrouter()
	s.api = r
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errorStatus(w, http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errorStatus(w, http.StatusMethodNotAllowed)
	})
	r.Use(recoverMiddleware)

	r.HandleFunc("/is_alive", func(w http.ResponseWriter, r *http.Request) {
		errorStatus(w, http.StatusOK)
	}).Methods("GET")
	r.HandleFunc("/frame", s.frame).Methods("GET")
	r.HandleFunc("/text", s.text).Methods("POST")
	r.HandleFunc("/rect", s.rect).Methods("POST")
	r.HandleFunc("/console", s.line).Methods("POST")
	r.HandleFunc("/clear", func(w http.ResponseWriter, r *http.Request) {
		s.run(w, func(d *ssd1306.Dev) error {
			d.Clear()
			return d.Flush()
		})
	}).Methods("POST")
	r.HandleFunc("/contrast/{level}", s.contrast).Methods("PUT")
	r.HandleFunc("/power/{state}", s.toggle(func(d *ssd1306.Dev, on bool) error { return d.SetPower(on) })).Methods("PUT")
	r.HandleFunc("/invert/{state}", s.toggle(func(d *ssd1306.Dev, on bool) error { return d.Invert(on) })).Methods("PUT")
	return s
}

// Mount serves GET requests on /api/<path> with h, outside of the lock,
// e.g. a stream.Sink.
func (s *Server) Mount(path string, h http.Handler) {
	s.api.Handle("/"+path, h).Methods("GET")
}

// Handler returns the HTTP handler, with CORS and compression.
func (s *Server) Handler() http.Handler {
	headersOk := handlers.AllowedHeaders([]string{"Content-Type"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"})
	return handlers.CompressHandler(handlers.CORS(originsOk, headersOk, methodsOk)(s.router))
}

// Do runs f with exclusive access to the display.
func (s *Server) Do(f func(d *ssd1306.Dev) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := f(s.d); err != nil {
		return err
	}
	if s.after != nil {
		s.after()
	}
	return nil
}

func (s *Server) run(w http.ResponseWriter, f func(d *ssd1306.Dev) error) {
	if err := s.Do(f); err != nil {
		logrus.Warningf("Display operation failed: %v", err)
		errorMessage(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	errorStatus(w, http.StatusOK)
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	dc := gg.NewContextForImage(s.view)
	s.lock.Unlock()
	w.Header().Set("Content-Type", "image/png")
	if err := dc.EncodePNG(w); err != nil {
		logrus.Warningf("Unable to encode frame: %v", err)
	}
}

func (s *Server) text(w http.ResponseWriter, r *http.Request) {
	var t Text
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		errorMessage(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.run(w, func(d *ssd1306.Dev) error {
		if t.Clear {
			d.Clear()
		}
		d.DrawText(t.X, t.Y, t.Text)
		return d.Flush()
	})
}

func (s *Server) rect(w http.ResponseWriter, r *http.Request) {
	var rc Rect
	if err := json.NewDecoder(r.Body).Decode(&rc); err != nil {
		errorMessage(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.run(w, func(d *ssd1306.Dev) error {
		d.FillRect(rc.X, rc.Y, rc.W, rc.H, rc.On)
		return d.Flush()
	})
}

func (s *Server) line(w http.ResponseWriter, r *http.Request) {
	var l Line
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		errorMessage(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.run(w, func(*ssd1306.Dev) error {
		return s.console.Println(l.Line)
	})
}

func (s *Server) contrast(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.ParseUint(mux.Vars(r)["level"], 10, 8)
	if err != nil {
		errorStatus(w, http.StatusBadRequest)
		return
	}
	s.run(w, func(d *ssd1306.Dev) error {
		return d.SetContrast(byte(level))
	})
}

func (s *Server) toggle(f func(d *ssd1306.Dev, on bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var on bool
		switch mux.Vars(r)["state"] {
		case "on":
			on = true
		case "off":
		default:
			errorStatus(w, http.StatusBadRequest)
			return
		}
		s.run(w, func(d *ssd1306.Dev) error {
			return f(d, on)
		})
	}
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.Warningf("recovered from panic : [%v] - stack trace : \n [%s]", rec, debug.Stack())
				errorMessage(w, fmt.Sprintf("%v", rec), http.StatusInternalServerError)
			}
		}()
		logrus.Debugf("PATH: %s %s %s", r.Method, r.Host, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func errorStatus(w http.ResponseWriter, status int) {
	errorMessage(w, "", status)
}

func errorMessage(w http.ResponseWriter, title string, status int) {
	m := &ErrorMessage{ErrStatusCode: status, ErrMessage: title}
	if title == "" {
		switch status {
		case http.StatusOK:
			m.ErrMessage = "Ok"
		case http.StatusNotFound:
			m.ErrMessage = "Page not found"
		case http.StatusMethodNotAllowed:
			m.ErrMessage = "Method not allowed"
		case http.StatusBadRequest:
			m.ErrMessage = "Bad request"
		default:
			m.ErrMessage = "Internal error"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(m)
}
