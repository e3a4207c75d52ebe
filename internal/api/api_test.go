// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package api

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/oled/sim"
	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/google/go-cmp/cmp"
)

func newServer(t *testing.T) (*Server, *sim.Panel, *int) {
	t.Helper()
	p := sim.NewPanel(ssd1306.Addr, 128, 64)
	d, err := ssd1306.NewI2C(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	return New(d, p, func() { n++ }), p, &n
}

func do(t *testing.T, s *Server, method, path, body string) (int, ErrorMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var m ErrorMessage
	if rec.Header().Get("Content-Type") != "application/json" {
		return rec.Code, m
	}
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return rec.Code, m
}

func TestIsAlive(t *testing.T) {
	s, _, _ := newServer(t)
	code, m := do(t, s, "GET", "/api/is_alive", "")
	if diff := cmp.Diff(m, ErrorMessage{ErrStatusCode: 200, ErrMessage: "Ok"}); diff != "" || code != 200 {
		t.Errorf("is_alive difference (-got +want):\n%s", diff)
	}
}

func TestText(t *testing.T) {
	s, p, n := newServer(t)
	if code, _ := do(t, s, "POST", "/api/text", `{"x": 0, "y": 8, "text": "Hi", "clear": true}`); code != 200 {
		t.Fatalf("text = %d", code)
	}
	want, err := ssd1306.NewI2C(sim.NewPanel(ssd1306.Addr, 128, 64), nil)
	if err != nil {
		t.Fatal(err)
	}
	want.DrawText(0, 8, "Hi")
	if diff := cmp.Diff(p.GDDRAM(), want.Buffer()); diff != "" {
		t.Errorf("GDDRAM() difference (-got +want):\n%s", diff)
	}
	if *n != 1 {
		t.Errorf("after was called %d times", *n)
	}
	if code, _ := do(t, s, "POST", "/api/text", `{"x": `); code != http.StatusBadRequest {
		t.Errorf("malformed text = %d", code)
	}
}

func TestRectAndClear(t *testing.T) {
	s, p, _ := newServer(t)
	if code, _ := do(t, s, "POST", "/api/rect", `{"x": 0, "y": 0, "w": 8, "h": 8, "on": true}`); code != 200 {
		t.Fatalf("rect = %d", code)
	}
	if !p.Lit(7, 7) || p.Lit(8, 8) {
		t.Error("rect was not drawn")
	}
	if code, _ := do(t, s, "POST", "/api/clear", ""); code != 200 {
		t.Fatalf("clear = %d", code)
	}
	if p.Lit(7, 7) {
		t.Error("clear left pixels on")
	}
}

func TestRectLarge(t *testing.T) {
	s, p, _ := newServer(t)
	start := time.Now()
	if code, _ := do(t, s, "POST", "/api/rect", `{"x": -1099511627776, "y": 0, "w": 1099511627777, "h": 1, "on": true}`); code != 200 {
		t.Fatalf("rect = %d", code)
	}
	if dt := time.Since(start); dt > time.Second {
		t.Errorf("rect took %s", dt)
	}
	if !p.Lit(0, 0) || p.Lit(1, 0) {
		t.Error("rect was not clipped to the panel")
	}
}

func TestConsole(t *testing.T) {
	s, p, _ := newServer(t)
	for _, l := range []string{"one", "two"} {
		if code, _ := do(t, s, "POST", "/api/console", `{"line": "`+l+`"}`); code != 200 {
			t.Fatalf("console = %d", code)
		}
	}
	lit := false
	for x := 0; x < 17; x++ {
		for y := 8; y < 16; y++ {
			lit = lit || p.Lit(x, y)
		}
	}
	if !lit {
		t.Error("the second line is not on the second row")
	}
}

func TestDisplayState(t *testing.T) {
	s, p, _ := newServer(t)
	if code, _ := do(t, s, "PUT", "/api/contrast/12", ""); code != 200 || p.Contrast() != 12 {
		t.Errorf("contrast = %d, %d", code, p.Contrast())
	}
	for _, path := range []string{"/api/contrast/256", "/api/contrast/x", "/api/power/maybe"} {
		if code, _ := do(t, s, "PUT", path, ""); code != http.StatusBadRequest {
			t.Errorf("%s = %d", path, code)
		}
	}
	if code, _ := do(t, s, "PUT", "/api/power/off", ""); code != 200 || p.On() {
		t.Error("power off failed")
	}
	if code, _ := do(t, s, "PUT", "/api/power/on", ""); code != 200 || !p.On() {
		t.Error("power on failed")
	}
	if code, _ := do(t, s, "PUT", "/api/invert/on", ""); code != 200 || !p.Inverted() {
		t.Error("invert failed")
	}
	if code, _ := do(t, s, "GET", "/api/invert/on", ""); code != http.StatusMethodNotAllowed {
		t.Errorf("GET invert = %d", code)
	}
}

func TestBusError(t *testing.T) {
	s, p, n := newServer(t)
	p.SetPresent(false)
	code, m := do(t, s, "PUT", "/api/contrast/1", "")
	if code != http.StatusServiceUnavailable || !strings.Contains(m.ErrMessage, "no acknowledgment") {
		t.Errorf("contrast on a missing panel = %d %q", code, m.ErrMessage)
	}
	if *n != 0 {
		t.Error("after was called on failure")
	}
	if err := s.Do(func(*ssd1306.Dev) error { return errors.New("boom") }); err == nil {
		t.Error("Do() lost the error")
	}
}

func TestFrame(t *testing.T) {
	s, p, _ := newServer(t)
	if err := s.Do(func(d *ssd1306.Dev) error {
		d.SetPixel(5, 5, true)
		return d.Flush()
	}); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/frame", nil))
	if rec.Code != 200 || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("frame = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != p.Bounds() {
		t.Errorf("Bounds() = %v", img.Bounds())
	}
	if r, _, _, _ := img.At(5, 5).RGBA(); r == 0 {
		t.Error("lit pixel is dark in the frame")
	}
	if r, _, _, _ := img.At(6, 5).RGBA(); r != 0 {
		t.Error("dark pixel is lit in the frame")
	}
}

func TestMount(t *testing.T) {
	s, _, _ := newServer(t)
	called := false
	s.Mount("stream", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/stream", nil))
	if !called || rec.Code != 200 {
		t.Errorf("mounted handler was not called: %d", rec.Code)
	}
}
