// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/GermanBionicSystems/oled/bitbang"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func init() {
	sleep = func(time.Duration) {}
}

// cmds returns one single-command transaction per byte.
func cmds(addr uint16, b ...byte) []i2ctest.IO {
	out := make([]i2ctest.IO, 0, len(b))
	for _, c := range b {
		out = append(out, i2ctest.IO{Addr: addr, W: []byte{0x80, c}})
	}
	return out
}

func flushOps(addr uint16, w, h int, fb []byte) []i2ctest.IO {
	ops := cmds(addr, 0x21, 0, byte(w-1), 0x22, 0, byte(h/8-1))
	return append(ops, i2ctest.IO{Addr: addr, W: append([]byte{0x40}, fb...)})
}

var initSequence = []byte{
	0xAE,
	0xD5, 0x80,
	0xA8, 0x3F,
	0xD3, 0x00,
	0x40,
	0x8D, 0x14,
	0x20, 0x00,
	0xA1,
	0xC8,
	0xDA, 0x12,
	0x81, 0xCF,
	0xD9, 0xF1,
	0xDB, 0x40,
	0xA4,
	0xA6,
	0xAF,
}

func diffOps(t *testing.T, name string, got, want []i2ctest.IO) {
	t.Helper()
	if diff := cmp.Diff(got, want, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("%s difference (-got +want):\n%s", name, diff)
	}
}

func newTestDev(t *testing.T) (*Dev, *i2ctest.Record) {
	t.Helper()
	r := &i2ctest.Record{}
	d, err := NewI2C(r, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Ops = nil
	return d, r
}

type speedBus struct {
	i2ctest.Record
	speeds []physic.Frequency
	err    error
}

func (s *speedBus) SetSpeed(f physic.Frequency) error {
	s.speeds = append(s.speeds, f)
	return s.err
}

// nackBus stops acknowledging once fail transactions went through.
type nackBus struct {
	i2ctest.Record
	fail int
}

func (n *nackBus) Tx(addr uint16, w, r []byte) error {
	if len(n.Ops) == n.fail {
		return bitbang.ErrNoAck
	}
	return n.Record.Tx(addr, w, r)
}

func TestNewI2C(t *testing.T) {
	var slept []time.Duration
	sleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleep = func(time.Duration) {} }()

	b := &speedBus{}
	d, err := NewI2C(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := append(cmds(0x3C, initSequence...), flushOps(0x3C, 128, 64, make([]byte, 1024))...)
	diffOps(t, "NewI2C()", b.Ops, want)
	if diff := cmp.Diff(b.speeds, []physic.Frequency{400 * physic.KiloHertz}); diff != "" {
		t.Errorf("SetSpeed() difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(slept, []time.Duration{time.Millisecond}); diff != "" {
		t.Errorf("power up delay difference (-got +want):\n%s", diff)
	}
	if got := d.Bounds(); got != image.Rect(0, 0, 128, 64) {
		t.Errorf("Bounds() = %v", got)
	}
	if got := len(d.Buffer()); got != 1024 {
		t.Errorf("len(Buffer()) = %d, want 1024", got)
	}
	if got, want := d.String(), "ssd1306.Dev{record(60), (128,64)}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if d.ColorModel() != image1bit.BitModel {
		t.Error("ColorModel() is not image1bit.BitModel")
	}
}

func TestNewI2COpts(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts Opts
		addr uint16
		want []byte
	}{
		{
			name: "128x32 sequential",
			opts: Opts{W: 128, H: 32, Sequential: true},
			addr: 0x3C,
			want: []byte{0xAE, 0xD5, 0x80, 0xA8, 0x1F, 0xD3, 0x00, 0x40, 0x8D, 0x14, 0x20, 0x00, 0xA1, 0xC8, 0xDA, 0x02, 0x81, 0xCF, 0xD9, 0xF1, 0xDB, 0x40, 0xA4, 0xA6, 0xAF},
		},
		{
			name: "mirrored, alternate address",
			opts: Opts{W: 64, H: 48, Addr: AddrAlt, MirrorVertical: true, MirrorHorizontal: true, SwapTopBottom: true},
			addr: 0x3D,
			want: []byte{0xAE, 0xD5, 0x80, 0xA8, 0x2F, 0xD3, 0x00, 0x40, 0x8D, 0x14, 0x20, 0x00, 0xA0, 0xC0, 0xDA, 0x32, 0x81, 0xCF, 0xD9, 0xF1, 0xDB, 0x40, 0xA4, 0xA6, 0xAF},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &i2ctest.Record{}
			if _, err := NewI2C(r, &tc.opts); err != nil {
				t.Fatal(err)
			}
			want := append(cmds(tc.addr, tc.want...), flushOps(tc.addr, tc.opts.W, tc.opts.H, make([]byte, tc.opts.W*tc.opts.H/8))...)
			diffOps(t, "NewI2C()", r.Ops, want)
		})
	}
}

func TestNewI2CInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts Opts
	}{
		{"width zero", Opts{W: 0, H: 64}},
		{"width odd", Opts{W: 100, H: 64}},
		{"width too large", Opts{W: 136, H: 64}},
		{"height zero", Opts{W: 128, H: 0}},
		{"height odd", Opts{W: 128, H: 30}},
		{"height too large", Opts{W: 128, H: 128}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &i2ctest.Record{}
			if _, err := NewI2C(r, &tc.opts); err == nil {
				t.Fatal("NewI2C() succeeded")
			}
			if len(r.Ops) != 0 {
				t.Errorf("NewI2C() talked to the device: %v", r.Ops)
			}
		})
	}
	b := &speedBus{err: errors.New("not supported")}
	if _, err := NewI2C(b, nil); err == nil {
		t.Error("NewI2C() ignored the SetSpeed() failure")
	}
}

func TestNewI2CNack(t *testing.T) {
	for _, fail := range []int{0, 1, 12, len(initSequence), len(initSequence) + 6} {
		b := &nackBus{fail: fail}
		if _, err := NewI2C(b, nil); !errors.Is(err, bitbang.ErrNoAck) {
			t.Errorf("NewI2C() failing at %d = %v, want ErrNoAck", fail, err)
		}
		if len(b.Ops) != fail {
			t.Errorf("NewI2C() failing at %d continued for %d transactions", fail, len(b.Ops)-fail)
		}
	}
}

func TestSetPixelLayout(t *testing.T) {
	d, _ := newTestDev(t)
	d.SetPixel(10, 20, true)
	buf := d.Buffer()
	// Page 2, bit 4.
	if buf[266] != 0x10 {
		t.Fatalf("Buffer()[266] = %#x, want 0x10", buf[266])
	}
	for i, b := range buf {
		if i != 266 && b != 0 {
			t.Errorf("Buffer()[%d] = %#x, want 0", i, b)
		}
	}
	d.SetPixel(0, 0, true)
	d.SetPixel(127, 63, true)
	if buf[0] != 0x01 || buf[1023] != 0x80 {
		t.Errorf("corners = %#x/%#x", buf[0], buf[1023])
	}
	if !d.Pixel(10, 20) || d.Pixel(11, 20) || d.Pixel(-1, 0) {
		t.Error("Pixel() disagrees with SetPixel()")
	}
}

func TestSetPixelRoundTrip(t *testing.T) {
	d, _ := newTestDev(t)
	buf := d.Buffer()
	for i := range buf {
		buf[i] = byte(i*7 + 3)
	}
	prev := append([]byte(nil), buf...)
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			i := x + (y/8)*128
			before := buf[i]
			d.SetPixel(x, y, true)
			d.SetPixel(x, y, false)
			d.SetPixel(x, y, before&(1<<uint(y&7)) != 0)
			if buf[i] != before {
				t.Fatalf("SetPixel(%d, %d) round trip = %#x, want %#x", x, y, buf[i], before)
			}
		}
	}
	if !bytes.Equal(buf, prev) {
		t.Error("round trip changed the framebuffer")
	}
	d.Clear()
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			d.SetPixel(x, y, true)
			d.SetPixel(x, y, false)
		}
	}
	if !bytes.Equal(buf, make([]byte, 1024)) {
		t.Error("on/off round trip left pixels on")
	}
}

func TestSetPixelClipping(t *testing.T) {
	d, r := newTestDev(t)
	for _, p := range []image.Point{{-1, 0}, {128, 0}, {0, -1}, {0, 64}, {-100, -100}, {1000, 1000}} {
		d.SetPixel(p.X, p.Y, true)
	}
	if !bytes.Equal(d.Buffer(), make([]byte, 1024)) {
		t.Error("out of bounds SetPixel() modified the framebuffer")
	}
	if len(r.Ops) != 0 {
		t.Error("SetPixel() talked to the device")
	}
}

func TestClear(t *testing.T) {
	d, r := newTestDev(t)
	d.FillRect(0, 0, 128, 64, true)
	d.Clear()
	if !bytes.Equal(d.Buffer(), make([]byte, 1024)) {
		t.Error("Clear() left pixels on")
	}
	if len(r.Ops) != 0 {
		t.Error("Clear() talked to the device")
	}
}

func TestFillRect(t *testing.T) {
	d, _ := newTestDev(t)
	d.FillRect(0, 0, 8, 8, true)
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			if want := x < 8 && y < 8; d.Pixel(x, y) != want {
				t.Fatalf("Pixel(%d, %d) = %t, want %t", x, y, !want, want)
			}
		}
	}
	want := make([]byte, 1024)
	for i := 0; i < 8; i++ {
		want[i] = 0xFF
	}
	if diff := cmp.Diff(d.Buffer(), want); diff != "" {
		t.Errorf("Buffer() difference (-got +want):\n%s", diff)
	}

	// Partially outside, then clear a hole.
	d.Clear()
	d.FillRect(124, 60, 10, 10, true)
	d.FillRect(125, 61, 1, 1, false)
	n := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			if d.Pixel(x, y) {
				n++
			}
		}
	}
	if n != 4*4-1 || d.Pixel(125, 61) || !d.Pixel(127, 63) {
		t.Errorf("FillRect() clipped to %d pixels", n)
	}
	d.FillRect(0, 0, -5, 3, true)
	d.FillRect(0, 0, 3, 0, true)
	if d.Pixel(0, 0) {
		t.Error("empty FillRect() drew")
	}
}

func TestFillRectLarge(t *testing.T) {
	d, _ := newTestDev(t)
	start := time.Now()
	d.FillRect(-1<<40, 0, 1<<40+1, 1, true)
	d.FillRect(127, 63, 1<<40, 1<<40, true)
	if dt := time.Since(start); dt > time.Second {
		t.Errorf("FillRect() took %s", dt)
	}
	want := make([]byte, 1024)
	want[0] = 0x01
	want[1023] = 0x80
	if diff := cmp.Diff(d.Buffer(), want); diff != "" {
		t.Errorf("Buffer() difference (-got +want):\n%s", diff)
	}
}

func glyphAt(d *Dev, x, y int) [5]byte {
	var g [5]byte
	for i := 0; i < 5; i++ {
		for j := 0; j < 8; j++ {
			if d.Pixel(x+i, y+j) {
				g[i] |= 1 << uint(j)
			}
		}
	}
	return g
}

func TestDrawGlyph(t *testing.T) {
	d, _ := newTestDev(t)
	d.DrawGlyph(3, 5, 'A')
	if got, want := glyphAt(d, 3, 5), [5]byte{0x7E, 0x11, 0x11, 0x11, 0x7E}; got != want {
		t.Errorf("DrawGlyph('A') = %#v, want %#v", got, want)
	}
	// Only set bits are drawn.
	d.FillRect(20, 0, 5, 8, true)
	d.DrawGlyph(20, 0, 'A')
	if got := glyphAt(d, 20, 0); got != [5]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF} {
		t.Errorf("DrawGlyph() cleared pixels: %#v", got)
	}
	d.Clear()
	for _, c := range []byte{0, '\t', 0x7F, 0xC3} {
		d.DrawGlyph(0, 0, c)
	}
	if !bytes.Equal(d.Buffer(), make([]byte, 1024)) {
		t.Error("non printable characters must render as a space")
	}
	// Clipped at the edges.
	d.DrawGlyph(125, 60, 'A')
	if got := glyphAt(d, 125, 60); got != [5]byte{0x0E, 0x01, 0x01} {
		t.Errorf("clipped DrawGlyph() = %#v", got)
	}
}

func TestDrawText(t *testing.T) {
	d, _ := newTestDev(t)
	d.DrawText(0, 0, "AB\nC")
	if got := glyphAt(d, 0, 0); got != [5]byte{0x7E, 0x11, 0x11, 0x11, 0x7E} {
		t.Errorf("'A' = %#v", got)
	}
	if got := glyphAt(d, 6, 0); got != [5]byte{0x7F, 0x49, 0x49, 0x49, 0x36} {
		t.Errorf("'B' = %#v", got)
	}
	if got := glyphAt(d, 0, 8); got != [5]byte{0x3E, 0x41, 0x41, 0x41, 0x22} {
		t.Errorf("'C' = %#v", got)
	}
	for y := 0; y < 8; y++ {
		if d.Pixel(5, y) || d.Pixel(11, y) {
			t.Fatalf("spacing column %d is not blank", y)
		}
	}
}

func TestDrawTextWrap(t *testing.T) {
	d, _ := newTestDev(t)
	n := 128 / CharWidth
	d.DrawText(0, 0, string(bytes.Repeat([]byte{'A'}, n))+"B")
	for i := 0; i < n; i++ {
		if got := glyphAt(d, i*CharWidth, 0); got != [5]byte{0x7E, 0x11, 0x11, 0x11, 0x7E} {
			t.Fatalf("char %d = %#v", i, got)
		}
	}
	if got := glyphAt(d, 0, 8); got != [5]byte{0x7F, 0x49, 0x49, 0x49, 0x36} {
		t.Errorf("wrapped char = %#v, want 'B' at row 8", got)
	}
	for x := n * CharWidth; x < 128; x++ {
		for y := 0; y < 8; y++ {
			if d.Pixel(x, y) {
				t.Fatalf("pixel (%d, %d) drawn past the last full cell", x, y)
			}
		}
	}

	// Wrapping returns to the starting column.
	d.Clear()
	d.DrawText(10, 16, "ABCDEFGHIJKLMNOPQRSTU")
	if got := glyphAt(d, 10, 24); got == [5]byte{} {
		t.Error("wrapped text must restart at the starting column")
	}
	if got := glyphAt(d, 10, 16); got != [5]byte{0x7E, 0x11, 0x11, 0x11, 0x7E} {
		t.Errorf("first char = %#v", got)
	}
}

func TestDrawTextUnicode(t *testing.T) {
	d, _ := newTestDev(t)
	d.DrawText(0, 0, "é!")
	if got := glyphAt(d, 0, 0); got != [5]byte{} {
		t.Errorf("non ASCII rune = %#v, want a space", got)
	}
	if got := glyphAt(d, 6, 0); got != [5]byte{0x00, 0x00, 0x5F, 0x00, 0x00} {
		t.Errorf("'!' = %#v, want one cell after the space", got)
	}
}

func TestFlush(t *testing.T) {
	d, r := newTestDev(t)
	d.SetPixel(1, 9, true)
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	fb := make([]byte, 1024)
	fb[129] = 0x02
	diffOps(t, "Flush()", r.Ops, flushOps(0x3C, 128, 64, fb))
}

func TestFlushNack(t *testing.T) {
	d, _ := newTestDev(t)
	b := &nackBus{fail: 6}
	d.c = &i2c.Dev{Bus: b, Addr: Addr}
	if err := d.Flush(); !errors.Is(err, bitbang.ErrNoAck) {
		t.Errorf("Flush() = %v, want ErrNoAck", err)
	}
}

func TestCommands(t *testing.T) {
	d, r := newTestDev(t)
	for _, tc := range []struct {
		name string
		f    func() error
		want []byte
	}{
		{"SetContrast", func() error { return d.SetContrast(0x7F) }, []byte{0x81, 0x7F}},
		{"SetPower(false)", func() error { return d.SetPower(false) }, []byte{0xAE}},
		{"SetPower(true)", func() error { return d.SetPower(true) }, []byte{0xAF}},
		{"Halt", d.Halt, []byte{0xAE}},
		{"Invert(true)", func() error { return d.Invert(true) }, []byte{0xA7}},
		{"Invert(false)", func() error { return d.Invert(false) }, []byte{0xA6}},
		{"Scroll(Left)", func() error { return d.Scroll(Left, FrameRate2, 0, -1) }, []byte{0x27, 0x00, 0x00, 0x07, 0x07, 0x00, 0xFF, 0x2F}},
		{"Scroll(UpRight)", func() error { return d.Scroll(UpRight, FrameRate5, 8, 32) }, []byte{0x29, 0x00, 0x01, 0x00, 0x03, 0x01, 0x2F}},
		{"StopScroll", d.StopScroll, []byte{0x2E}},
		{"SetDisplayStartLine", func() error { return d.SetDisplayStartLine(12) }, []byte{0x4C}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r.Ops = nil
			before := append([]byte(nil), d.Buffer()...)
			if err := tc.f(); err != nil {
				t.Fatal(err)
			}
			diffOps(t, tc.name, r.Ops, cmds(0x3C, tc.want...))
			if !bytes.Equal(d.Buffer(), before) {
				t.Errorf("%s modified the framebuffer", tc.name)
			}
		})
	}
}

func TestCommandsInvalid(t *testing.T) {
	d, r := newTestDev(t)
	for _, err := range []error{
		d.Scroll(Left, FrameRate2, 8, 8),
		d.Scroll(Left, FrameRate2, 3, -1),
		d.Scroll(Left, FrameRate2, 0, 65),
		d.Scroll(Left, FrameRate2, 0, 12),
		d.SetDisplayStartLine(64),
	} {
		if err == nil {
			t.Error("invalid command succeeded")
		}
	}
	if len(r.Ops) != 0 {
		t.Errorf("invalid commands talked to the device: %v", r.Ops)
	}
}

func TestWrite(t *testing.T) {
	d, r := newTestDev(t)
	if _, err := d.Write(make([]byte, 10)); err == nil {
		t.Error("Write() accepted a short buffer")
	}
	pix := bytes.Repeat([]byte{0xAA}, 1024)
	if n, err := d.Write(pix); err != nil || n != 1024 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	diffOps(t, "Write()", r.Ops, flushOps(0x3C, 128, 64, pix))
}

func TestDraw(t *testing.T) {
	d, r := newTestDev(t)
	img := image1bit.NewVerticalLSB(d.Bounds())
	img.SetBit(3, 3, image1bit.On)
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if !d.Pixel(3, 3) {
		t.Error("Draw() fast path did not copy")
	}

	r.Ops = nil
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	src.SetGray(1, 2, color.Gray{Y: 255})
	if err := d.Draw(image.Rect(100, 50, 104, 54), src, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if !d.Pixel(101, 52) || d.Pixel(100, 50) {
		t.Error("Draw() did not convert the source image")
	}
	if d.Pixel(3, 3) != true {
		t.Error("Draw() outside of r modified the framebuffer")
	}
	if len(r.Ops) != 7 {
		t.Errorf("Draw() did %d transactions, want a full flush", len(r.Ops))
	}
}

func TestDisplayer(t *testing.T) {
	d, r := newTestDev(t)
	p := d.Displayer()
	if x, y := p.Size(); x != 128 || y != 64 {
		t.Errorf("Size() = %d, %d", x, y)
	}
	p.SetPixel(5, 6, color.RGBA{255, 255, 255, 255})
	p.SetPixel(6, 6, color.RGBA{0, 0, 0, 255})
	p.SetPixel(-1, 200, color.RGBA{255, 255, 255, 255})
	if !d.Pixel(5, 6) || d.Pixel(6, 6) {
		t.Error("SetPixel() did not threshold")
	}
	if err := p.Display(); err != nil {
		t.Fatal(err)
	}
	if len(r.Ops) != 7 {
		t.Errorf("Display() did %d transactions, want a full flush", len(r.Ops))
	}
}
