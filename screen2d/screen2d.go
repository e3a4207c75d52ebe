// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a 2D display.Drawer that outputs to terminal
// (stdout) using ANSI color codes.
//
// Useful to preview what an OLED panel would show, e.g. a sim.Panel, without
// the hardware.
package screen2d

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	X       int
	Y       int
	Palette *ansi256.Palette
	// W receives the output. Defaults to stdout.
	W io.Writer

	_ struct{}
}

// Dev is a monochrome screen emulator that outputs to the console, one
// colored block per pixel.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette

	img    *image.Gray
	frames int
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:       w,
		palette: *p,
		img:     image.NewGray(image.Rect(0, 0, opts.X, opts.Y)),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("Screen2D{%s}", d.img.Rect.Max)
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.img.Rect
}

// Draw implements display.Drawer.
//
// Every call redraws the whole screen in place.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Src.Draw(d.img, r, src, sp)
	return d.refresh()
}

// Image returns the last frame drawn.
func (d *Dev) Image() *image.Gray {
	return d.img
}

func (d *Dev) refresh() error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.frames != 0 {
		// Go back to the top of the previous frame.
		fmt.Fprintf(&d.buf, "\033[%dF", d.img.Rect.Dy())
	}
	for y := d.img.Rect.Min.Y; y < d.img.Rect.Max.Y; y++ {
		_, _ = d.buf.WriteString("\r\033[0m")
		for x := d.img.Rect.Min.X; x < d.img.Rect.Max.X; x++ {
			g := d.img.GrayAt(x, y)
			_, _ = io.WriteString(&d.buf, d.palette.Block(color.NRGBA{g.Y, g.Y, g.Y, 255}))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.frames++
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
