// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"github.com/GermanBionicSystems/oled/ssd1306/font5x7"
)

const (
	// CharWidth is the horizontal advance of DrawText: a glyph plus one blank
	// column.
	CharWidth = font5x7.Width + 1
	// LineHeight is the vertical advance of DrawText, one page.
	LineHeight = 8
)

// SetPixel sets or clears the pixel at (x, y). Out of bounds coordinates are
// ignored.
func (d *Dev) SetPixel(x, y int, on bool) {
	if x < 0 || y < 0 || x >= d.rect.Max.X || y >= d.rect.Max.Y {
		return
	}
	i := x + (y/8)*d.rect.Max.X
	if on {
		d.fb.Pix[i] |= 1 << uint(y&7)
	} else {
		d.fb.Pix[i] &^= 1 << uint(y&7)
	}
}

// Pixel returns whether the pixel at (x, y) is set. Out of bounds pixels are
// off.
func (d *Dev) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= d.rect.Max.X || y >= d.rect.Max.Y {
		return false
	}
	return d.fb.Pix[x+(y/8)*d.rect.Max.X]&(1<<uint(y&7)) != 0
}

// DrawGlyph draws c with its top-left corner at (x, y). Only the set pixels
// of the glyph are drawn. Non printable characters render as a space.
func (d *Dev) DrawGlyph(x, y int, c byte) {
	g := font5x7.Glyph(c)
	for i, col := range g {
		for j := 0; j < font5x7.Height; j++ {
			if col&(1<<uint(j)) != 0 {
				d.SetPixel(x+i, y+j, true)
			}
		}
	}
}

// DrawText draws s starting at (x, y).
//
// '\n' moves to the next text row at column x. A row also wraps once the
// next character cell would cross the right edge, so no glyph is ever cut.
// Runes outside of ASCII render as a space.
func (d *Dev) DrawText(x, y int, s string) {
	cx := x
	for _, r := range s {
		if r == '\n' {
			cx = x
			y += LineHeight
			continue
		}
		if r > 0x7F {
			r = ' '
		}
		d.DrawGlyph(cx, y, byte(r))
		cx += CharWidth
		if cx+CharWidth > d.rect.Max.X {
			cx = x
			y += LineHeight
		}
	}
}

// FillRect sets or clears every pixel of the w×h rectangle at (x, y). The
// parts outside the display are dropped.
func (d *Dev) FillRect(x, y, w, h int, on bool) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, d.rect.Max.X), min(y+h, d.rect.Max.Y)
	for i := x0; i < x1; i++ {
		for j := y0; j < y1; j++ {
			d.SetPixel(i, j, on)
		}
	}
}
