// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws text with vector and bitmap fonts into images meant
// for a monochrome panel.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Face names accepted by Face.
const (
	Basic   = "basic"
	Bitmap  = "bitmap"
	Regular = "regular"
)

// Face returns the named font face. size only applies to Regular.
func Face(name string, size float64) (font.Face, error) {
	switch name {
	case Basic:
		return basicfont.Face7x13, nil
	case Bitmap:
		return bitmapfont.Face, nil
	case Regular:
		if size <= 0 {
			return nil, fmt.Errorf("render: invalid size %g", size)
		}
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		return truetype.NewFace(f, &truetype.Options{Size: size}), nil
	}
	return nil, fmt.Errorf("render: unknown face %q", name)
}

// Banner returns a w×h image with s centered in white on black, framed by
// a rounded rectangle.
func Banner(w, h int, s string, face font.Face) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(0.5, 0.5, float64(w)-1, float64(h)-1, 6)
	dc.Stroke()
	dc.SetFontFace(face)
	dc.DrawStringAnchored(s, float64(w)/2, float64(h)/2, 0.5, 0.5)
	return dc.Image()
}

// Label draws s with its baseline starting at (x, y), without anti-aliasing.
func Label(dst *image.RGBA, x, y int, s string, face font.Face) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// Width returns the advance of s in pixels.
func Width(s string, face font.Face) int {
	return font.MeasureString(face, s).Ceil()
}
