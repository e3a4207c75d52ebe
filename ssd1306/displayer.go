// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
	"tinygo.org/x/drivers"
)

// Displayer returns a view of d usable by TinyGo drawing packages such as
// tinyfont and tinydraw.
//
// Colors are thresholded with image1bit.BitModel.
func (d *Dev) Displayer() drivers.Displayer {
	return displayer{d}
}

type displayer struct {
	d *Dev
}

func (p displayer) Size() (x, y int16) {
	return int16(p.d.rect.Dx()), int16(p.d.rect.Dy())
}

func (p displayer) SetPixel(x, y int16, c color.RGBA) {
	p.d.SetPixel(int(x), int(y), image1bit.BitModel.Convert(c).(image1bit.Bit) == image1bit.On)
}

func (p displayer) Display() error {
	return p.d.Flush()
}
