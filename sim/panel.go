// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sim

import (
	"fmt"
	"image"
	"image/color"

	"github.com/GermanBionicSystems/oled/bitbang"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Controller RAM geometry. It does not depend on the glass size.
const (
	ramWidth = 128
	ramPages = 8
	ramRows  = ramPages * 8

	maxLog = 1024
)

// Addressing modes set by command 0x20.
const (
	horizontal = 0
	vertical   = 1
	pageMode   = 2
)

// Panel models an SSD1306 controller and its glass.
//
// Bytes arrive as control byte / payload pairs: bit 7 of the control byte
// (Co) means a single byte follows, bit 6 (D/C) selects data instead of a
// command. Commands may span several transactions.
//
// The glass shows the GDDRAM upright with the segment remap and reversed COM
// scan that SSD1306 modules are usually mounted with; clearing either flips
// the image.
type Panel struct {
	addr    uint16
	w, h    int
	present bool

	ram []byte

	// Transaction state.
	needCtl bool
	ctl     byte
	pending []byte
	log     [][]byte

	// Controller registers.
	contrast   byte
	on         bool
	inverted   bool
	entireOn   bool
	segRemap   bool
	comRemap   bool
	startLine  int
	offset     int
	chargePump bool
	scrolling  bool
	mode       byte
	colStart   int
	colEnd     int
	pageStart  int
	pageEnd    int
	col        int
	page       int

	speed physic.Frequency
}

// NewPanel returns a powered-off controller, in its reset state, that
// answers on addr. The glass is w×h pixels.
func NewPanel(addr uint16, w, h int) *Panel {
	p := &Panel{addr: addr, w: w, h: h, present: true, ram: make([]byte, ramWidth*ramPages)}
	p.reset()
	return p
}

func (p *Panel) reset() {
	p.needCtl = true
	p.pending = nil
	p.contrast = 0x7F
	p.on = false
	p.inverted = false
	p.entireOn = false
	p.segRemap = false
	p.comRemap = false
	p.startLine = 0
	p.offset = 0
	p.chargePump = false
	p.scrolling = false
	p.mode = pageMode
	p.colStart, p.colEnd = 0, ramWidth-1
	p.pageStart, p.pageEnd = 0, ramPages-1
	p.col, p.page = 0, 0
}

// SetPresent connects or disconnects the panel. A disconnected panel never
// acknowledges its address.
func (p *Panel) SetPresent(present bool) {
	p.present = present
}

// Select implements Target.
func (p *Panel) Select(addr uint16, read bool) bool {
	if !p.present || addr != p.addr {
		return false
	}
	p.needCtl = !read
	return true
}

// WriteByte implements Target.
func (p *Panel) WriteByte(b byte) bool {
	if p.needCtl {
		p.ctl = b
		p.needCtl = false
		return true
	}
	if p.ctl&0x40 != 0 {
		p.data(b)
	} else {
		p.command(b)
	}
	if p.ctl&0x80 != 0 {
		p.needCtl = true
	}
	return true
}

// ReadByte implements Target. It returns the status register: bit 6 is set
// while the display is off.
func (p *Panel) ReadByte() byte {
	if p.on {
		return 0
	}
	return 0x40
}

// Stop implements Target.
func (p *Panel) Stop() {
	p.needCtl = true
}

// String implements i2c.Bus.
func (p *Panel) String() string {
	return "sim.Panel"
}

// Tx implements i2c.Bus.
//
// It delivers w to the controller as if it had been sent on a wire. Missing
// acknowledgments are reported like bitbang does.
func (p *Panel) Tx(addr uint16, w, r []byte) error {
	defer p.Stop()
	if len(w) != 0 || len(r) == 0 {
		if !p.Select(addr, false) {
			return fmt.Errorf("sim: %#x: address: %w", addr, bitbang.ErrNoAck)
		}
		for n, b := range w {
			if !p.WriteByte(b) {
				return fmt.Errorf("sim: %#x: byte %d: %w", addr, n, bitbang.ErrNoAck)
			}
		}
	}
	if len(r) != 0 {
		p.Stop()
		if !p.Select(addr, true) {
			return fmt.Errorf("sim: %#x: address: %w", addr, bitbang.ErrNoAck)
		}
		for n := range r {
			r[n] = p.ReadByte()
		}
	}
	return nil
}

// SetSpeed implements i2c.Bus.
func (p *Panel) SetSpeed(f physic.Frequency) error {
	p.speed = f
	return nil
}

// Speed returns the last speed set with SetSpeed.
func (p *Panel) Speed() physic.Frequency {
	return p.speed
}

// Close implements i2c.BusCloser.
func (p *Panel) Close() error {
	return nil
}

// GDDRAM returns a copy of the controller RAM: 8 pages of 128 columns, bit
// 0 of each byte is the top row of the page.
func (p *Panel) GDDRAM() []byte {
	return append([]byte(nil), p.ram...)
}

// Commands returns the most recent commands executed, with their
// arguments.
func (p *Panel) Commands() [][]byte {
	out := make([][]byte, len(p.log))
	for i, c := range p.log {
		out[i] = append([]byte(nil), c...)
	}
	return out
}

// ClearLog forgets the executed commands.
func (p *Panel) ClearLog() {
	p.log = nil
}

// Contrast returns the contrast register.
func (p *Panel) Contrast() byte {
	return p.contrast
}

// On returns whether the display is powered.
func (p *Panel) On() bool {
	return p.on
}

// Inverted returns whether the display is inverted.
func (p *Panel) Inverted() bool {
	return p.inverted
}

// Scrolling returns whether a scroll is active.
func (p *Panel) Scrolling() bool {
	return p.scrolling
}

// ChargePump returns whether the charge pump is enabled.
func (p *Panel) ChargePump() bool {
	return p.chargePump
}

// StartLine returns the display start line.
func (p *Panel) StartLine() int {
	return p.startLine
}

// ColorModel implements image.Image.
func (p *Panel) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements image.Image.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w, p.h)
}

// At implements image.Image. Lit pixels are brighter with a higher
// contrast, nothing is lit while the display is off.
func (p *Panel) At(x, y int) color.Color {
	if !p.Lit(x, y) {
		return color.Gray{}
	}
	return color.Gray{Y: 0x40 + byte(int(p.contrast)*0xBF/0xFF)}
}

// Lit returns whether the glass pixel at (x, y) emits light.
func (p *Panel) Lit(x, y int) bool {
	if !p.on || x < 0 || y < 0 || x >= p.w || y >= p.h {
		return false
	}
	if !p.segRemap {
		x = p.w - 1 - x
	}
	if !p.comRemap {
		y = p.h - 1 - y
	}
	row := (y + p.startLine + p.offset) % ramRows
	lit := p.entireOn || p.ram[x+(row/8)*ramWidth]&(1<<uint(row&7)) != 0
	return lit != p.inverted
}

// argCount returns the number of argument bytes following command c.
func argCount(c byte) int {
	switch c {
	case 0x20, 0x81, 0x8D, 0xA8, 0xD3, 0xD5, 0xD9, 0xDA, 0xDB:
		return 1
	case 0x21, 0x22, 0xA3:
		return 2
	case 0x29, 0x2A:
		return 5
	case 0x26, 0x27:
		return 6
	}
	return 0
}

func (p *Panel) command(b byte) {
	p.pending = append(p.pending, b)
	if len(p.pending) <= argCount(p.pending[0]) {
		return
	}
	c := p.pending
	p.pending = nil
	if len(p.log) == maxLog {
		copy(p.log, p.log[1:])
		p.log = p.log[:maxLog-1]
	}
	p.log = append(p.log, c)
	switch op := c[0]; {
	case op <= 0x0F:
		p.col = p.col&0xF0 | int(op)
	case op <= 0x1F:
		p.col = p.col&0x0F | int(op&0x07)<<4
	case op == 0x20:
		p.mode = c[1] & 3
	case op == 0x21:
		p.colStart, p.colEnd = int(c[1]&0x7F), int(c[2]&0x7F)
		p.col = p.colStart
	case op == 0x22:
		p.pageStart, p.pageEnd = int(c[1]&7), int(c[2]&7)
		p.page = p.pageStart
	case op == 0x26 || op == 0x27 || op == 0x29 || op == 0x2A:
	case op == 0x2E:
		p.scrolling = false
	case op == 0x2F:
		p.scrolling = true
	case op >= 0x40 && op <= 0x7F:
		p.startLine = int(op & 0x3F)
	case op == 0x81:
		p.contrast = c[1]
	case op == 0x8D:
		p.chargePump = c[1]&0x04 != 0
	case op == 0xA0 || op == 0xA1:
		p.segRemap = op == 0xA1
	case op == 0xA4 || op == 0xA5:
		p.entireOn = op == 0xA5
	case op == 0xA6 || op == 0xA7:
		p.inverted = op == 0xA7
	case op == 0xAE || op == 0xAF:
		p.on = op == 0xAF
	case op >= 0xB0 && op <= 0xB7:
		p.page = int(op & 7)
	case op == 0xC0 || op == 0xC8:
		p.comRemap = op == 0xC8
	case op == 0xD3:
		p.offset = int(c[1] & 0x3F)
	}
}

func (p *Panel) data(b byte) {
	p.ram[p.col+p.page*ramWidth] = b
	switch p.mode {
	case horizontal:
		if p.col++; p.col > p.colEnd {
			p.col = p.colStart
			if p.page++; p.page > p.pageEnd {
				p.page = p.pageStart
			}
		}
	case vertical:
		if p.page++; p.page > p.pageEnd {
			p.page = p.pageStart
			if p.col++; p.col > p.colEnd {
				p.col = p.colStart
			}
		}
	default:
		if p.col++; p.col >= ramWidth {
			p.col = 0
		}
	}
}

var _ i2c.BusCloser = &Panel{}
var _ Target = &Panel{}
var _ image.Image = &Panel{}
