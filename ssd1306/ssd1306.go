// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	_CHARGEPUMP          = 0x8D
	_COLUMNADDR          = 0x21
	_COMSCANDEC          = 0xC8
	_COMSCANINC          = 0xC0
	_DEACTIVATE_SCROLL   = 0x2E
	_DISPLAYALLON_RESUME = 0xA4
	_DISPLAYOFF          = 0xAE
	_DISPLAYON           = 0xAF
	_INVERTDISPLAY       = 0xA7
	_MEMORYMODE          = 0x20
	_NORMALDISPLAY       = 0xA6
	_PAGEADDR            = 0x22
	_SEGREMAP            = 0xA0
	_SETCOMPINS          = 0xDA
	_SETCONTRAST         = 0x81
	_SETDISPLAYCLOCKDIV  = 0xD5
	_SETDISPLAYOFFSET    = 0xD3
	_SETMULTIPLEX        = 0xA8
	_SETPRECHARGE        = 0xD9
	_SETSEGMENTREMAP     = 0xA1
	_SETSTARTLINE        = 0x40
	_SETVCOMDETECT       = 0xDB
)

const (
	i2cCmd  = 0x80 // I²C transaction has a single command byte
	i2cData = 0x40 // I²C transaction has stream of data bytes
)

// FastMode is the bus speed set by NewI2C.
const FastMode = 400 * physic.KiloHertz

// FrameRate determines scrolling speed.
type FrameRate byte

// Possible frame rates. The value determines the number of refreshes between
// movement. The lower value, the higher speed.
const (
	FrameRate2   FrameRate = 7
	FrameRate3   FrameRate = 4
	FrameRate4   FrameRate = 5
	FrameRate5   FrameRate = 0
	FrameRate25  FrameRate = 6
	FrameRate64  FrameRate = 1
	FrameRate128 FrameRate = 2
	FrameRate256 FrameRate = 3
)

// Orientation is used for scrolling.
type Orientation byte

// Possible orientations for scrolling.
const (
	Left    Orientation = 0x27
	Right   Orientation = 0x26
	UpRight Orientation = 0x29
	UpLeft  Orientation = 0x2A
)

// Common I²C addresses, selected by the SA0 pin.
const (
	Addr    uint16 = 0x3C
	AddrAlt uint16 = 0x3D
)

// DefaultOpts is the recommended default options for a 128x64 panel.
var DefaultOpts = Opts{
	W:            128,
	H:            64,
	Addr:         Addr,
	PowerUpDelay: time.Millisecond,
}

// Opts defines the options for the device.
type Opts struct {
	W int
	H int
	// The I2C address of the display.
	Addr uint16
	// PowerUpDelay is waited before the first command so the panel supply
	// can stabilize.
	PowerUpDelay time.Duration
	// Sequential corresponds to the Sequential/Alternative COM pin configuration
	// in the OLED panel hardware. Try toggling this if half the rows appear to be
	// missing on your display. Particularly on 32 pixel height displays.
	Sequential bool
	// MirrorVertical corresponds to the COM remap configuration in the OLED panel
	// hardware. Try toggling this if the display is flipped vertically.
	MirrorVertical bool
	// MirrorHorizontal corresponds to the SEG remap configuration in the OLED panel
	// hardware. Try toggling this if the display is flipped horizontally.
	MirrorHorizontal bool
	// SwapTopBottom corresponds to the Left/Right remap COM pin configuration in
	// the OLED panel hardware. Try toggling this if the top and bottom halves of
	// your display are swapped.
	SwapTopBottom bool
}

// sleep is replaced in tests.
var sleep = time.Sleep

// NewI2C returns a Dev object that communicates over I²C to a SSD1306 display
// controller.
//
// The bus is set to FastMode, then the controller is brought up and the
// display is cleared. Any command that is not acknowledged aborts the
// sequence; the error then wraps the bus error, e.g. bitbang.ErrNoAck, so a
// missing display is reported.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Addr == 0 {
		o.Addr = DefaultOpts.Addr
	}
	if o.W < 8 || o.W > 128 || o.W&7 != 0 {
		return nil, fmt.Errorf("ssd1306: invalid width %d", o.W)
	}
	if o.H < 8 || o.H > 64 || o.H&7 != 0 {
		return nil, fmt.Errorf("ssd1306: invalid height %d", o.H)
	}
	// Maximum clock speed is 1/2.5µs = 400KHz.
	if err := b.SetSpeed(FastMode); err != nil {
		return nil, fmt.Errorf("ssd1306: %w", err)
	}
	d := newDev(&i2c.Dev{Bus: b, Addr: o.Addr}, &o)
	sleep(o.PowerUpDelay)
	if err := d.sendCommand(getInitCmd(&o)...); err != nil {
		return nil, err
	}
	d.Clear()
	if err := d.Flush(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is an open handle to the display controller.
type Dev struct {
	c    conn.Conn
	rect image.Rectangle

	// tx is the whole data transfer: the data stream control byte followed
	// by the framebuffer, so Flush() sends it without copying.
	//
	// There is 8 pages, each covering an horizontal band of 8 pixels high (1
	// byte) for 128 bytes. 8*128 = 1024 bytes total for 128x64 display.
	tx []byte
	fb *image1bit.VerticalLSB
}

func newDev(c conn.Conn, opts *Opts) *Dev {
	r := image.Rect(0, 0, opts.W, opts.H)
	tx := make([]byte, 1+opts.W*opts.H/8)
	tx[0] = i2cData
	return &Dev{
		c:    c,
		rect: r,
		tx:   tx,
		fb:   &image1bit.VerticalLSB{Pix: tx[1:], Stride: opts.W, Rect: r},
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("ssd1306.Dev{%s, %s}", d.c, d.rect.Max)
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Buffer returns the framebuffer bytes in GDDRAM page layout. Changes are
// visible after the next Flush().
func (d *Dev) Buffer() []byte {
	return d.fb.Pix
}

// Image returns the framebuffer as an image.
func (d *Dev) Image() *image1bit.VerticalLSB {
	return d.fb
}

// Draw implements display.Drawer.
//
// src is rendered into the framebuffer, which is then flushed.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if img, ok := src.(*image1bit.VerticalLSB); ok && r == d.rect && img.Rect == d.rect && sp.X == 0 && sp.Y == 0 {
		// Exact size, full frame, image1bit encoding: fast path!
		copy(d.fb.Pix, img.Pix)
	} else {
		draw.Src.Draw(d.fb, r, src, sp)
	}
	return d.Flush()
}

// Write replaces the framebuffer with pixels and flushes it.
//
// The format is unsual as each byte represent 8 vertical pixels at a time. The
// format is horizontal bands of 8 pixels high.
//
// This function accepts the content of image1bit.VerticalLSB.Pix.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(d.fb.Pix) {
		return 0, fmt.Errorf("ssd1306: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.fb.Pix), len(pixels))
	}
	copy(d.fb.Pix, pixels)
	if err := d.Flush(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Clear zeroes the framebuffer. The display is unchanged until Flush().
func (d *Dev) Clear() {
	for i := range d.fb.Pix {
		d.fb.Pix[i] = 0
	}
}

// Flush sets the addressing window to the whole display and sends the
// framebuffer in one data transfer.
func (d *Dev) Flush() error {
	err := d.sendCommand(
		_COLUMNADDR, 0, byte(d.rect.Dx()-1),
		_PAGEADDR, 0, byte(d.rect.Dy()/8-1),
	)
	if err != nil {
		return err
	}
	if err := d.c.Tx(d.tx, nil); err != nil {
		return fmt.Errorf("ssd1306: data: %w", err)
	}
	return nil
}

// SetContrast changes the screen contrast.
func (d *Dev) SetContrast(level byte) error {
	return d.sendCommand(_SETCONTRAST, level)
}

// SetPower turns the panel on or puts it to sleep. GDDRAM is retained while
// off.
func (d *Dev) SetPower(on bool) error {
	if on {
		return d.sendCommand(_DISPLAYON)
	}
	return d.sendCommand(_DISPLAYOFF)
}

// Halt turns off the display.
func (d *Dev) Halt() error {
	return d.SetPower(false)
}

// Invert the display (black on white vs white on black).
func (d *Dev) Invert(blackOnWhite bool) error {
	if blackOnWhite {
		return d.sendCommand(_INVERTDISPLAY)
	}
	return d.sendCommand(_NORMALDISPLAY)
}

// Scroll scrolls an horizontal band.
//
// Only one scrolling operation can happen at a time.
//
// Both startLine and endLine must be multiples of 8.
//
// Use -1 for endLine to extend to the bottom of the display.
func (d *Dev) Scroll(o Orientation, rate FrameRate, startLine, endLine int) error {
	h := d.rect.Dy()
	if endLine == -1 {
		endLine = h
	}
	if startLine >= endLine {
		return fmt.Errorf("ssd1306: startLine (%d) must be lower than endLine (%d)", startLine, endLine)
	}
	if startLine&7 != 0 || startLine < 0 || startLine >= h {
		return fmt.Errorf("ssd1306: invalid startLine %d", startLine)
	}
	if endLine&7 != 0 || endLine < 0 || endLine > h {
		return fmt.Errorf("ssd1306: invalid endLine %d", endLine)
	}

	startPage := uint8(startLine / 8)
	endPage := uint8(endLine / 8)
	if o == Left || o == Right {
		// page 28
		// <op>, dummy, <start page>, <rate>,  <end page>, <dummy>, <dummy>, <ENABLE>
		return d.sendCommand(byte(o), 0x00, startPage, byte(rate), endPage-1, 0x00, 0xFF, 0x2F)
	}
	// page 29
	// <op>, dummy, <start page>, <rate>,  <end page>, <offset>, <ENABLE>
	return d.sendCommand(byte(o), 0x00, startPage, byte(rate), endPage-1, 0x01, 0x2F)
}

// StopScroll stops any scrolling previously set.
//
// The GDDRAM content is corrupted by scrolling, Flush() afterward.
func (d *Dev) StopScroll() error {
	return d.sendCommand(_DEACTIVATE_SCROLL)
}

// SetDisplayStartLine causes the display to start from startLine, effectively
// scrolling the screen to that position.
//
// startLine must be between 0 and 63.
func (d *Dev) SetDisplayStartLine(startLine byte) error {
	if startLine > 63 {
		return fmt.Errorf("ssd1306: invalid startLine %d", startLine)
	}
	return d.sendCommand(_SETSTARTLINE | startLine)
}

// getInitCmd returns the bring-up sequence. With the default options it is
// the datasheet's recommended flow for a 128x64 panel with the internal
// charge pump, in this exact order.
func getInitCmd(opts *Opts) []byte {
	// Set COM output scan direction; C0 means normal; C8 means reversed
	comScan := byte(_COMSCANDEC)
	if opts.MirrorVertical {
		comScan = _COMSCANINC
	}
	// See page 40.
	segRemap := byte(_SETSEGMENTREMAP)
	if opts.MirrorHorizontal {
		segRemap = _SEGREMAP
	}
	hwLayout := byte(0x02)
	if !opts.Sequential {
		hwLayout |= 0x10
	}
	if opts.SwapTopBottom {
		hwLayout |= 0x20
	}

	// Page 64 has the full recommended flow.
	// Page 28 lists all the commands.
	return []byte{
		_DISPLAYOFF,               // Display off
		_SETDISPLAYCLOCKDIV, 0x80, // Divide ratio 1, oscillator frequency 8 (reset value)
		_SETMULTIPLEX, byte(opts.H - 1), // Set multiplex ratio (number of lines to display)
		_SETDISPLAYOFFSET, 0x00, // Set display offset; 0
		_SETSTARTLINE,     // Start display start line; 0
		_CHARGEPUMP, 0x14, // Enable charge pump regulator; page 62
		_MEMORYMODE, 0x00, // Set memory addressing mode to horizontal
		segRemap,              // Set segment remap; column 127 is SEG0
		comScan,               // Scan from COM[N-1] to COM0
		_SETCOMPINS, hwLayout, // Set COM pins hardware configuration; see page 40
		_SETCONTRAST, 0xCF, // Set contrast
		_SETPRECHARGE, 0xF1, // Phase 1: 1 DCLK, phase 2: 15 DCLKs
		_SETVCOMDETECT, 0x40, // Set Vcomh deselect level; page 32
		_DISPLAYALLON_RESUME, // Set display to use GDDRAM content
		_NORMALDISPLAY,       // Set normal display (_INVERTDISPLAY for inverted 0=lit, 1=dark)
		_DISPLAYON,           // Display on
	}
}

// sendCommand sends each byte in its own transaction, prefixed by the single
// command control byte. It stops at the first failure.
func (d *Dev) sendCommand(c ...byte) error {
	for _, b := range c {
		if err := d.c.Tx([]byte{i2cCmd, b}, nil); err != nil {
			return fmt.Errorf("ssd1306: command %#02x: %w", b, err)
		}
	}
	return nil
}

var _ display.Drawer = &Dev{}
