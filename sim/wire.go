// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sim

import (
	"fmt"

	"github.com/GermanBionicSystems/oled/bitbang"
	"github.com/GermanBionicSystems/oled/esp32c3"
	"github.com/GermanBionicSystems/oled/mmio"
)

// Opts is a bitbang configuration that does not spin. The simulation is
// driven by register writes only, so delays serve no purpose.
var Opts = bitbang.Opts{
	CPU:     bitbang.DefaultOpts.CPU,
	Spinner: bitbang.SpinFunc(func(uint32) {}),
}

// Target is a device on the wire.
type Target interface {
	// Select is called once an address byte was received. It returns
	// whether the device acknowledges it.
	Select(addr uint16, read bool) bool
	// WriteByte receives a byte written by the master. It returns whether
	// the byte is acknowledged.
	WriteByte(b byte) bool
	// ReadByte returns the next byte requested by the master.
	ReadByte() byte
	// Stop ends the transaction, on a stop or a repeated start.
	Stop()
}

// Frame is a decoded transaction.
type Frame struct {
	Addr uint16
	Read bool
	// Data holds the bytes transferred after the address, including the
	// first byte that was not acknowledged.
	Data []byte
	// Nack is set when a byte, or the address, was not acknowledged.
	Nack bool
}

type phase int

const (
	idle phase = iota
	addressing
	writing
	reading
	ignoring
)

// Wire decodes the SCL and SDA pads of an ESP32-C3 register file.
//
// Pads whose output is disabled are pulled up. A target pulls SDA low to
// acknowledge and to send zeros; the input register reflects the wired-AND
// of both sides.
type Wire struct {
	m       *mmio.Mem
	sclN    int
	sdaN    int
	scl     uint32
	sda     uint32
	targets []Target

	sclLevel bool
	sdaLevel bool
	pullLow  bool

	phase    phase
	bits     int
	cur      byte
	target   Target
	tx       byte
	more     bool
	frames   []Frame
	starts   int
	stops    int
	maxFrame int
}

// NewWire installs hooks on the GPIO output, enable and input registers of
// m for the scl and sda pad numbers.
func NewWire(m *mmio.Mem, scl, sda int) *Wire {
	w := &Wire{m: m, sclN: scl, sdaN: sda, scl: 1 << uint(scl), sda: 1 << uint(sda), maxFrame: 256}
	m.OnWrite(esp32c3.GPIOOutW1TS, func(_, v uint32) uint32 {
		w.set(esp32c3.GPIOOut, m.Peek(esp32c3.GPIOOut)|v)
		return 0
	})
	m.OnWrite(esp32c3.GPIOOutW1TC, func(_, v uint32) uint32 {
		w.set(esp32c3.GPIOOut, m.Peek(esp32c3.GPIOOut)&^v)
		return 0
	})
	m.OnWrite(esp32c3.GPIOOut, func(addr, v uint32) uint32 {
		w.set(addr, v)
		return v
	})
	m.OnWrite(esp32c3.GPIOEnable, func(addr, v uint32) uint32 {
		w.set(addr, v)
		return v
	})
	m.OnRead(esp32c3.GPIOIn, func(_, _ uint32) uint32 {
		return w.in()
	})
	w.sclLevel, w.sdaLevel = w.levels()
	return w
}

// Attach connects t to the wire.
func (w *Wire) Attach(t Target) {
	w.targets = append(w.targets, t)
}

// Frames returns the transactions decoded so far. Only the most recent
// ones are kept.
func (w *Wire) Frames() []Frame {
	return append([]Frame(nil), w.frames...)
}

// Reset forgets the decoded transactions.
func (w *Wire) Reset() {
	w.frames = nil
	w.starts = 0
	w.stops = 0
}

// Conditions returns the number of start and stop conditions seen.
func (w *Wire) Conditions() (starts, stops int) {
	return w.starts, w.stops
}

// SCL returns the level of the clock line.
func (w *Wire) SCL() bool {
	return w.sclLevel
}

// SDA returns the level of the data line.
func (w *Wire) SDA() bool {
	return w.sdaLevel
}

func (w *Wire) String() string {
	return fmt.Sprintf("sim.Wire{SCL: GPIO%d, SDA: GPIO%d}", w.sclN, w.sdaN)
}

// set stores v at addr then reacts to the new line levels.
func (w *Wire) set(addr, v uint32) {
	w.m.Poke(addr, v)
	w.update()
}

// driven returns the level the master puts on the pads in mask.
func (w *Wire) driven(mask uint32) bool {
	out := w.m.Peek(esp32c3.GPIOOut)
	en := w.m.Peek(esp32c3.GPIOEnable)
	return en&mask == 0 || out&mask != 0
}

func (w *Wire) levels() (scl, sda bool) {
	return w.driven(w.scl), w.driven(w.sda) && !w.pullLow
}

func (w *Wire) in() uint32 {
	out := w.m.Peek(esp32c3.GPIOOut)
	en := w.m.Peek(esp32c3.GPIOEnable)
	v := (out | ^en) & (1<<esp32c3.NumGPIO - 1)
	if w.pullLow {
		v &^= w.sda
	}
	return v
}

// pull changes the target side of SDA. A change while SCL is high would be
// a start or stop condition; targets only drive SDA while SCL is low.
func (w *Wire) pull(low bool) {
	w.pullLow = low
	_, w.sdaLevel = w.levels()
}

func (w *Wire) update() {
	scl, sda := w.levels()
	prevSCL, prevSDA := w.sclLevel, w.sdaLevel
	w.sclLevel, w.sdaLevel = scl, sda
	switch {
	case scl && prevSCL && prevSDA && !sda:
		w.start()
	case scl && prevSCL && !prevSDA && sda:
		w.stop()
	case scl && !prevSCL:
		w.rise(sda)
	case !scl && prevSCL:
		w.fall()
	}
}

func (w *Wire) start() {
	w.starts++
	w.end()
	w.phase = addressing
	w.bits = 0
	w.cur = 0
}

func (w *Wire) stop() {
	w.stops++
	w.end()
	w.phase = idle
}

// end terminates the current transaction, if any.
func (w *Wire) end() {
	if w.target != nil {
		w.target.Stop()
		w.target = nil
	}
	w.pull(false)
}

func (w *Wire) rise(sda bool) {
	if w.phase == idle || w.phase == ignoring {
		return
	}
	w.bits++
	switch {
	case w.bits <= 8 && w.phase != reading:
		w.cur <<= 1
		if sda {
			w.cur |= 1
		}
	case w.bits == 9 && w.phase == reading:
		// The master acknowledges to ask for more.
		w.more = !sda
	}
}

func (w *Wire) fall() {
	if w.phase == idle || w.phase == ignoring {
		return
	}
	switch {
	case w.bits < 8:
		if w.phase == reading && w.bits > 0 {
			w.pull(w.tx&(0x80>>uint(w.bits)) == 0)
		}
	case w.bits == 8:
		w.received()
	case w.bits == 9:
		w.bits = 0
		w.cur = 0
		w.pull(false)
		if w.phase == reading {
			if !w.more {
				w.phase = ignoring
				return
			}
			w.tx = w.target.ReadByte()
			w.frame().Data = append(w.frame().Data, w.tx)
			w.pull(w.tx&0x80 == 0)
		}
	}
}

// received handles a complete byte, just before the acknowledgment clock.
func (w *Wire) received() {
	switch w.phase {
	case addressing:
		addr, read := uint16(w.cur>>1), w.cur&1 != 0
		w.addFrame(Frame{Addr: addr, Read: read})
		for _, t := range w.targets {
			if t.Select(addr, read) {
				w.target = t
				break
			}
		}
		if w.target == nil {
			w.frame().Nack = true
			w.phase = ignoring
			return
		}
		w.pull(true)
		if read {
			w.phase = reading
			w.more = true
		} else {
			w.phase = writing
		}
	case writing:
		f := w.frame()
		f.Data = append(f.Data, w.cur)
		if !w.target.WriteByte(w.cur) {
			f.Nack = true
			return
		}
		w.pull(true)
	case reading:
		w.pull(false)
	}
}

func (w *Wire) addFrame(f Frame) {
	if len(w.frames) == w.maxFrame {
		copy(w.frames, w.frames[1:])
		w.frames = w.frames[:len(w.frames)-1]
	}
	w.frames = append(w.frames, f)
}

func (w *Wire) frame() *Frame {
	return &w.frames[len(w.frames)-1]
}
