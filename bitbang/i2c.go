// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ErrNoAck is wrapped by errors returned when a byte was not acknowledged.
var ErrNoAck = errors.New("bitbang: no acknowledgment")

// Spinner busy-waits.
type Spinner interface {
	// Spin blocks for n iterations of a calibrated loop.
	Spin(n uint32)
}

// SpinFunc adapts a function to Spinner.
type SpinFunc func(n uint32)

// Spin implements Spinner.
func (f SpinFunc) Spin(n uint32) {
	f(n)
}

// BusyWait is the default Spinner. Each iteration does one atomic increment
// so the loop is not optimized away.
var BusyWait Spinner = SpinFunc(busyWait)

var spinSink uint32

func busyWait(n uint32) {
	for i := uint32(0); i < n; i++ {
		atomic.AddUint32(&spinSink, 1)
	}
}

// Opts holds the timing configuration.
type Opts struct {
	// CPU is the assumed processor clock used to convert a bus frequency into
	// spin iterations.
	CPU physic.Frequency
	// Spinner implements the delay. Defaults to BusyWait.
	Spinner Spinner
}

// DefaultOpts matches an ESP32-C3 running at 160MHz.
var DefaultOpts = Opts{
	CPU:     160 * physic.MegaHertz,
	Spinner: BusyWait,
}

// I2C is a software I²C bus master.
type I2C struct {
	scl     gpio.PinIO
	sda     gpio.PinIO
	cpu     physic.Frequency
	f       physic.Frequency
	delay   uint32
	spinner Spinner
	// err latches the first pin error of the current transaction.
	err error
}

// New returns a bus master on the scl and sda pins, clocked at f.
//
// The pins must already be configured as outputs with their input buffer
// enabled, e.g. with esp32c3.OpenDrain. Both lines are released before
// returning.
func New(scl, sda gpio.PinIO, f physic.Frequency, opts *Opts) (*I2C, error) {
	if scl == nil || sda == nil {
		return nil, errors.New("bitbang: scl and sda are required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	i := &I2C{
		scl:     scl,
		sda:     sda,
		cpu:     opts.CPU,
		spinner: opts.Spinner,
	}
	if i.cpu == 0 {
		i.cpu = DefaultOpts.CPU
	}
	if i.spinner == nil {
		i.spinner = BusyWait
	}
	if err := i.SetSpeed(f); err != nil {
		return nil, err
	}
	i.sdaHigh()
	i.sclHigh()
	if err := i.err; err != nil {
		i.err = nil
		return nil, fmt.Errorf("bitbang: failed to release lines: %w", err)
	}
	return i, nil
}

// Delay returns the number of spin iterations between two line transitions.
func (i *I2C) Delay() uint32 {
	return i.delay
}

// String implements i2c.Bus.
func (i *I2C) String() string {
	return fmt.Sprintf("bitbang.I2C{SCL: %s, SDA: %s, %s}", i.scl, i.sda, i.f)
}

// SetSpeed implements i2c.Bus.
//
// The delay is quartered to approximate four delay points per bit cell.
func (i *I2C) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("bitbang: invalid frequency %s", f)
	}
	if f > i.cpu {
		return fmt.Errorf("bitbang: frequency %s is above the CPU clock %s", f, i.cpu)
	}
	i.f = f
	i.delay = uint32(int64(i.cpu/f) / 4)
	return nil
}

// Close implements i2c.BusCloser. It releases both lines.
func (i *I2C) Close() error {
	i.err = nil
	i.sdaHigh()
	i.sclHigh()
	err := i.err
	i.err = nil
	return err
}

// Tx implements i2c.Bus.
//
// w is sent first, then r is read after a repeated start. Only 7-bit
// addresses are supported. A missing acknowledgment aborts the transaction
// with a stop condition and returns an error wrapping ErrNoAck.
func (i *I2C) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("bitbang: invalid address %#x; only 7-bit addresses are supported", addr)
	}
	i.err = nil
	defer func() { i.err = nil }()
	if len(w) != 0 || len(r) == 0 {
		if err := i.transmit(addr, nil, w); err != nil {
			return err
		}
		if len(r) == 0 {
			i.Stop()
			return i.err
		}
	}
	// Repeated start, or the first start if nothing was written.
	i.Start()
	if !i.WriteByte(byte(addr)<<1 | 1) {
		i.Stop()
		return i.nack(addr, "address", -1)
	}
	for n := range r {
		r[n] = i.ReadByte(n != len(r)-1)
	}
	i.Stop()
	return i.err
}

// Write sends payload to addr in one transaction.
//
// It returns true only if the address and every byte were acknowledged.
// The transaction is aborted at the first missing acknowledgment.
func (i *I2C) Write(addr uint16, payload []byte) bool {
	return i.write(addr, nil, payload)
}

// WriteRegister sends the register selector reg then payload to addr in one
// transaction.
func (i *I2C) WriteRegister(addr uint16, reg byte, payload []byte) bool {
	return i.write(addr, []byte{reg}, payload)
}

func (i *I2C) write(addr uint16, prefix, payload []byte) bool {
	i.err = nil
	defer func() { i.err = nil }()
	if err := i.transmit(addr, prefix, payload); err != nil {
		return false
	}
	i.Stop()
	return i.err == nil
}

// transmit issues a start then the write address, prefix and payload. On
// failure the transaction has already been terminated with a stop.
func (i *I2C) transmit(addr uint16, prefix, payload []byte) error {
	if !i.Start() {
		i.Stop()
		return i.err
	}
	if !i.WriteByte(byte(addr) << 1) {
		i.Stop()
		return i.nack(addr, "address", -1)
	}
	for n, b := range prefix {
		if !i.WriteByte(b) {
			i.Stop()
			return i.nack(addr, "register", n)
		}
	}
	for n, b := range payload {
		if !i.WriteByte(b) {
			i.Stop()
			return i.nack(addr, "byte", n)
		}
	}
	return nil
}

func (i *I2C) nack(addr uint16, what string, n int) error {
	if i.err != nil {
		return i.err
	}
	if n < 0 {
		return fmt.Errorf("bitbang: %#x: %s: %w", addr, what, ErrNoAck)
	}
	return fmt.Errorf("bitbang: %#x: %s %d: %w", addr, what, n, ErrNoAck)
}

// Start issues a start condition: SDA falls while SCL is high, then SCL is
// pulled low.
//
// It also works as a repeated start. It only fails if a pin reported an
// error.
func (i *I2C) Start() bool {
	i.sdaHigh()
	i.sclHigh()
	i.sdaLow()
	i.sclLow()
	return i.err == nil
}

// Stop issues a stop condition: SDA rises while SCL is high. Both lines are
// released afterward.
func (i *I2C) Stop() {
	i.sdaLow()
	i.sclHigh()
	i.sdaHigh()
}

// WriteByte clocks out b MSB first and returns whether the receiver pulled
// SDA low during the ninth clock.
func (i *I2C) WriteByte(b byte) bool {
	for bit := 7; bit >= 0; bit-- {
		if b&(1<<uint(bit)) != 0 {
			i.sdaHigh()
		} else {
			i.sdaLow()
		}
		i.sclHigh()
		i.sclLow()
	}
	i.sdaHigh()
	i.sclHigh()
	ack := i.sda.Read() == gpio.Low
	i.sclLow()
	return ack
}

// ReadByte clocks in one byte MSB first. If ack is true SDA is pulled low
// during the ninth clock to request more data, otherwise it is left high
// (NACK) to end the read.
func (i *I2C) ReadByte(ack bool) byte {
	var b byte
	i.sdaHigh()
	for bit := 7; bit >= 0; bit-- {
		i.sclHigh()
		if i.sda.Read() == gpio.High {
			b |= 1 << uint(bit)
		}
		i.sclLow()
	}
	if ack {
		i.sdaLow()
	} else {
		i.sdaHigh()
	}
	i.sclHigh()
	i.sclLow()
	i.sdaHigh()
	return b
}

func (i *I2C) sclHigh() {
	i.out(i.scl, gpio.High)
}

func (i *I2C) sclLow() {
	i.out(i.scl, gpio.Low)
}

func (i *I2C) sdaHigh() {
	i.out(i.sda, gpio.High)
}

func (i *I2C) sdaLow() {
	i.out(i.sda, gpio.Low)
}

func (i *I2C) out(p gpio.PinOut, l gpio.Level) {
	if err := p.Out(l); err != nil && i.err == nil {
		i.err = fmt.Errorf("bitbang: %s: %w", p, err)
	}
	i.spinner.Spin(i.delay)
}

var _ i2c.BusCloser = &I2C{}
