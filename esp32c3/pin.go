// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package esp32c3

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/oled/mmio"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ErrNotImplemented is returned by features the pads do not offer through
// this driver.
var ErrNotImplemented = errors.New("esp32c3: not implemented")

// Pin is a single pad.
//
// Driving a level uses the write-1-to-set/clear ports so other pads are never
// disturbed. The pad always stays input enabled, Read() returns the level
// seen on the wire even while driving.
type Pin struct {
	regs   mmio.Registers
	number int
	name   string
	output bool
}

// New returns pad n without touching its configuration.
func New(regs mmio.Registers, n int) (*Pin, error) {
	if n < 0 || n >= NumGPIO {
		return nil, fmt.Errorf("esp32c3: invalid GPIO %d", n)
	}
	return &Pin{regs: regs, number: n, name: "GPIO" + strconv.Itoa(n)}, nil
}

// OpenDrain returns pad n configured for a wire that relies on an external
// or weak pull-up to go high: GPIO function, input enabled, weak pull-up,
// medium drive strength and output enabled.
//
// The pad is still a push-pull driver; callers emulate open drain by only
// driving High when releasing the line.
func OpenDrain(regs mmio.Registers, n int) (*Pin, error) {
	p, err := New(regs, n)
	if err != nil {
		return nil, err
	}
	mux := MuxReg(n)
	v := regs.Read32(mux)
	v = v&^mcuSelMask | mcuSelGPIO
	v |= funIE | funWPU
	v &^= funWPD
	v = v&^funDrvMask | drive2
	regs.Write32(mux, v)
	mmio.SetBits(regs, GPIOEnable, p.mask())
	p.output = true
	return p, nil
}

func (p *Pin) mask() uint32 {
	return 1 << uint(p.number)
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.name
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.number
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	if p.output {
		return "Out/" + p.Read().String()
	}
	return "In/" + p.Read().String()
}

// In implements gpio.PinIn.
//
// Edge detection requires the interrupt matrix and is not supported.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("esp32c3: %s: edge detection: %w", p.name, ErrNotImplemented)
	}
	mux := MuxReg(p.number)
	v := p.regs.Read32(mux) | funIE
	switch pull {
	case gpio.Float:
		v &^= funWPU | funWPD
	case gpio.PullUp:
		v = v&^funWPD | funWPU
	case gpio.PullDown:
		v = v&^funWPU | funWPD
	case gpio.PullNoChange:
	default:
		return fmt.Errorf("esp32c3: %s: invalid pull %s", p.name, pull)
	}
	p.regs.Write32(mux, v)
	mmio.ClearBits(p.regs, GPIOEnable, p.mask())
	p.output = false
	return nil
}

// Read implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	return p.regs.Read32(GPIOIn)&p.mask() != 0
}

// WaitForEdge implements gpio.PinIn. It always returns false.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	v := p.regs.Read32(MuxReg(p.number))
	switch {
	case v&funWPU != 0:
		return gpio.PullUp
	case v&funWPD != 0:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if !p.output {
		mmio.SetBits(p.regs, GPIOEnable, p.mask())
		p.output = true
	}
	if l {
		p.regs.Write32(GPIOOutW1TS, p.mask())
	} else {
		p.regs.Write32(GPIOOutW1TC, p.mask())
	}
	return nil
}

// PWM implements gpio.PinOut. The LED PWM controller is not supported.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return fmt.Errorf("esp32c3: %s: PWM: %w", p.name, ErrNotImplemented)
}

var _ gpio.PinIO = &Pin{}
