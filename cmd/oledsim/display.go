// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"image"

	"github.com/GermanBionicSystems/oled/bitbang"
	"github.com/GermanBionicSystems/oled/esp32c3"
	"github.com/GermanBionicSystems/oled/internal/config"
	"github.com/GermanBionicSystems/oled/mmio"
	"github.com/GermanBionicSystems/oled/screen2d"
	"github.com/GermanBionicSystems/oled/sim"
	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// display is an initialized panel and what is needed to preview it.
type display struct {
	bus   i2c.BusCloser
	dev   *ssd1306.Dev
	panel *sim.Panel
	wire  *sim.Wire

	screen *screen2d.Dev
}

func openDisplay(c *config.Config) (*display, error) {
	f, err := c.BusFrequency()
	if err != nil {
		return nil, err
	}
	cpu, err := c.CPUFrequency()
	if err != nil {
		return nil, err
	}
	d := &display{}
	switch c.Bus {
	case config.Sim:
		sclN, sdaN, err := c.Pads()
		if err != nil {
			return nil, err
		}
		m := mmio.NewMem()
		d.wire = sim.NewWire(m, sclN, sdaN)
		d.panel = sim.NewPanel(c.Address, c.Width, c.Height)
		d.wire.Attach(d.panel)
		scl, err := esp32c3.OpenDrain(m, sclN)
		if err != nil {
			return nil, err
		}
		sda, err := esp32c3.OpenDrain(m, sdaN)
		if err != nil {
			return nil, err
		}
		opts := sim.Opts
		opts.CPU = cpu
		if d.bus, err = bitbang.New(scl, sda, f, &opts); err != nil {
			return nil, err
		}
		if c.Preview {
			d.screen = screen2d.New(&screen2d.Opts{X: c.Width, Y: c.Height})
		}
	case config.HostGPIO:
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		scl := gpioreg.ByName(c.SCL)
		sda := gpioreg.ByName(c.SDA)
		if scl == nil || sda == nil {
			return nil, fmt.Errorf("unknown pins %s/%s", c.SCL, c.SDA)
		}
		if d.bus, err = bitbang.New(scl, sda, f, &bitbang.Opts{CPU: cpu}); err != nil {
			return nil, err
		}
	case config.HostI2C:
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		if d.bus, err = i2creg.Open(c.I2C); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unknown bus " + c.Bus)
	}
	logrus.Debugf("Bus: %s", d.bus)

	if d.dev, err = ssd1306.NewI2C(d.bus, c.Opts()); err != nil {
		_ = d.bus.Close()
		return nil, err
	}
	if err := d.dev.SetContrast(c.Contrast); err != nil {
		_ = d.bus.Close()
		return nil, err
	}
	logrus.Infof("Display ready: %s", d.dev)
	return d, nil
}

// view returns what the glass shows: the simulated panel when there is one,
// the framebuffer otherwise.
func (d *display) view() image.Image {
	if d.panel != nil {
		return d.panel
	}
	return d.dev.Image()
}

// preview renders the simulated panel in the terminal.
func (d *display) preview() {
	if d.screen == nil {
		return
	}
	if err := d.screen.Draw(d.screen.Bounds(), d.panel, image.Point{}); err != nil {
		logrus.Warningf("Unable to preview: %v", err)
	}
	if d.wire != nil {
		starts, stops := d.wire.Conditions()
		logrus.Debugf("Wire: %d starts, %d stops", starts, stops)
	}
}

func (d *display) Close() error {
	if d.screen != nil {
		_ = d.screen.Halt()
	}
	return d.bus.Close()
}
