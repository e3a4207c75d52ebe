// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sim simulates an ESP32-C3 driving an SSD1306 panel over two GPIO
// pads.
//
// Wire watches the GPIO registers of an mmio.Mem and decodes the SCL/SDA
// transitions into I²C transactions that are delivered to Target devices.
// Panel is such a device: a model of the SSD1306 controller that keeps its
// own GDDRAM and renders what the glass would show. Panel also implements
// i2c.Bus so it can be used without the wire.
//
// A complete rig:
//
//	m := mmio.NewMem()
//	w := sim.NewWire(m, 6, 5)
//	p := sim.NewPanel(ssd1306.Addr, 128, 64)
//	w.Attach(p)
//	scl, _ := esp32c3.OpenDrain(m, 6)
//	sda, _ := esp32c3.OpenDrain(m, 5)
//	b, _ := bitbang.New(scl, sda, 400*physic.KiloHertz, &sim.Opts)
//	d, _ := ssd1306.NewI2C(b, nil)
package sim
