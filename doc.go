// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oled is a container for the SSD1306 panel driver, the bit-banged
// I²C bus it runs on and the ESP32-C3 pads below it.
//
// See ssd1306 for the display, bitbang for the bus, esp32c3 and mmio for the
// pins and sim for a simulation of the whole chain.
package oled
