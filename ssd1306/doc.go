// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1306 controls a monochrome OLED display via a SSD1306
// controller over I²C.
//
// The driver owns a framebuffer mirroring the controller's GDDRAM: one byte
// per 8 vertically stacked pixels, byte x+(y/8)*width, bit y%8 with bit 0 at
// the top. Drawing primitives only touch the framebuffer; Flush() sends all
// of it to the display in a single data transfer.
//
// Coordinates outside the display are silently clipped; drawing never fails.
//
// Any i2c.Bus works. On a microcontroller without an I²C peripheral use
// bitbang.I2C. Dev is not safe for concurrent use, callers must serialize
// complete operations.
//
// # Datasheets
//
// SSD1306
//
// http://www.solomon-systech.com/en/product/display-ic/oled-driver-controller/ssd1306/
//
// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
package ssd1306
