// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package esp32c3 exposes the general purpose I/O pins of an ESP32-C3 as
// periph gpio.PinIO, driving them through the GPIO matrix and IO MUX
// registers.
//
// Every operation is a direct register access through an mmio.Registers;
// nothing is cached besides the output enable state of each Pin.
//
// # Datasheet
//
// https://www.espressif.com/sites/default/files/documentation/esp32-c3_technical_reference_manual_en.pdf
package esp32c3
