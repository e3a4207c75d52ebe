// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbang implements an I²C bus master by toggling two GPIO pins.
//
// Timing comes from a calibrated spin loop, not from a clock: the delay
// between two line transitions is (CPU clock / bus frequency) / 4
// iterations. Accuracy depends entirely on Opts.CPU matching the real
// processor speed.
//
// Lines are driven High to release them, relying on the pull-up resistors
// of the bus; the driver never tri-states a pin. Clock stretching,
// multi-master arbitration and bus recovery are not supported: a slave
// holding SCL low is not detected.
//
// I2C is not safe for concurrent use. A transaction must not be interrupted
// mid byte; callers that can be preempted must serialize complete
// transactions themselves.
//
// # Reference
//
// https://www.nxp.com/docs/en/user-guide/UM10204.pdf
package bitbang
