// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package esp32c3

// Register map. See chapter 5 "IO MUX and GPIO Matrix".
const (
	GPIOBase  uint32 = 0x60004000
	IOMuxBase uint32 = 0x60009000

	GPIOOut     = GPIOBase + 0x0004
	GPIOOutW1TS = GPIOBase + 0x0008 // Write 1 to set.
	GPIOOutW1TC = GPIOBase + 0x000C // Write 1 to clear.
	GPIOEnable  = GPIOBase + 0x0020
	GPIOIn      = GPIOBase + 0x003C
)

// IO MUX per pin configuration bits.
const (
	funWPU      = 1 << 7 // Weak pull-up.
	funWPD      = 1 << 8 // Weak pull-down.
	funIE       = 1 << 9 // Input enable.
	funDrvShift = 10
	funDrvMask  = 0x3 << funDrvShift
	mcuSelShift = 12
	mcuSelMask  = 0x7 << mcuSelShift

	// mcuSelGPIO routes the pad to the GPIO matrix.
	mcuSelGPIO = 1 << mcuSelShift
	// drive2 is ~20mA.
	drive2 = 2 << funDrvShift
)

// NumGPIO is the number of pads, GPIO0 to GPIO21.
const NumGPIO = 22

// MuxReg returns the IO MUX configuration register of pad n.
func MuxReg(n int) uint32 {
	return IOMuxBase + 0x0004 + uint32(n)*4
}
