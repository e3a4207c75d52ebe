// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build tinygo

package mmio

import (
	"runtime/volatile"
	"unsafe"
)

// Volatile accesses the physical address space directly.
//
// Only available when building with TinyGo for a bare-metal target.
type Volatile struct{}

// Read32 implements Registers.
func (Volatile) Read32(addr uint32) uint32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Get()
}

// Write32 implements Registers.
func (Volatile) Write32(addr uint32, v uint32) {
	(*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Set(v)
}

var _ Registers = Volatile{}
