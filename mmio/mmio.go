// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmio abstracts access to 32-bit memory-mapped control registers.
//
// Drivers take a Registers value instead of dereferencing raw addresses so
// the same code runs against silicon (see Volatile, TinyGo only) or against
// the in-memory register file Mem in tests and simulations.
package mmio

import (
	"fmt"
	"sort"
)

// Registers reads and writes 32-bit hardware control words.
//
// Both operations are assumed to be immediate, side-effecting and
// non-cacheable.
type Registers interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, v uint32)
}

// SetBits does a read-modify-write that sets mask at addr.
func SetBits(r Registers, addr, mask uint32) {
	r.Write32(addr, r.Read32(addr)|mask)
}

// ClearBits does a read-modify-write that clears mask at addr.
func ClearBits(r Registers, addr, mask uint32) {
	r.Write32(addr, r.Read32(addr)&^mask)
}

// ReadHook intercepts a read. stored is the value currently held by the
// register file; the returned value is what the reader observes.
type ReadHook func(addr, stored uint32) uint32

// WriteHook intercepts a write. It returns the value to store.
type WriteHook func(addr, v uint32) uint32

// Mem is an in-memory register file.
//
// Unmapped addresses read as zero. Hooks model registers with side effects,
// e.g. write-1-to-set ports or input registers driven by a peripheral.
//
// Mem is not safe for concurrent use.
type Mem struct {
	words  map[uint32]uint32
	reads  map[uint32]ReadHook
	writes map[uint32]WriteHook
}

// NewMem returns an empty register file.
func NewMem() *Mem {
	return &Mem{
		words:  map[uint32]uint32{},
		reads:  map[uint32]ReadHook{},
		writes: map[uint32]WriteHook{},
	}
}

// Read32 implements Registers.
func (m *Mem) Read32(addr uint32) uint32 {
	v := m.words[addr]
	if h := m.reads[addr]; h != nil {
		return h(addr, v)
	}
	return v
}

// Write32 implements Registers.
func (m *Mem) Write32(addr uint32, v uint32) {
	if h := m.writes[addr]; h != nil {
		v = h(addr, v)
	}
	m.words[addr] = v
}

// Peek returns the stored value at addr, bypassing hooks.
func (m *Mem) Peek(addr uint32) uint32 {
	return m.words[addr]
}

// Poke stores v at addr, bypassing hooks.
func (m *Mem) Poke(addr uint32, v uint32) {
	m.words[addr] = v
}

// OnRead installs h for addr. A nil h removes the hook.
func (m *Mem) OnRead(addr uint32, h ReadHook) {
	if h == nil {
		delete(m.reads, addr)
		return
	}
	m.reads[addr] = h
}

// OnWrite installs h for addr. A nil h removes the hook.
func (m *Mem) OnWrite(addr uint32, h WriteHook) {
	if h == nil {
		delete(m.writes, addr)
		return
	}
	m.writes[addr] = h
}

func (m *Mem) String() string {
	addrs := make([]uint32, 0, len(m.words))
	for a := range m.words {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	s := "mmio.Mem{"
	for i, a := range addrs {
		if i != 0 {
			s += ", "
		}
		s += fmt.Sprintf("%#x: %#x", a, m.words[a])
	}
	return s + "}"
}

var _ Registers = &Mem{}
