// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import "strings"

// Console is a scrolling log of text lines, one per text row.
//
// Lines longer than the display are truncated; once every row is used the
// oldest line scrolls out. Every change redraws the whole framebuffer and
// flushes it.
type Console struct {
	d     *Dev
	rows  int
	cols  int
	lines []string
}

// NewConsole returns an empty console covering the whole of d.
func NewConsole(d *Dev) *Console {
	return &Console{
		d:    d,
		rows: d.rect.Dy() / LineHeight,
		cols: d.rect.Dx() / CharWidth,
	}
}

// Println appends a line. Each '\n' in s starts a new line.
func (c *Console) Println(s string) error {
	for _, l := range strings.Split(s, "\n") {
		r := []rune(l)
		if len(r) > c.cols {
			r = r[:c.cols]
		}
		if len(c.lines) == c.rows {
			copy(c.lines, c.lines[1:])
			c.lines = c.lines[:c.rows-1]
		}
		c.lines = append(c.lines, string(r))
	}
	return c.Refresh()
}

// Clear removes every line.
func (c *Console) Clear() error {
	c.lines = c.lines[:0]
	return c.Refresh()
}

// Lines returns the visible lines, oldest first.
func (c *Console) Lines() []string {
	return append([]string(nil), c.lines...)
}

// Refresh redraws the lines and flushes the display.
func (c *Console) Refresh() error {
	c.d.Clear()
	for i, l := range c.lines {
		c.d.DrawText(0, i*LineHeight, l)
	}
	return c.d.Flush()
}
