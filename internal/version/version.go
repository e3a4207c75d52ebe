// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package version holds the version of the tools.
package version

import "strconv"

// Version is a semantic version number.
type Version struct {
	MajorNumber int64
	MinorNumber int64
	PatchNumber int64
}

// String generates a human readable Version.
func (m *Version) String() string {
	return strconv.FormatInt(m.MajorNumber, 10) + "." + strconv.FormatInt(m.MinorNumber, 10) + "." + strconv.FormatInt(m.PatchNumber, 10)
}

// AppVersion is the version of oledsim.
var AppVersion = Version{
	MajorNumber: 1,
	MinorNumber: 0,
	PatchNumber: 0,
}
