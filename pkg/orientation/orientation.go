// Zaparoo Autorotate
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Autorotate.
//
// Zaparoo Autorotate is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Autorotate is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Autorotate.  If not, see <http://www.gnu.org/licenses/>.

// Package orientation models the four rotation states of a display.
package orientation

import (
	"fmt"
	"strings"
)

// Orientation is the rotation of a display in quarter turns clockwise from
// its native landscape position. The numeric value is also the byte sent
// on the wire in the ENQ reply payload.
type Orientation uint8

const (
	Landscape Orientation = iota
	Portrait
	LandscapeFlipped
	PortraitFlipped
)

// All lists every orientation in wire order.
var All = []Orientation{Landscape, Portrait, LandscapeFlipped, PortraitFlipped}

var names = map[Orientation]string{
	Landscape:        "landscape",
	Portrait:         "portrait",
	LandscapeFlipped: "landscape_flipped",
	PortraitFlipped:  "portrait_flipped",
}

func (o Orientation) String() string {
	if name, ok := names[o]; ok {
		return name
	}
	return fmt.Sprintf("orientation(%d)", uint8(o))
}

// Label returns the human-readable menu label.
func (o Orientation) Label() string {
	switch o {
	case Landscape:
		return "Landscape"
	case Portrait:
		return "Portrait"
	case LandscapeFlipped:
		return "Landscape (flipped)"
	case PortraitFlipped:
		return "Portrait (flipped)"
	default:
		return o.String()
	}
}

// Valid reports whether o is one of the four known orientations.
func (o Orientation) Valid() bool {
	return o <= PortraitFlipped
}

// Degrees returns the clockwise rotation angle.
func (o Orientation) Degrees() int {
	return int(o) * 90
}

// Byte returns the wire encoding of o.
func (o Orientation) Byte() byte {
	return byte(o)
}

// FromByte decodes a wire orientation byte.
func FromByte(b byte) (Orientation, error) {
	o := Orientation(b)
	if !o.Valid() {
		return Landscape, fmt.Errorf("invalid orientation byte: 0x%02x", b)
	}
	return o, nil
}

// Parse accepts the names returned by String, case-insensitively, with
// dashes or underscores, and also plain angles ("0", "90", "180", "270").
func Parse(s string) (Orientation, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for o, name := range names {
		if key == name {
			return o, nil
		}
	}
	switch key {
	case "0":
		return Landscape, nil
	case "90":
		return Portrait, nil
	case "180":
		return LandscapeFlipped, nil
	case "270":
		return PortraitFlipped, nil
	}
	return Landscape, fmt.Errorf("unknown orientation: %q", s)
}

// SwapsAxes reports whether rotating from one orientation to another turns
// the display by an odd number of quarter turns, in which case width and
// height must be exchanged.
func SwapsAxes(from, to Orientation) bool {
	return (uint8(from)+uint8(to))%2 == 1
}
