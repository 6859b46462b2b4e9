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

// Package protocol implements the single-byte control protocol spoken with
// the orientation sensor and the exchange coordinator that serialises access
// to the half-duplex link.
package protocol

import (
	"fmt"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
)

// Code is a single control byte. Bytes outside the reserved set decode to
// an unknown Code which still carries the raw value.
type Code byte

const (
	ENQ Code = 0x05 // status query / request for the host's orientation
	ACK Code = 0x06
	DC1 Code = 0x11 // landscape, or enable autorotation when sent by the host
	DC2 Code = 0x12 // portrait, or disable autorotation when sent by the host
	DC3 Code = 0x13 // landscape flipped, or recalibrate the IMU when sent by the host
	DC4 Code = 0x14 // portrait flipped
	NAK Code = 0x15
	SYN Code = 0x16 // link test probe
)

var codeNames = map[Code]string{
	ENQ: "ENQ",
	ACK: "ACK",
	DC1: "DC1",
	DC2: "DC2",
	DC3: "DC3",
	DC4: "DC4",
	NAK: "NAK",
	SYN: "SYN",
}

// Decode converts a received byte into a Code. Bytes outside the control
// set keep their raw value; Known reports whether a code is one of them.
func Decode(b byte) Code {
	return Code(b)
}

// Byte returns the wire value of c.
func (c Code) Byte() byte {
	return byte(c)
}

// Known reports whether c is one of the reserved control codes.
func (c Code) Known() bool {
	_, ok := codeNames[c]
	return ok
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", byte(c))
}

// Orientation returns the orientation requested by a device rotation code.
// The second value is false for anything other than DC1..DC4.
func (c Code) Orientation() (orientation.Orientation, bool) {
	switch c {
	case DC1:
		return orientation.Landscape, true
	case DC2:
		return orientation.Portrait, true
	case DC3:
		return orientation.LandscapeFlipped, true
	case DC4:
		return orientation.PortraitFlipped, true
	default:
		return orientation.Landscape, false
	}
}

// ForOrientation returns the device rotation code for o.
func ForOrientation(o orientation.Orientation) (Code, error) {
	switch o {
	case orientation.Landscape:
		return DC1, nil
	case orientation.Portrait:
		return DC2, nil
	case orientation.LandscapeFlipped:
		return DC3, nil
	case orientation.PortraitFlipped:
		return DC4, nil
	default:
		return 0, fmt.Errorf("no rotation code for %s", o)
	}
}

// Bytes encodes a sequence of codes for transmission.
func Bytes(codes ...Code) []byte {
	out := make([]byte, len(codes))
	for i, c := range codes {
		out[i] = c.Byte()
	}
	return out
}
