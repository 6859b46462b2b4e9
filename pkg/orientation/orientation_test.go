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

package orientation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDegrees(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Landscape.Degrees())
	assert.Equal(t, 90, Portrait.Degrees())
	assert.Equal(t, 180, LandscapeFlipped.Degrees())
	assert.Equal(t, 270, PortraitFlipped.Degrees())
}

func TestSwapsAxes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Orientation
		to   Orientation
		swap bool
	}{
		{name: "landscape to flipped", from: Landscape, to: LandscapeFlipped, swap: false},
		{name: "flipped to landscape", from: LandscapeFlipped, to: Landscape, swap: false},
		{name: "portrait to flipped", from: Portrait, to: PortraitFlipped, swap: false},
		{name: "flipped to portrait", from: PortraitFlipped, to: Portrait, swap: false},
		{name: "landscape to portrait", from: Landscape, to: Portrait, swap: true},
		{name: "landscape to portrait flipped", from: Landscape, to: PortraitFlipped, swap: true},
		{name: "landscape flipped to portrait", from: LandscapeFlipped, to: Portrait, swap: true},
		{name: "portrait flipped to landscape flipped", from: PortraitFlipped, to: LandscapeFlipped, swap: true},
		{name: "same orientation", from: Portrait, to: Portrait, swap: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.swap, SwapsAxes(tt.from, tt.to))
		})
	}
}

func TestFromByte(t *testing.T) {
	t.Parallel()

	for _, o := range All {
		got, err := FromByte(o.Byte())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}

	_, err := FromByte(4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid orientation byte")
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Orientation
		wantErr bool
	}{
		{in: "landscape", want: Landscape},
		{in: "Portrait", want: Portrait},
		{in: "landscape-flipped", want: LandscapeFlipped},
		{in: " portrait_flipped ", want: PortraitFlipped},
		{in: "90", want: Portrait},
		{in: "270", want: PortraitFlipped},
		{in: "sideways", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "landscape_flipped", LandscapeFlipped.String())
	assert.Equal(t, "orientation(9)", Orientation(9).String())
	assert.Equal(t, "Portrait (flipped)", PortraitFlipped.Label())
	assert.False(t, Orientation(4).Valid())
}
