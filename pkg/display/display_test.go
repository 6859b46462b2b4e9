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

package display

import (
	"errors"
	"testing"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// recordingBackend keeps a mode in memory and records every SetMode call.
type recordingBackend struct {
	readErr error
	setErr  error
	set     []Mode
	mode    Mode
}

func (*recordingBackend) Name() string { return "recording" }

func (b *recordingBackend) CurrentMode() (Mode, error) {
	if b.readErr != nil {
		return Mode{}, b.readErr
	}
	return b.mode, nil
}

func (b *recordingBackend) SetMode(m Mode) error {
	b.set = append(b.set, m)
	if b.setErr != nil {
		return b.setErr
	}
	b.mode = m
	return nil
}

func landscape1080() Mode {
	return Mode{Width: 1920, Height: 1080, Orientation: orientation.Landscape}
}

func TestReorient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		to   orientation.Orientation
		want Mode
	}{
		{name: "same", to: orientation.Landscape, want: Mode{1920, 1080, orientation.Landscape}},
		{name: "quarter", to: orientation.Portrait, want: Mode{1080, 1920, orientation.Portrait}},
		{name: "half", to: orientation.LandscapeFlipped, want: Mode{1920, 1080, orientation.LandscapeFlipped}},
		{name: "three quarters", to: orientation.PortraitFlipped, want: Mode{1080, 1920, orientation.PortraitFlipped}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Reorient(landscape1080(), tt.to))
		})
	}
}

// TestRotatorSwapsOnlyOnQuarterTurns checks every from/to pair against a
// recording backend.
func TestRotatorSwapsOnlyOnQuarterTurns(t *testing.T) {
	t.Parallel()

	for _, from := range orientation.All {
		for _, to := range orientation.All {
			start := Reorient(landscape1080(), from)
			backend := &recordingBackend{mode: start}
			r := NewRotator(backend)

			require.NoError(t, r.ApplyOrientation(to))
			require.Len(t, backend.set, 1)

			got := backend.set[0]
			assert.Equal(t, to, got.Orientation)
			if from.Degrees()%180 != to.Degrees()%180 {
				assert.Equal(t, start.Height, got.Width, "%s -> %s should swap", from, to)
				assert.Equal(t, start.Width, got.Height, "%s -> %s should swap", from, to)
			} else {
				assert.Equal(t, start.Width, got.Width, "%s -> %s should not swap", from, to)
				assert.Equal(t, start.Height, got.Height, "%s -> %s should not swap", from, to)
			}
		}
	}
}

func TestRotator_CurrentOrientation(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{mode: Mode{1080, 1920, orientation.PortraitFlipped}}
	r := NewRotator(backend)

	o, err := r.CurrentOrientation()
	require.NoError(t, err)
	assert.Equal(t, orientation.PortraitFlipped, o)

	backend.readErr = errors.New("no display")
	_, err = r.CurrentOrientation()
	require.Error(t, err)
}

func TestRotator_ApplyErrors(t *testing.T) {
	t.Parallel()

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()

		backend := &recordingBackend{readErr: errors.New("no display")}
		err := NewRotator(backend).ApplyOrientation(orientation.Portrait)

		var ae *ApplyError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, orientation.Portrait, ae.Orientation)
		assert.Empty(t, backend.set)
	})

	t.Run("set failure", func(t *testing.T) {
		t.Parallel()

		setErr := errors.New("bad mode")
		backend := &recordingBackend{mode: landscape1080(), setErr: setErr}
		err := NewRotator(backend).ApplyOrientation(orientation.LandscapeFlipped)

		var ae *ApplyError
		require.ErrorAs(t, err, &ae)
		require.ErrorIs(t, err, setErr)
		assert.Equal(t, "failed to rotate display to landscape_flipped: bad mode", err.Error())
		assert.Equal(t, orientation.Landscape, backend.mode.Orientation)
	})

	t.Run("invalid orientation", func(t *testing.T) {
		t.Parallel()

		backend := &recordingBackend{mode: landscape1080()}
		err := NewRotator(backend).ApplyOrientation(orientation.Orientation(9))

		var ae *ApplyError
		require.ErrorAs(t, err, &ae)
		assert.Empty(t, backend.set)
	})
}

func TestUnsupported(t *testing.T) {
	t.Parallel()

	r := NewRotator(unsupported{})
	_, err := r.CurrentOrientation()
	require.ErrorIs(t, err, ErrUnsupported)
	require.ErrorIs(t, r.ApplyOrientation(orientation.Portrait), ErrUnsupported)
}

// TestPropertyReorientPreservesArea verifies a reorient never changes the
// pixel count and two reorients back to the start are the identity.
func TestPropertyReorientPreservesArea(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		start := Mode{
			Width:       rapid.IntRange(1, 8192).Draw(t, "width"),
			Height:      rapid.IntRange(1, 8192).Draw(t, "height"),
			Orientation: rapid.SampledFrom(orientation.All).Draw(t, "from"),
		}
		to := rapid.SampledFrom(orientation.All).Draw(t, "to")

		next := Reorient(start, to)
		if next.Width*next.Height != start.Width*start.Height {
			t.Fatalf("area changed: %+v -> %+v", start, next)
		}
		if back := Reorient(next, start.Orientation); back != start {
			t.Fatalf("round trip %+v -> %+v -> %+v", start, next, back)
		}
	})
}
