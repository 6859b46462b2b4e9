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

// Package display reads and changes the orientation of a monitor.
package display

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupported     = errors.New("display rotation is not supported on this platform")
	ErrMonitorNotFound = errors.New("monitor not found")
)

// Service is the display as seen by the rotation state machine.
type Service interface {
	CurrentOrientation() (orientation.Orientation, error)
	ApplyOrientation(o orientation.Orientation) error
}

// Mode is a monitor's current resolution and rotation. Width and Height are
// as seen on screen, so they swap when the monitor turns a quarter.
type Mode struct {
	Width       int
	Height      int
	Orientation orientation.Orientation
}

// Backend talks to the platform's display settings.
type Backend interface {
	Name() string
	CurrentMode() (Mode, error)
	SetMode(m Mode) error
}

// ApplyError is returned when the display rejects an orientation change.
type ApplyError struct {
	Err         error
	Orientation orientation.Orientation
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to rotate display to %s: %v", e.Orientation, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Reorient returns m turned to o. Width and height swap only when the turn
// is an odd number of quarters.
func Reorient(m Mode, o orientation.Orientation) Mode {
	next := Mode{
		Width:       m.Width,
		Height:      m.Height,
		Orientation: o,
	}
	if orientation.SwapsAxes(m.Orientation, o) {
		next.Width, next.Height = m.Height, m.Width
	}
	return next
}

// Rotator implements Service on top of a Backend.
type Rotator struct {
	backend Backend
	mu      syncutil.Mutex
}

func NewRotator(backend Backend) *Rotator {
	return &Rotator{backend: backend}
}

func (r *Rotator) CurrentOrientation() (orientation.Orientation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.backend.CurrentMode()
	if err != nil {
		return orientation.Landscape, fmt.Errorf("failed to read display mode: %w", err)
	}
	return m.Orientation, nil
}

func (r *Rotator) ApplyOrientation(o orientation.Orientation) error {
	if !o.Valid() {
		return &ApplyError{Orientation: o, Err: fmt.Errorf("invalid orientation %d", o)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.backend.CurrentMode()
	if err != nil {
		return &ApplyError{Orientation: o, Err: err}
	}

	next := Reorient(current, o)
	log.Debug().
		Str("backend", r.backend.Name()).
		Stringer("from", current.Orientation).
		Stringer("to", o).
		Int("width", next.Width).
		Int("height", next.Height).
		Msg("applying display mode")

	if err := r.backend.SetMode(next); err != nil {
		return &ApplyError{Orientation: o, Err: err}
	}
	return nil
}

type unsupported struct{}

func (unsupported) Name() string { return "unsupported" }

func (unsupported) CurrentMode() (Mode, error) {
	return Mode{}, ErrUnsupported
}

func (unsupported) SetMode(Mode) error {
	return ErrUnsupported
}
