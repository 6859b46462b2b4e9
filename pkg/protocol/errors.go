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

package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimeout is returned when no response byte arrives within the
	// exchange timeout. Nothing was changed and the operator may retry.
	ErrTimeout = errors.New("timed out waiting for response")
	// ErrRefused is returned when the device answers a request with NAK.
	ErrRefused = errors.New("device refused request (NAK)")
)

// TransportError wraps a failure of the underlying link. It is fatal to the
// current operation but leaves the link open for the next attempt.
type TransportError struct {
	Err error
	Op  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("link %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnexpectedCodeError is returned when a response byte is not one of the
// codes acceptable at that point of the exchange.
type UnexpectedCodeError struct {
	Want []Code
	Got  Code
}

func (e *UnexpectedCodeError) Error() string {
	want := make([]string, len(e.Want))
	for i, c := range e.Want {
		want[i] = c.String()
	}
	return fmt.Sprintf("received unexpected code %s (want %s)", e.Got, strings.Join(want, " or "))
}

// Expect returns an UnexpectedCodeError unless got is one of want.
func Expect(got Code, want ...Code) error {
	for _, c := range want {
		if got == c {
			return nil
		}
	}
	return &UnexpectedCodeError{Got: got, Want: want}
}

// IsTransport reports whether err was caused by the link itself.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
