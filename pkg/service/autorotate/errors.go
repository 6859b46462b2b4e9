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

package autorotate

import (
	"context"
	"errors"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/display"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/protocol"
)

// ErrNoLink is returned by device operations while no serial link is open.
var ErrNoLink = errors.New("no serial link open")

// Error kinds reported in notifications and API responses.
const (
	KindTimeout    = "timeout"
	KindRefused    = "refused"
	KindUnexpected = "unexpected"
	KindTransport  = "transport"
	KindDisplay    = "display"
	KindNoLink     = "no_link"
	KindCancelled  = "cancelled"
	KindOther      = "other"
)

// Kind classifies an error returned by a Machine operation.
func Kind(err error) string {
	var unexpected *protocol.UnexpectedCodeError
	var applyErr *display.ApplyError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoLink):
		return KindNoLink
	case errors.Is(err, protocol.ErrTimeout):
		return KindTimeout
	case errors.Is(err, protocol.ErrRefused):
		return KindRefused
	case errors.As(err, &unexpected):
		return KindUnexpected
	case protocol.IsTransport(err):
		return KindTransport
	case errors.As(err, &applyErr):
		return KindDisplay
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindOther
	}
}
