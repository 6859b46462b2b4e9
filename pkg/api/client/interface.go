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

package client

import (
	"context"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
)

// APIClient is the set of calls a second process can forward to a running
// instance.
type APIClient interface {
	Status(ctx context.Context) (models.StatusResponse, error)
	Ports(ctx context.Context) (models.PortsResponse, error)
	OpenPort(ctx context.Context, port string) (models.StatusResponse, error)
	Rotate(ctx context.Context, o orientation.Orientation) (models.StatusResponse, error)
	Toggle(ctx context.Context) (bool, error)
	Test(ctx context.Context) error
	Query(ctx context.Context) (bool, error)
	Recalibrate(ctx context.Context) error
	WaitNotification(ctx context.Context, timeout time.Duration, method string) (models.Notification, error)
}

var _ APIClient = (*Client)(nil)
