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

package models

import "encoding/json"

const (
	NotificationOrientationChanged = "orientation.changed"
	NotificationAutorotateChanged  = "autorotate.changed"
	NotificationLinkOpened         = "link.opened"
	NotificationLinkLost           = "link.lost"
	NotificationLinkTested         = "link.tested"
	NotificationDeviceStatus       = "device.status"
	NotificationDeviceRecalibrated = "device.recalibrated"
	NotificationOperationFailed    = "operation.failed"
)

// Operation names used in failure notifications and API errors.
const (
	OperationRotate       = "rotate"
	OperationToggle       = "toggle"
	OperationTest         = "test"
	OperationQuery        = "query"
	OperationRecalibrate  = "recalibrate"
	OperationDeviceRotate = "device.rotate"
	OperationShutdown     = "shutdown"
	OperationOpen         = "open"
)

const (
	SourceOperator = "operator"
	SourceDevice   = "device"
)

type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}
