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

// Package notifications builds and queues the notifications published for
// every rotation and device outcome.
package notifications

import (
	"encoding/json"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/rs/zerolog/log"
)

func send(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification")
			return
		}
		params = b
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification queue full, dropping notification")
	}
}

func OrientationChanged(ns chan<- models.Notification, o orientation.Orientation, source string) {
	send(ns, models.NotificationOrientationChanged, models.OrientationChangedParams{
		Orientation: o.String(),
		Degrees:     o.Degrees(),
		Source:      source,
	})
}

func AutorotateChanged(ns chan<- models.Notification, enabled bool) {
	send(ns, models.NotificationAutorotateChanged, models.AutorotateChangedParams{
		Enabled: enabled,
	})
}

func LinkOpened(ns chan<- models.Notification, port string) {
	send(ns, models.NotificationLinkOpened, models.LinkParams{Port: port})
}

func LinkLost(ns chan<- models.Notification, port string, err error) {
	params := models.LinkParams{Port: port}
	if err != nil {
		params.Error = err.Error()
	}
	send(ns, models.NotificationLinkLost, params)
}

func LinkTested(ns chan<- models.Notification, response string, err error) {
	params := models.LinkTestedParams{Response: response, OK: err == nil}
	if err != nil {
		params.Error = err.Error()
	}
	send(ns, models.NotificationLinkTested, params)
}

func DeviceStatus(ns chan<- models.Notification, running bool) {
	send(ns, models.NotificationDeviceStatus, models.DeviceStatusParams{Running: running})
}

func DeviceRecalibrated(ns chan<- models.Notification) {
	send(ns, models.NotificationDeviceRecalibrated, nil)
}

func OperationFailed(ns chan<- models.Notification, operation, kind string, err error) {
	send(ns, models.NotificationOperationFailed, models.OperationFailedParams{
		Operation: operation,
		Kind:      kind,
		Error:     err.Error(),
	})
}
