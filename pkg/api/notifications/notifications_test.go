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

package notifications

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ns chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n := <-ns:
		return n
	default:
		t.Fatal("expected a notification")
		return models.Notification{}
	}
}

func TestOrientationChanged(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	OrientationChanged(ns, orientation.PortraitFlipped, models.SourceDevice)

	n := receive(t, ns)
	assert.Equal(t, models.NotificationOrientationChanged, n.Method)

	var params models.OrientationChangedParams
	require.NoError(t, json.Unmarshal(n.Params, &params))
	assert.Equal(t, models.OrientationChangedParams{
		Orientation: "portrait_flipped",
		Degrees:     270,
		Source:      "device",
	}, params)
}

func TestAutorotateChanged(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	AutorotateChanged(ns, true)

	n := receive(t, ns)
	assert.Equal(t, models.NotificationAutorotateChanged, n.Method)
	assert.JSONEq(t, `{"enabled":true}`, string(n.Params))
}

func TestLinkNotifications(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 4)
	LinkOpened(ns, "COM4")
	LinkLost(ns, "COM4", errors.New("unplugged"))
	LinkTested(ns, "ACK", nil)
	LinkTested(ns, "", errors.New("timed out"))

	n := receive(t, ns)
	assert.Equal(t, models.NotificationLinkOpened, n.Method)
	assert.JSONEq(t, `{"port":"COM4"}`, string(n.Params))

	n = receive(t, ns)
	assert.Equal(t, models.NotificationLinkLost, n.Method)
	assert.JSONEq(t, `{"port":"COM4","error":"unplugged"}`, string(n.Params))

	n = receive(t, ns)
	assert.JSONEq(t, `{"ok":true,"response":"ACK"}`, string(n.Params))

	n = receive(t, ns)
	assert.JSONEq(t, `{"ok":false,"error":"timed out"}`, string(n.Params))
}

func TestDeviceRecalibratedHasNoParams(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	DeviceRecalibrated(ns)

	n := receive(t, ns)
	assert.Equal(t, models.NotificationDeviceRecalibrated, n.Method)
	assert.Nil(t, n.Params)

	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"device.recalibrated"}`, string(b))
}

func TestOperationFailed(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	OperationFailed(ns, models.OperationToggle, "timeout", errors.New("timed out waiting for response"))

	n := receive(t, ns)
	assert.Equal(t, models.NotificationOperationFailed, n.Method)
	assert.JSONEq(t,
		`{"operation":"toggle","kind":"timeout","error":"timed out waiting for response"}`,
		string(n.Params))
}

func TestSendDropsWhenFull(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	DeviceStatus(ns, true)
	DeviceStatus(ns, false)

	n := receive(t, ns)
	assert.JSONEq(t, `{"running":true}`, string(n.Params))
	assert.Empty(t, ns)
}
