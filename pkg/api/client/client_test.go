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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(strings.TrimPrefix(ts.URL, "http://"))
}

func TestStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"port":"COM4","orientation":"portrait","degrees":90,` +
			`"thresholdDegrees":65,"connected":true,"autorotate":true}`))
	}))

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "COM4", status.Port)
	assert.Equal(t, "portrait", status.Orientation)
	assert.True(t, status.Enabled)
}

func TestRotateUsesOrientationName(t *testing.T) {
	t.Parallel()

	var path string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"orientation":"landscape_flipped"}`))
	}))

	status, err := c.Rotate(context.Background(), orientation.LandscapeFlipped)
	require.NoError(t, err)
	assert.Equal(t, "/api/rotate/landscape_flipped", path)
	assert.Equal(t, "landscape_flipped", status.Orientation)
}

func TestOpenPortSendsBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"port":"COM5"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"port":"COM5","connected":true}`))
	}))

	status, err := c.OpenPort(context.Background(), "COM5")
	require.NoError(t, err)
	assert.True(t, status.Connected)
}

func TestDeviceCalls(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/autorotate":
			_, _ = w.Write([]byte(`{"enabled":true}`))
		case "/api/query":
			_, _ = w.Write([]byte(`{"running":false}`))
		case "/api/test":
			_, _ = w.Write([]byte(`{"ok":true,"response":"ACK"}`))
		case "/api/recalibrate":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	enabled, err := c.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	running, err := c.Query(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, c.Test(ctx))
	require.NoError(t, c.Recalibrate(ctx))
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`{"error":"SYN: timed out waiting for response","kind":"timeout"}`))
	}))

	err := c.Test(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.Status)
	assert.Equal(t, "timeout", apiErr.Kind)
	assert.Contains(t, err.Error(), "timed out")
}

func TestAPIError_PlainBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))

	_, err := c.Status(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Forbidden", apiErr.Message)
	assert.Empty(t, apiErr.Kind)
}

func TestUnreachable(t *testing.T) {
	t.Parallel()

	c := New("127.0.0.1:1")
	_, err := c.Status(context.Background())
	require.Error(t, err)
}

func notificationServer(t *testing.T, notifs ...models.Notification) *Client {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		for _, n := range notifs {
			data, _ := json.Marshal(n)
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		// hold the connection open until the client leaves
		_, _, _ = conn.ReadMessage()
	}))
}

func TestWaitNotification(t *testing.T) {
	t.Parallel()

	c := notificationServer(t,
		models.Notification{Method: models.NotificationLinkOpened},
		models.Notification{
			Method: models.NotificationOrientationChanged,
			Params: json.RawMessage(`{"orientation":"portrait","source":"device","degrees":90}`),
		},
	)

	n, err := c.WaitNotification(context.Background(), 2*time.Second, models.NotificationOrientationChanged)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationOrientationChanged, n.Method)
	assert.Contains(t, string(n.Params), "portrait")
}

func TestWaitNotification_Timeout(t *testing.T) {
	t.Parallel()

	c := notificationServer(t, models.Notification{Method: models.NotificationLinkOpened})

	_, err := c.WaitNotification(context.Background(), 50*time.Millisecond, models.NotificationLinkLost)
	require.ErrorIs(t, err, ErrNotificationTimeout)
}

func TestWaitNotification_Cancelled(t *testing.T) {
	t.Parallel()

	c := notificationServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := c.WaitNotification(ctx, 5*time.Second, "")
	require.ErrorIs(t, err, context.Canceled)
}
