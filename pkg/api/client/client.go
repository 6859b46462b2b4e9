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

// Package client talks to the API of an already running instance, so a
// second launch can forward commands instead of fighting over the port.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 30 * time.Second

var ErrNotificationTimeout = errors.New("timed out waiting for notification")

// APIError is a non-2xx reply from the API.
type APIError struct {
	Message string
	Kind    string
	Status  int
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Kind, e.Message)
}

type Client struct {
	http   *http.Client
	dialer *websocket.Dialer
	host   string
}

// New returns a client for the API listening on host ("127.0.0.1:7498").
func New(host string) *Client {
	return &Client{
		host:   host,
		http:   &http.Client{Timeout: DefaultTimeout},
		dialer: websocket.DefaultDialer,
	}
}

func (c *Client) url(scheme, path string) string {
	u := url.URL{Scheme: scheme, Host: c.host, Path: path}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url("http", path), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
		var errResp models.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
			apiErr.Kind = errResp.Kind
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (models.StatusResponse, error) {
	var status models.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *Client) Ports(ctx context.Context) (models.PortsResponse, error) {
	var ports models.PortsResponse
	err := c.do(ctx, http.MethodGet, "/api/ports", nil, &ports)
	return ports, err
}

func (c *Client) OpenPort(ctx context.Context, port string) (models.StatusResponse, error) {
	var status models.StatusResponse
	err := c.do(ctx, http.MethodPost, "/api/port", models.PortParams{Port: port}, &status)
	return status, err
}

func (c *Client) Rotate(ctx context.Context, o orientation.Orientation) (models.StatusResponse, error) {
	var status models.StatusResponse
	err := c.do(ctx, http.MethodPost, "/api/rotate/"+o.String(), nil, &status)
	return status, err
}

// Toggle flips autorotation and returns the new state.
func (c *Client) Toggle(ctx context.Context) (bool, error) {
	var resp models.AutorotateChangedParams
	err := c.do(ctx, http.MethodPost, "/api/autorotate", nil, &resp)
	return resp.Enabled, err
}

func (c *Client) Test(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/test", nil, nil)
}

// Query reports whether the device says it is autorotating.
func (c *Client) Query(ctx context.Context) (bool, error) {
	var resp models.DeviceStatusParams
	err := c.do(ctx, http.MethodPost, "/api/query", nil, &resp)
	return resp.Running, err
}

func (c *Client) Recalibrate(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/recalibrate", nil, nil)
}

// WaitNotification blocks until a notification with the given method
// arrives or ctx is cancelled. A timeout of zero waits indefinitely. An
// empty method matches any notification.
func (c *Client) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	method string,
) (models.Notification, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url("ws", "/api/notifications"), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to connect to notifications: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing websocket")
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return models.Notification{}, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return models.Notification{}, ctx.Err()
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return models.Notification{}, ErrNotificationTimeout
			}
			return models.Notification{}, fmt.Errorf("failed to read notification: %w", err)
		}

		var n models.Notification
		if err := json.Unmarshal(message, &n); err != nil || n.Method == "" {
			continue
		}
		if method == "" || n.Method == method {
			return n, nil
		}
	}
}
