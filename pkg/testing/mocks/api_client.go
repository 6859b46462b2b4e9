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

package mocks

import (
	"context"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a mock implementation of client.APIClient for testing.
type MockAPIClient struct {
	mock.Mock
}

func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) Status(ctx context.Context) (models.StatusResponse, error) {
	args := m.Called(ctx)
	status, _ := args.Get(0).(models.StatusResponse)
	return status, args.Error(1)
}

func (m *MockAPIClient) Ports(ctx context.Context) (models.PortsResponse, error) {
	args := m.Called(ctx)
	ports, _ := args.Get(0).(models.PortsResponse)
	return ports, args.Error(1)
}

func (m *MockAPIClient) OpenPort(ctx context.Context, port string) (models.StatusResponse, error) {
	args := m.Called(ctx, port)
	status, _ := args.Get(0).(models.StatusResponse)
	return status, args.Error(1)
}

func (m *MockAPIClient) Rotate(ctx context.Context, o orientation.Orientation) (models.StatusResponse, error) {
	args := m.Called(ctx, o)
	status, _ := args.Get(0).(models.StatusResponse)
	return status, args.Error(1)
}

func (m *MockAPIClient) Toggle(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockAPIClient) Test(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAPIClient) Query(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockAPIClient) Recalibrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// WaitNotification mocks waiting for a notification.
func (m *MockAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	method string,
) (models.Notification, error) {
	args := m.Called(ctx, timeout, method)
	n, _ := args.Get(0).(models.Notification)
	return n, args.Error(1)
}

// SetupStatusResponse configures the mock to return status for Status.
func (m *MockAPIClient) SetupStatusResponse(status models.StatusResponse) {
	m.On("Status", mock.Anything).Return(status, nil)
}
