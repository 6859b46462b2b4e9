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
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/stretchr/testify/mock"
)

// MockDisplay is a testify mock for display.Service.
type MockDisplay struct {
	mock.Mock
}

func NewMockDisplay(current orientation.Orientation) *MockDisplay {
	m := &MockDisplay{}
	m.On("CurrentOrientation").Return(current, nil).Maybe()
	return m
}

func (m *MockDisplay) CurrentOrientation() (orientation.Orientation, error) {
	args := m.Called()
	o, _ := args.Get(0).(orientation.Orientation)
	//nolint:wrapcheck // mock returns
	return o, args.Error(1)
}

func (m *MockDisplay) ApplyOrientation(o orientation.Orientation) error {
	args := m.Called(o)
	//nolint:wrapcheck // mock returns
	return args.Error(0)
}
