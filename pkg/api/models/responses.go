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

type OrientationChangedParams struct {
	Orientation string `json:"orientation"`
	Source      string `json:"source"`
	Degrees     int    `json:"degrees"`
}

type AutorotateChangedParams struct {
	Enabled bool `json:"enabled"`
}

type LinkParams struct {
	Port  string `json:"port"`
	Error string `json:"error,omitempty"`
}

type LinkTestedParams struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	OK       bool   `json:"ok"`
}

type DeviceStatusParams struct {
	Running bool `json:"running"`
}

type OperationFailedParams struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
	Kind      string `json:"kind"`
}

// StatusResponse is returned by the status endpoint.
type StatusResponse struct {
	Port        string `json:"port"`
	Orientation string `json:"orientation"`
	Degrees     int    `json:"degrees"`
	Threshold   int    `json:"thresholdDegrees"`
	Connected   bool   `json:"connected"`
	Enabled     bool   `json:"autorotate"`
}

type PortsResponse struct {
	Current string   `json:"current"`
	Ports   []string `json:"ports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
