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

package helpers

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

type serialDevice struct {
	Vid string
	Pid string // empty matches any product from the vendor
}

// USB bridges commonly found on Arduino-class sensor boards.
var sensorBoards = []serialDevice{
	// Arduino SA
	{Vid: "2341"},
	{Vid: "2a03"},
	// WCH CH340/CH341
	{Vid: "1a86", Pid: "7523"},
	{Vid: "1a86", Pid: "5523"},
	// FTDI FT232R
	{Vid: "0403", Pid: "6001"},
	// Silicon Labs CP210x
	{Vid: "10c4", Pid: "ea60"},
}

func isSensorBoard(vid, pid string) bool {
	vid = strings.ToLower(vid)
	pid = strings.ToLower(pid)
	if vid == "" {
		return false
	}
	for _, d := range sensorBoards {
		if vid == d.Vid && (d.Pid == "" || pid == d.Pid) {
			return true
		}
	}
	return false
}

func platformPort(goos, name string) bool {
	switch goos {
	case "linux":
		return strings.HasPrefix(name, "/dev/ttyUSB") || strings.HasPrefix(name, "/dev/ttyACM")
	case "darwin":
		return strings.HasPrefix(name, "/dev/tty.usbserial") ||
			strings.HasPrefix(name, "/dev/tty.usbmodem") ||
			strings.HasPrefix(name, "/dev/cu.usbserial") ||
			strings.HasPrefix(name, "/dev/cu.usbmodem")
	case "windows":
		return strings.HasPrefix(name, "COM")
	default:
		return true
	}
}

// filterPorts drops ports that can't be a USB sensor on goos and orders
// recognised sensor boards first.
func filterPorts(goos string, ports []*enumerator.PortDetails) []string {
	type candidate struct {
		name   string
		sensor bool
	}

	candidates := make([]candidate, 0, len(ports))
	for _, p := range ports {
		if p == nil || !platformPort(goos, p.Name) {
			continue
		}
		candidates = append(candidates, candidate{
			name:   p.Name,
			sensor: p.IsUSB && isSensorBoard(p.VID, p.PID),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].sensor != candidates[j].sensor {
			return candidates[i].sensor
		}
		return candidates[i].name < candidates[j].name
	})

	devices := make([]string, 0, len(candidates))
	for _, c := range candidates {
		devices = append(devices, c.name)
	}
	return devices
}

// GetSerialDeviceList returns serial ports a sensor may be attached to,
// recognised boards first.
func GetSerialDeviceList() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		log.Debug().Err(err).Msg("detailed port enumeration failed, falling back to names")

		names, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list: %w", err)
		}
		details = make([]*enumerator.PortDetails, 0, len(names))
		for _, name := range names {
			details = append(details, &enumerator.PortDetails{Name: name})
		}
	}

	devices := filterPorts(runtime.GOOS, details)
	log.Debug().Strs("ports", devices).Msg("found serial ports")
	return devices, nil
}
