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

package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

var (
	ErrPortNotFound = errors.New("serial port not found")
	ErrPortBusy     = errors.New("serial port busy")
)

// Provider opens links to the sensor and lists candidate ports.
type Provider struct {
	OpenPort    SerialPortFactory
	ListPorts   func() ([]string, error)
	ReadTimeout time.Duration
}

func NewProvider(readTimeout time.Duration) *Provider {
	return &Provider{
		OpenPort:    DefaultSerialPortFactory,
		ListPorts:   helpers.GetSerialDeviceList,
		ReadTimeout: readTimeout,
	}
}

// Open opens the named port at baud with the sensor's line settings.
func (p *Provider) Open(name string, baud int) (*SerialLink, error) {
	if name == "" {
		return nil, ErrPortNotFound
	}

	port, err := p.OpenPort(name, Mode(baud))
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) {
			switch portErr.Code() {
			case serial.PortNotFound:
				return nil, fmt.Errorf("%w: %s", ErrPortNotFound, name)
			case serial.PortBusy:
				return nil, fmt.Errorf("%w: %s", ErrPortBusy, name)
			default:
			}
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	// Some USB serial drivers ignore the initial status bits.
	if err := port.SetDTR(true); err != nil {
		log.Warn().Err(err).Str("port", name).Msg("failed to assert DTR")
	}

	l, err := NewSerialLink(name, port, p.ReadTimeout)
	if err != nil {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close serial port")
		}
		return nil, err
	}

	log.Info().Str("port", name).Int("baud", Mode(baud).BaudRate).Msg("opened serial link")
	return l, nil
}

// ListAvailable returns the names of ports the sensor may be attached to.
func (p *Provider) ListAvailable() ([]string, error) {
	ports, err := p.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
