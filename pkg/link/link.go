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

// Package link adapts a serial port to the byte channel used by the
// control protocol.
package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the rate the sensor firmware listens at.
	DefaultBaudRate = 9600
	// DefaultReadTimeout bounds ReadExact.
	DefaultReadTimeout = time.Second
	// pumpTimeout is the port read timeout used by the background pump, kept
	// short so Close is noticed promptly.
	pumpTimeout = 50 * time.Millisecond
)

var (
	ErrClosed      = errors.New("link closed")
	ErrReadTimeout = errors.New("link read timeout")
	ErrShortWrite  = errors.New("short write to serial port")
)

// SerialPort is the subset of serial.Port used by the link, so tests can
// substitute a fake.
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Drain() error
	SetReadTimeout(t time.Duration) error
	SetDTR(dtr bool) error
	Close() error
}

// SerialPortFactory opens a serial port.
type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

// DefaultSerialPortFactory opens a real port with go.bug.st/serial.
func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Mode returns the line settings expected by the sensor: 8 data bits, no
// parity, one stop bit, DTR asserted.
func Mode(baud int) *serial.Mode {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			DTR: true,
		},
	}
}

// SerialLink buffers incoming bytes from a serial port in a background
// goroutine so the number of pending bytes can be queried without blocking.
type SerialLink struct {
	port        SerialPort
	readErr     error
	arrived     chan struct{}
	done        chan struct{}
	name        string
	buf         []byte
	readTimeout time.Duration
	mu          syncutil.Mutex // protects buf, readErr, closed
	writeMu     syncutil.Mutex
	closed      bool
}

// NewSerialLink wraps an already opened port and starts the read pump.
func NewSerialLink(name string, port SerialPort, readTimeout time.Duration) (*SerialLink, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(pumpTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	l := &SerialLink{
		port:        port,
		name:        name,
		readTimeout: readTimeout,
		arrived:     make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go l.pump()
	return l, nil
}

func (l *SerialLink) pump() {
	defer close(l.done)
	buf := make([]byte, 64)
	for {
		n, err := l.port.Read(buf)
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		if err != nil {
			l.readErr = err
			l.mu.Unlock()
			log.Error().Err(err).Str("port", l.name).Msg("serial read failed")
			l.signal()
			return
		}
		if n > 0 {
			l.buf = append(l.buf, buf[:n]...)
		}
		l.mu.Unlock()
		if n > 0 {
			l.signal()
		}
	}
}

func (l *SerialLink) signal() {
	select {
	case l.arrived <- struct{}{}:
	default:
	}
}

// Name returns the port name the link was opened on.
func (l *SerialLink) Name() string {
	return l.name
}

func (l *SerialLink) Write(p []byte) (int, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.state(); err != nil {
		return 0, err
	}
	n, err := l.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write to port: %w", err)
	}
	if n != len(p) {
		return n, ErrShortWrite
	}
	return n, nil
}

// Flush blocks until everything written has been transmitted.
func (l *SerialLink) Flush() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.state(); err != nil {
		return err
	}
	if err := l.port.Drain(); err != nil {
		return fmt.Errorf("failed to drain port: %w", err)
	}
	return nil
}

// BytesAvailable returns the number of received bytes not yet read. A
// failed read pump is reported here so pollers notice a lost device.
func (l *SerialLink) BytesAvailable() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}
	if len(l.buf) == 0 && l.readErr != nil {
		return 0, l.readErr
	}
	return len(l.buf), nil
}

// ReadExact returns exactly n bytes, waiting up to the read timeout.
func (l *SerialLink) ReadExact(n int) ([]byte, error) {
	timer := time.NewTimer(l.readTimeout)
	defer timer.Stop()

	for {
		l.mu.Lock()
		switch {
		case l.closed:
			l.mu.Unlock()
			return nil, ErrClosed
		case len(l.buf) >= n:
			out := append([]byte(nil), l.buf[:n]...)
			l.buf = l.buf[n:]
			l.mu.Unlock()
			return out, nil
		case l.readErr != nil:
			err := l.readErr
			l.mu.Unlock()
			return nil, err
		}
		l.mu.Unlock()

		select {
		case <-l.arrived:
		case <-timer.C:
			return nil, ErrReadTimeout
		}
	}
}

// Close stops the read pump and closes the port.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	err := l.port.Close()
	<-l.done
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

func (l *SerialLink) state() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}
