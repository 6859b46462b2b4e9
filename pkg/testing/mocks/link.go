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
	"bytes"
	"errors"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
)

// ErrFakeReadTimeout is returned by FakeLink.ReadExact when fewer bytes are
// buffered than requested.
var ErrFakeReadTimeout = errors.New("fake link: read timeout")

// FakeLink is an in-memory half-duplex link. Bytes the device "sends" are
// queued with Inject or produced by Responder in reaction to a host write.
type FakeLink struct {
	// Responder, if set, is called with every host write and its result is
	// queued as the device's reply after ResponseDelay.
	Responder     func(written []byte) []byte
	PortName      string
	AvailableErr  error
	WriteErr      error
	FlushErr      error
	ReadErr       error
	rx            []byte
	tx            bytes.Buffer
	writes        [][]byte
	ResponseDelay time.Duration
	reads         int
	availCalls    int
	mu            syncutil.Mutex
	closed        bool
}

func NewFakeLink() *FakeLink {
	return &FakeLink{}
}

// Write records p and triggers the Responder.
func (f *FakeLink) Write(p []byte) (int, error) {
	f.mu.Lock()
	if f.WriteErr != nil {
		err := f.WriteErr
		f.mu.Unlock()
		return 0, err
	}
	written := append([]byte(nil), p...)
	f.tx.Write(written)
	f.writes = append(f.writes, written)
	responder := f.Responder
	delay := f.ResponseDelay
	f.mu.Unlock()

	if responder != nil {
		if resp := responder(written); len(resp) > 0 {
			if delay > 0 {
				time.AfterFunc(delay, func() { f.Inject(resp...) })
			} else {
				f.Inject(resp...)
			}
		}
	}
	return len(p), nil
}

// Name returns PortName, or "fake" when unset.
func (f *FakeLink) Name() string {
	if f.PortName == "" {
		return "fake"
	}
	return f.PortName
}

func (f *FakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeLink) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeLink) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FlushErr
}

func (f *FakeLink) BytesAvailable() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availCalls++
	if f.AvailableErr != nil {
		return 0, f.AvailableErr
	}
	return len(f.rx), nil
}

func (f *FakeLink) ReadExact(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	if len(f.rx) < n {
		return nil, ErrFakeReadTimeout
	}
	out := append([]byte(nil), f.rx[:n]...)
	f.rx = f.rx[n:]
	f.reads++
	return out, nil
}

// Inject queues bytes as if the device had sent them.
func (f *FakeLink) Inject(b ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, b...)
}

// SetAvailableErr makes subsequent BytesAvailable calls fail.
func (f *FakeLink) SetAvailableErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AvailableErr = err
}

// SetWriteErr makes subsequent Write calls fail.
func (f *FakeLink) SetWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteErr = err
}

// Written returns every byte written by the host so far.
func (f *FakeLink) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.tx.Bytes()...)
}

// Writes returns each host write separately.
func (f *FakeLink) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

// Reads returns how many successful ReadExact calls were made.
func (f *FakeLink) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Pending returns how many device bytes are still unread.
func (f *FakeLink) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rx)
}

// AvailableCalls returns how many times BytesAvailable was called.
func (f *FakeLink) AvailableCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availCalls
}

// RespondTo builds a Responder that answers a specific host payload.
// Writes not present in the table get no reply.
func RespondTo(table map[byte][]byte) func([]byte) []byte {
	return func(written []byte) []byte {
		if len(written) == 0 {
			return nil
		}
		return table[written[0]]
	}
}
