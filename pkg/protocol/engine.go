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

package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultTimeout is how long an exchange waits for the first response byte.
	DefaultTimeout = 10 * time.Second
	// DefaultPollInterval is the gap between availability checks while waiting.
	DefaultPollInterval = 20 * time.Millisecond
)

// Link is the half-duplex byte channel to the device. Implementations
// serialise their own operations; the Engine serialises whole exchanges.
type Link interface {
	Write(p []byte) (int, error)
	Flush() error
	BytesAvailable() (int, error)
	// ReadExact blocks until n bytes are read or the link's read timeout
	// expires.
	ReadExact(n int) ([]byte, error)
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Clock        clockwork.Clock
	Timeout      time.Duration
	PollInterval time.Duration
}

// Engine owns a Link and hands it out one transaction at a time. The
// protocol has no request identifiers, so a response can only be matched to
// its request if nothing else touches the link between the write and the
// read. Every request/response exchange, including nested follow-ups, must
// therefore run inside a single transaction.
type Engine struct {
	link         Link
	clock        clockwork.Clock
	coordinator  *semaphore.Weighted
	timeout      time.Duration
	pollInterval time.Duration
}

func NewEngine(link Link, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Engine{
		link:         link,
		clock:        opts.Clock,
		coordinator:  semaphore.NewWeighted(1),
		timeout:      opts.Timeout,
		pollInterval: opts.PollInterval,
	}
}

// Timeout returns the configured response timeout.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Transact waits for exclusive use of the link and runs fn with it. The
// context only bounds the wait for the link; once fn starts it runs to
// completion.
func (e *Engine) Transact(ctx context.Context, fn func(tx *Tx) error) error {
	if err := e.coordinator.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for link: %w", err)
	}
	defer e.coordinator.Release(1)
	return fn(&Tx{engine: e})
}

// TryTransact runs fn only if no other transaction is in flight. It reports
// whether fn was run.
func (e *Engine) TryTransact(fn func(tx *Tx) error) (bool, error) {
	if !e.coordinator.TryAcquire(1) {
		return false, nil
	}
	defer e.coordinator.Release(1)
	return true, fn(&Tx{engine: e})
}

// SendAndWait performs a single exchange in its own transaction.
func (e *Engine) SendAndWait(ctx context.Context, payload []byte) (Code, error) {
	var code Code
	err := e.Transact(ctx, func(tx *Tx) error {
		var err error
		code, err = tx.SendAndWait(payload)
		return err
	})
	return code, err
}

// Tx is exclusive access to the link for the duration of one transaction.
// It must not be retained after the transaction function returns.
type Tx struct {
	engine *Engine
}

// Send writes and flushes payload without waiting for a response.
func (tx *Tx) Send(payload []byte) error {
	log.Debug().Hex("payload", payload).Msg("protocol: sending")

	if _, err := tx.engine.link.Write(payload); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if err := tx.engine.link.Flush(); err != nil {
		return &TransportError{Op: "flush", Err: err}
	}
	return nil
}

// SendAndWait writes payload and waits for a single response byte. Input
// already pending before the write is discarded first, so a late answer to
// an earlier exchange is never taken as this one's. It returns ErrTimeout
// if nothing arrives within the engine timeout and a *TransportError as
// soon as the link fails.
func (tx *Tx) SendAndWait(payload []byte) (Code, error) {
	if err := tx.discardPending(); err != nil {
		return 0, err
	}
	if err := tx.Send(payload); err != nil {
		return 0, err
	}

	e := tx.engine
	start := e.clock.Now()
	for {
		n, err := e.link.BytesAvailable()
		if err != nil {
			return 0, &TransportError{Op: "poll", Err: err}
		}
		if n > 0 {
			code, err := tx.read()
			if err != nil {
				return 0, err
			}
			log.Debug().
				Stringer("code", code).
				Dur("elapsed", e.clock.Since(start)).
				Msg("protocol: received response")
			return code, nil
		}
		if e.clock.Since(start) >= e.timeout {
			log.Debug().Hex("payload", payload).Msg("protocol: response timeout")
			return 0, ErrTimeout
		}
		e.clock.Sleep(e.pollInterval)
	}
}

// Poll reads one pending byte if the link has any. It never waits for data
// to arrive.
func (tx *Tx) Poll() (Code, bool, error) {
	n, err := tx.engine.link.BytesAvailable()
	if err != nil {
		return 0, false, &TransportError{Op: "poll", Err: err}
	}
	if n == 0 {
		return 0, false, nil
	}
	code, err := tx.read()
	if err != nil {
		return 0, false, err
	}
	return code, true, nil
}

// discardPending drops whatever the link has buffered.
func (tx *Tx) discardPending() error {
	link := tx.engine.link
	n, err := link.BytesAvailable()
	if err != nil {
		return &TransportError{Op: "poll", Err: err}
	}
	if n == 0 {
		return nil
	}
	stale, err := link.ReadExact(n)
	if err != nil {
		return &TransportError{Op: "read", Err: err}
	}
	log.Debug().Hex("bytes", stale).Msg("protocol: discarding stale input")
	return nil
}

func (tx *Tx) read() (Code, error) {
	buf, err := tx.engine.link.ReadExact(1)
	if err != nil {
		return 0, &TransportError{Op: "read", Err: err}
	}
	return Decode(buf[0]), nil
}
