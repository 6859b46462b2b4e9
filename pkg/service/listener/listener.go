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

// Package listener watches the serial link for rotation requests the device
// sends on its own while autorotation is enabled.
package listener

import (
	"context"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/protocol"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service/autorotate"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the time between polls of the link.
const DefaultInterval = 10 * time.Millisecond

// Listener polls one link. After a link failure it stops for good; a new
// Listener is needed once the link is reopened.
type Listener struct {
	err      error
	clock    clockwork.Clock
	ctx      context.Context
	machine  *autorotate.Machine
	engine   *protocol.Engine
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
	mu       syncutil.Mutex
	started  bool
}

func New(
	machine *autorotate.Machine,
	engine *protocol.Engine,
	clock clockwork.Clock,
	interval time.Duration,
) *Listener {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		machine:  machine,
		engine:   engine,
		clock:    clock,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. Calling it more than once has no effect.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	go l.run()
}

// Stop ends the loop and waits for it to exit.
func (l *Listener) Stop() {
	l.cancel()
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if started {
		<-l.done
	}
}

// Done is closed when the loop exits.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Err returns the link error that stopped the loop, if any.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Listener) run() {
	defer close(l.done)

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", l.interval).Msg("listener started")
	for {
		select {
		case <-l.ctx.Done():
			log.Debug().Msg("listener stopped")
			return
		case <-ticker.Chan():
			if err := l.tick(); err != nil {
				l.mu.Lock()
				l.err = err
				l.mu.Unlock()
				l.machine.LinkLost(l.engine, err)
				return
			}
		}
	}
}

// tick drains at most one byte. It skips the tick while another exchange
// holds the link so it can't take that exchange's response. Only link
// failures are returned.
func (l *Listener) tick() error {
	if !l.machine.Enabled() {
		return nil
	}

	var handleErr error
	_, err := l.engine.TryTransact(func(tx *protocol.Tx) error {
		code, ok, err := tx.Poll()
		if err != nil || !ok {
			return err
		}
		log.Debug().Stringer("code", code).Msg("listener received device byte")
		handleErr = l.machine.HandleDeviceCode(tx, code)
		return nil
	})
	if err != nil {
		return err
	}

	if handleErr != nil {
		if protocol.IsTransport(handleErr) {
			return handleErr
		}
		log.Warn().Err(handleErr).Msg("device rotation request failed")
	}
	return nil
}
