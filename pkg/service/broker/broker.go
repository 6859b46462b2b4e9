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

// Package broker fans notifications out to every subscriber (tray, API
// websocket clients, log) without letting a slow subscriber stall the
// state machine that produced them.
package broker

import (
	"context"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// DefaultSourceSize is the buffer of the channel producers publish into.
const DefaultSourceSize = 32

type subscriber struct {
	ch      chan models.Notification
	dropped int
}

type Broker struct {
	ctx    context.Context
	source <-chan models.Notification
	subs   map[int]*subscriber
	done   chan struct{}
	mu     syncutil.RWMutex
	nextID int
	closed bool
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:    ctx,
		source: source,
		subs:   make(map[int]*subscriber),
		done:   make(chan struct{}),
	}
}

// Start runs the broadcast loop until the source closes or the context is
// cancelled. Subscriber channels are closed on exit.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		defer b.shutdown()
		for {
			select {
			case n, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker source closed")
					return
				}
				ev := log.Debug().Str("method", n.Method)
				if len(n.Params) > 0 {
					ev = ev.RawJSON("params", n.Params)
				}
				ev.Msg("notification")
				b.broadcast(n)
			case <-b.ctx.Done():
				log.Debug().Msg("broker stopping")
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(n models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub.ch <- n:
			if sub.dropped > 0 {
				log.Warn().Int("subscriber_id", id).Int("dropped", sub.dropped).
					Msg("subscriber caught up after dropping notifications")
				sub.dropped = 0
			}
		default:
			if sub.dropped == 0 {
				log.Warn().Int("subscriber_id", id).Str("method", n.Method).
					Msg("subscriber queue full, dropping notifications")
			}
			sub.dropped++
		}
	}
}

// Subscribe registers a subscriber with a queue of bufferSize notifications.
// Notifications arriving while the queue is full are dropped for that
// subscriber only. After the broker has stopped the returned channel is
// already closed.
func (b *Broker) Subscribe(bufferSize int) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	if b.closed {
		close(ch)
		return ch, id
	}
	b.subs[id] = &subscriber{ch: ch}

	log.Debug().Int("subscriber_id", id).Int("buffer_size", bufferSize).Msg("subscriber registered")
	return ch, id
}

// Unsubscribe removes a subscription and closes its channel. Repeated calls
// are no-ops.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
	log.Debug().Int("subscriber_id", id).Msg("subscriber removed")
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
