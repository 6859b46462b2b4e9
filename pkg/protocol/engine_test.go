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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(link Link, timeout time.Duration) *Engine {
	return NewEngine(link, Options{
		Timeout:      timeout,
		PollInterval: 2 * time.Millisecond,
	})
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	e := NewEngine(mocks.NewFakeLink(), Options{})

	assert.Equal(t, DefaultTimeout, e.Timeout())
	assert.Equal(t, DefaultPollInterval, e.pollInterval)
	assert.NotNil(t, e.clock)
}

func TestSendAndWait_Response(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.Responder = mocks.RespondTo(map[byte][]byte{SYN.Byte(): {ACK.Byte()}})
	e := newTestEngine(link, time.Second)

	code, err := e.SendAndWait(context.Background(), Bytes(SYN))

	require.NoError(t, err)
	assert.Equal(t, ACK, code)
	assert.Equal(t, []byte{0x16}, link.Written())
	assert.Equal(t, 1, link.Reads())
}

func TestSendAndWait_DelayedResponse(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.Responder = mocks.RespondTo(map[byte][]byte{DC1.Byte(): {NAK.Byte()}})
	link.ResponseDelay = 20 * time.Millisecond
	e := newTestEngine(link, time.Second)

	code, err := e.SendAndWait(context.Background(), Bytes(DC1))

	require.NoError(t, err)
	assert.Equal(t, NAK, code)
	assert.Greater(t, link.AvailableCalls(), 1, "should have polled while waiting")
}

func TestSendAndWait_UnknownByteIsReturned(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.Responder = mocks.RespondTo(map[byte][]byte{SYN.Byte(): {0x7f}})
	e := newTestEngine(link, time.Second)

	code, err := e.SendAndWait(context.Background(), Bytes(SYN))

	require.NoError(t, err)
	assert.False(t, code.Known())
	assert.Equal(t, byte(0x7f), code.Byte())
}

func TestSendAndWait_DiscardsStaleInput(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.Responder = mocks.RespondTo(map[byte][]byte{DC1.Byte(): {ACK.Byte()}})
	e := newTestEngine(link, time.Second)

	// late NAK to an exchange that already timed out
	link.Inject(NAK.Byte())

	code, err := e.SendAndWait(context.Background(), Bytes(DC1))

	require.NoError(t, err)
	assert.Equal(t, ACK, code)
	assert.Equal(t, 0, link.Pending())
}

func TestSendAndWait_LateResponseNotReused(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.Responder = mocks.RespondTo(map[byte][]byte{DC2.Byte(): {NAK.Byte()}})
	link.ResponseDelay = 60 * time.Millisecond
	e := newTestEngine(link, 20*time.Millisecond)

	_, err := e.SendAndWait(context.Background(), Bytes(DC2))
	require.ErrorIs(t, err, ErrTimeout)
	require.Eventually(t, func() bool { return link.Pending() == 1 }, time.Second, 5*time.Millisecond)

	link.Responder = mocks.RespondTo(map[byte][]byte{SYN.Byte(): {ACK.Byte()}})
	link.ResponseDelay = 0
	code, err := e.SendAndWait(context.Background(), Bytes(SYN))

	require.NoError(t, err)
	assert.Equal(t, ACK, code)
}

func TestSendAndWait_TimeoutFakeClock(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	link := mocks.NewFakeLink()
	e := NewEngine(link, Options{
		Clock:        clock,
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
	})
	start := clock.Now()

	type result struct {
		err  error
		code Code
	}
	done := make(chan result, 1)
	go func() {
		code, err := e.SendAndWait(context.Background(), Bytes(SYN))
		done <- result{code: code, err: err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("SendAndWait returned before the timeout elapsed")
	default:
	}

	clock.Advance(10 * time.Second)

	select {
	case r := <-done:
		require.ErrorIs(t, r.err, ErrTimeout)
		assert.Equal(t, 10*time.Second, clock.Since(start))
	case <-time.After(2 * time.Second):
		t.Fatal("SendAndWait did not return after the timeout elapsed")
	}

	assert.Equal(t, []byte{0x16}, link.Written())
	assert.Equal(t, 0, link.Reads())
}

func TestSendAndWait_TimeoutRealClock(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	e := newTestEngine(link, 60*time.Millisecond)

	start := time.Now()
	_, err := e.SendAndWait(context.Background(), Bytes(SYN))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, 0, link.Reads())
	assert.Equal(t, 0, link.Pending())
}

func TestSendAndWait_AvailabilityErrorIsImmediate(t *testing.T) {
	t.Parallel()

	linkErr := errors.New("device unplugged")
	link := mocks.NewFakeLink()
	link.AvailableErr = linkErr
	e := newTestEngine(link, 10*time.Second)

	start := time.Now()
	_, err := e.SendAndWait(context.Background(), Bytes(SYN))

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "poll", te.Op)
	require.ErrorIs(t, err, linkErr)
	assert.True(t, IsTransport(err))
}

func TestSendAndWait_WriteError(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.WriteErr = errors.New("write failed")
	e := newTestEngine(link, 10*time.Second)

	_, err := e.SendAndWait(context.Background(), Bytes(DC1))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "write", te.Op)
	assert.Equal(t, 1, link.AvailableCalls(), "only the check before writing")
	assert.Equal(t, 0, link.Reads())
}

func TestSendAndWait_FlushError(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.FlushErr = errors.New("flush failed")
	e := newTestEngine(link, 10*time.Second)

	_, err := e.SendAndWait(context.Background(), Bytes(DC1))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "flush", te.Op)
	assert.Contains(t, err.Error(), "link flush failed: flush failed")
}

func TestSendAndWait_ReadError(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.ReadErr = errors.New("framing error")
	link.Inject(ACK.Byte())
	e := newTestEngine(link, time.Second)

	_, err := e.SendAndWait(context.Background(), Bytes(SYN))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)
}

func TestTransact_NestedExchange(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.Responder = mocks.RespondTo(map[byte][]byte{
		DC1.Byte(): {ENQ.Byte()},
		0x02:       {ACK.Byte()},
	})
	e := newTestEngine(link, time.Second)

	var first, second Code
	err := e.Transact(context.Background(), func(tx *Tx) error {
		var err error
		first, err = tx.SendAndWait(Bytes(DC1))
		if err != nil {
			return err
		}
		second, err = tx.SendAndWait([]byte{0x02, 65})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, ENQ, first)
	assert.Equal(t, ACK, second)
	assert.Equal(t, [][]byte{{0x11}, {0x02, 65}}, link.Writes())
}

func TestTryTransact_SkipsWhileBusy(t *testing.T) {
	t.Parallel()

	e := newTestEngine(mocks.NewFakeLink(), time.Second)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = e.Transact(context.Background(), func(*Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ran, err := e.TryTransact(func(*Tx) error {
		t.Error("should not run while another transaction holds the link")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ran)

	close(release)

	require.Eventually(t, func() bool {
		ran, _ := e.TryTransact(func(*Tx) error { return nil })
		return ran
	}, time.Second, 5*time.Millisecond)
}

func TestTransact_ContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	e := newTestEngine(mocks.NewFakeLink(), time.Second)

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	go func() {
		_ = e.Transact(context.Background(), func(*Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Transact(ctx, func(*Tx) error {
		t.Error("should not run")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "waiting for link")
}

func TestTransact_ReleasesOnError(t *testing.T) {
	t.Parallel()

	e := newTestEngine(mocks.NewFakeLink(), time.Second)
	boom := errors.New("boom")

	err := e.Transact(context.Background(), func(*Tx) error { return boom })
	require.ErrorIs(t, err, boom)

	ran, err := e.TryTransact(func(*Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestPoll(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	e := newTestEngine(link, time.Second)

	_, err := e.TryTransact(func(tx *Tx) error {
		_, ok, err := tx.Poll()
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	link.Inject(DC3.Byte(), DC4.Byte())

	_, err = e.TryTransact(func(tx *Tx) error {
		code, ok, err := tx.Poll()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, DC3, code)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, link.Pending(), "poll must consume at most one byte")
}

func TestPoll_Error(t *testing.T) {
	t.Parallel()

	link := mocks.NewFakeLink()
	link.AvailableErr = errors.New("gone")
	e := newTestEngine(link, time.Second)

	ran, err := e.TryTransact(func(tx *Tx) error {
		_, _, err := tx.Poll()
		return err
	})
	assert.True(t, ran)
	assert.True(t, IsTransport(err))
}
