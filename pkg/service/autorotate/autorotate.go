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

// Package autorotate tracks whether the sensor is driving the display and
// which way the display currently faces, and performs every operator and
// device-initiated transition of that state.
package autorotate

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/display"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/protocol"
	"github.com/rs/zerolog/log"
)

// DefaultThreshold is the tilt in degrees the sensor must pass before it
// requests a rotation.
const DefaultThreshold = 65

// Machine holds the autorotation state. The zero state is disabled with the
// orientation read from the display at construction.
//
// Display calls are made without holding mu. rotateMu is held from a
// display apply until the orientation is recorded, so operator and device
// rotations can't interleave. Device operations run inside a protocol
// transaction so no other exchange can interleave with them.
type Machine struct {
	display     display.Service
	ns          chan<- models.Notification
	engine      *protocol.Engine
	port        string
	rotateMu    syncutil.Mutex
	mu          syncutil.RWMutex
	threshold   byte
	orientation orientation.Orientation
	enabled     bool
}

// New creates a disabled Machine. If the display can't be read the
// orientation starts as landscape.
func New(disp display.Service, ns chan<- models.Notification, threshold int) *Machine {
	if threshold <= 0 || threshold > 255 {
		threshold = DefaultThreshold
	}

	o, err := disp.CurrentOrientation()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read display orientation, assuming landscape")
		o = orientation.Landscape
	}
	log.Info().Stringer("orientation", o).Int("threshold", threshold).Msg("autorotate state initialised")

	return &Machine{
		display:     disp,
		ns:          ns,
		threshold:   byte(threshold),
		orientation: o,
	}
}

// Attach makes engine the link used by device operations.
func (m *Machine) Attach(engine *protocol.Engine, port string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine = engine
	m.port = port
}

// Detach forgets the current link and disables autorotation.
func (m *Machine) Detach() {
	m.mu.Lock()
	wasEnabled := m.enabled
	m.engine = nil
	m.port = ""
	m.enabled = false
	m.mu.Unlock()

	if wasEnabled {
		notifications.AutorotateChanged(m.ns, false)
	}
}

func (m *Machine) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Machine) Orientation() orientation.Orientation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orientation
}

// Port returns the name of the attached link, or "" when detached.
func (m *Machine) Port() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.port
}

func (m *Machine) Threshold() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int(m.threshold)
}

// SetThreshold changes the tilt sent to the device with the next status
// reply. Out of range values are ignored.
func (m *Machine) SetThreshold(threshold int) {
	if threshold <= 0 || threshold > 255 {
		log.Warn().Int("threshold", threshold).Msg("ignoring out of range threshold")
		return
	}
	m.mu.Lock()
	changed := int(m.threshold) != threshold
	m.threshold = byte(threshold)
	m.mu.Unlock()
	if changed {
		log.Info().Int("threshold", threshold).Msg("threshold changed")
	}
}

func (m *Machine) currentEngine() (*protocol.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.engine == nil {
		return nil, ErrNoLink
	}
	return m.engine, nil
}

func (m *Machine) fail(operation string, err error) error {
	log.Error().Err(err).Str("operation", operation).Msg("operation failed")
	notifications.OperationFailed(m.ns, operation, Kind(err), err)
	return err
}

// Rotate applies o to the display at the operator's request. The recorded
// orientation only changes once the display accepted it.
func (m *Machine) Rotate(o orientation.Orientation) error {
	if !o.Valid() {
		return m.fail(models.OperationRotate, fmt.Errorf("invalid orientation %d", o))
	}

	m.rotateMu.Lock()
	if err := m.display.ApplyOrientation(o); err != nil {
		m.rotateMu.Unlock()
		return m.fail(models.OperationRotate, err)
	}
	m.mu.Lock()
	m.orientation = o
	m.mu.Unlock()
	m.rotateMu.Unlock()

	log.Info().Stringer("orientation", o).Msg("display rotated by operator")
	notifications.OrientationChanged(m.ns, o, models.SourceOperator)
	return nil
}

// Toggle asks the device to start autorotating when disabled, or to stop
// when enabled. It returns the new enabled state.
func (m *Machine) Toggle(ctx context.Context) (bool, error) {
	engine, err := m.currentEngine()
	if err != nil {
		return m.Enabled(), m.fail(models.OperationToggle, err)
	}

	var enabled bool
	err = engine.Transact(ctx, func(tx *protocol.Tx) error {
		var err error
		enabled, err = m.requestAutorotate(tx, !m.Enabled())
		return err
	})
	if err != nil {
		return m.Enabled(), m.fail(models.OperationToggle, err)
	}
	return enabled, nil
}

// requestAutorotate runs the enable (DC1) or disable (DC2) exchange. The
// device may first ask for the host's state with ENQ; the reply is the
// orientation byte and the threshold, and the device's answer to that reply
// settles the request. Only ACK changes state.
func (m *Machine) requestAutorotate(tx *protocol.Tx, enable bool) (bool, error) {
	req := protocol.DC2
	if enable {
		req = protocol.DC1
	}

	code, err := tx.SendAndWait(protocol.Bytes(req))
	if err != nil {
		return m.Enabled(), err
	}

	if code == protocol.ENQ {
		reply := []byte{m.Orientation().Byte(), byte(m.Threshold())}
		log.Debug().Hex("reply", reply).Msg("device asked for status during toggle")
		code, err = tx.SendAndWait(reply)
		if err != nil {
			return m.Enabled(), err
		}
		if err := protocol.Expect(code, protocol.ACK, protocol.NAK); err != nil {
			return m.Enabled(), err
		}
	}

	switch code {
	case protocol.ACK:
		m.setEnabled(enable)
		return enable, nil
	case protocol.NAK:
		return m.Enabled(), fmt.Errorf("%s autorotate: %w", verb(enable), protocol.ErrRefused)
	default:
		return m.Enabled(), protocol.Expect(code, protocol.ACK, protocol.NAK, protocol.ENQ)
	}
}

func verb(enable bool) string {
	if enable {
		return "enable"
	}
	return "disable"
}

func (m *Machine) setEnabled(enabled bool) {
	m.mu.Lock()
	changed := m.enabled != enabled
	m.enabled = enabled
	m.mu.Unlock()

	log.Info().Bool("enabled", enabled).Msg("autorotate state confirmed by device")
	if changed {
		notifications.AutorotateChanged(m.ns, enabled)
	}
}

// HandleDeviceCode processes one byte the device sent on its own. It must
// be called inside the listener's transaction. Rotation requests are
// acknowledged before the display is turned; a display failure leaves the
// recorded orientation unchanged. Other bytes are discarded.
func (m *Machine) HandleDeviceCode(tx *protocol.Tx, code protocol.Code) error {
	if !m.Enabled() {
		log.Debug().Stringer("code", code).Msg("autorotate disabled, discarding device byte")
		return nil
	}

	o, ok := code.Orientation()
	if !ok {
		log.Debug().Stringer("code", code).Msg("discarding unsolicited device byte")
		return nil
	}

	if err := tx.Send(protocol.Bytes(protocol.ACK)); err != nil {
		return err
	}

	m.rotateMu.Lock()
	current := m.Orientation()
	if o == current {
		m.rotateMu.Unlock()
		log.Debug().Stringer("orientation", o).Msg("device requested current orientation")
		return nil
	}

	if err := m.display.ApplyOrientation(o); err != nil {
		m.rotateMu.Unlock()
		return m.fail(models.OperationDeviceRotate, err)
	}
	m.mu.Lock()
	m.orientation = o
	m.mu.Unlock()
	m.rotateMu.Unlock()

	log.Info().Stringer("from", current).Stringer("to", o).Msg("display rotated by device")
	notifications.OrientationChanged(m.ns, o, models.SourceDevice)
	return nil
}

// exchange sends a single code in its own transaction.
func (m *Machine) exchange(ctx context.Context, code protocol.Code) (protocol.Code, error) {
	engine, err := m.currentEngine()
	if err != nil {
		return 0, err
	}
	resp, err := engine.SendAndWait(ctx, protocol.Bytes(code))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", code, err)
	}
	return resp, nil
}

// TestLink sends SYN and expects ACK.
func (m *Machine) TestLink(ctx context.Context) error {
	resp, err := m.exchange(ctx, protocol.SYN)
	if err == nil {
		err = protocol.Expect(resp, protocol.ACK)
	}
	if err != nil {
		notifications.LinkTested(m.ns, "", err)
		return m.fail(models.OperationTest, err)
	}

	log.Info().Msg("link test succeeded")
	notifications.LinkTested(m.ns, resp.String(), nil)
	return nil
}

// QueryStatus asks the device with ENQ whether it is autorotating. It does
// not change the local state.
func (m *Machine) QueryStatus(ctx context.Context) (bool, error) {
	resp, err := m.exchange(ctx, protocol.ENQ)
	if err == nil {
		err = protocol.Expect(resp, protocol.ACK, protocol.NAK)
	}
	if err != nil {
		return false, m.fail(models.OperationQuery, err)
	}

	running := resp == protocol.ACK
	log.Info().Bool("running", running).Msg("device status")
	notifications.DeviceStatus(m.ns, running)
	return running, nil
}

// Recalibrate asks the device to recalibrate its IMU with DC3.
func (m *Machine) Recalibrate(ctx context.Context) error {
	resp, err := m.exchange(ctx, protocol.DC3)
	if err == nil && resp == protocol.NAK {
		err = fmt.Errorf("recalibrate: %w", protocol.ErrRefused)
	}
	if err == nil {
		err = protocol.Expect(resp, protocol.ACK)
	}
	if err != nil {
		return m.fail(models.OperationRecalibrate, err)
	}

	log.Info().Msg("device recalibrated")
	notifications.DeviceRecalibrated(m.ns)
	return nil
}

// Shutdown tells the device to stop autorotating before the host exits. It
// is sent regardless of the local state and is a no-op without a link.
func (m *Machine) Shutdown(ctx context.Context) error {
	engine, err := m.currentEngine()
	if errors.Is(err, ErrNoLink) {
		return nil
	}

	err = engine.Transact(ctx, func(tx *protocol.Tx) error {
		_, err := m.requestAutorotate(tx, false)
		return err
	})
	if err != nil {
		return m.fail(models.OperationShutdown, err)
	}
	return nil
}

// LinkLost records that engine's link failed. Autorotation is disabled and
// the link detached unless another link was attached since.
func (m *Machine) LinkLost(engine *protocol.Engine, cause error) {
	m.mu.Lock()
	if m.engine != engine {
		m.mu.Unlock()
		return
	}
	port := m.port
	wasEnabled := m.enabled
	m.engine = nil
	m.port = ""
	m.enabled = false
	m.mu.Unlock()

	log.Error().Err(cause).Str("port", port).Msg("serial link lost, autorotate disabled")
	if wasEnabled {
		notifications.AutorotateChanged(m.ns, false)
	}
	notifications.LinkLost(m.ns, port, cause)
}
