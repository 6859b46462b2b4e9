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

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/config"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/display"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/link"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/protocol"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service/autorotate"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service/broker"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service/listener"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ShutdownTimeout bounds the wait for the link before the final DC2.
const ShutdownTimeout = 3 * time.Second

// Link is an open connection to the sensor.
type Link interface {
	protocol.Link
	Name() string
	Close() error
}

// Args lets callers replace the hardware collaborators. Nil fields are
// filled from the config.
type Args struct {
	Display   display.Service
	OpenLink  func(name string, baud int) (Link, error)
	ListPorts func() ([]string, error)
	Clock     clockwork.Clock
}

// Service owns the serial link and everything driven by it.
type Service struct {
	ctx       context.Context
	link      Link
	clock     clockwork.Clock
	openLink  func(name string, baud int) (Link, error)
	listPorts func() ([]string, error)
	cfg       *config.Instance
	machine   *autorotate.Machine
	broker    *broker.Broker
	listener  *listener.Listener
	cancel    context.CancelFunc
	ns        chan models.Notification
	mu        syncutil.Mutex
	stopped   bool
}

// Start builds the service, opens the configured port and, if configured,
// asks the device to start autorotating. A port that can't be opened is
// reported but doesn't stop the service; another port can be chosen later.
func Start(cfg *config.Instance, args Args) (*Service, error) {
	if args.Clock == nil {
		args.Clock = clockwork.NewRealClock()
	}

	if args.Display == nil {
		backend, err := display.NewBackend(cfg.Monitor(), &command.RealExecutor{})
		if err != nil {
			return nil, fmt.Errorf("failed to set up display backend: %w", err)
		}
		log.Info().Str("backend", backend.Name()).Int("monitor", cfg.Monitor()).Msg("display backend ready")
		args.Display = display.NewRotator(backend)
	}

	if args.OpenLink == nil || args.ListPorts == nil {
		provider := link.NewProvider(cfg.ReadTimeout())
		if args.OpenLink == nil {
			args.OpenLink = func(name string, baud int) (Link, error) {
				l, err := provider.Open(name, baud)
				if err != nil {
					return nil, err
				}
				return l, nil
			}
		}
		if args.ListPorts == nil {
			args.ListPorts = provider.ListAvailable
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	ns := make(chan models.Notification, broker.DefaultSourceSize)

	b := broker.NewBroker(ctx, ns)
	b.Start()

	svc := &Service{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		clock:     args.Clock,
		openLink:  args.OpenLink,
		listPorts: args.ListPorts,
		ns:        ns,
		broker:    b,
		machine:   autorotate.New(args.Display, ns, cfg.Threshold()),
	}

	if err := svc.attach(cfg.SerialPort()); err != nil {
		log.Error().Err(err).Msg("serial port unavailable at startup")
		notifications.OperationFailed(ns, models.OperationOpen, autorotate.KindTransport, err)
		return svc, nil
	}

	if cfg.EnableOnStart() && !svc.machine.Enabled() {
		log.Info().Msg("enabling autorotate on start")
		if _, err := svc.machine.Toggle(ctx); err != nil {
			log.Warn().Err(err).Msg("device did not enable autorotate on start")
		}
	}

	return svc, nil
}

func (s *Service) Machine() *autorotate.Machine {
	return s.machine
}

func (s *Service) Broker() *broker.Broker {
	return s.broker
}

func (s *Service) Config() *config.Instance {
	return s.cfg
}

// Context is cancelled when the service stops.
func (s *Service) Context() context.Context {
	return s.ctx
}

// Ports lists the serial ports the sensor may be on.
func (s *Service) Ports() ([]string, error) {
	ports, err := s.listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	return ports, nil
}

// Connected reports whether a link is attached.
func (s *Service) Connected() bool {
	return s.machine.Port() != ""
}

// OpenPort closes the current link, if any, and opens name instead. On
// success the port is saved as the configured port.
func (s *Service) OpenPort(name string) error {
	if err := s.attach(name); err != nil {
		notifications.OperationFailed(s.ns, models.OperationOpen, autorotate.KindTransport, err)
		return err
	}

	s.cfg.SetSerialPort(name)
	if err := s.cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save serial port to config")
	}
	return nil
}

// ClosePort detaches and closes the current link.
func (s *Service) ClosePort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
}

func (s *Service) attach(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.New("service stopped")
	}

	s.detachLocked()

	l, err := s.openLink(name, s.cfg.BaudRate())
	if err != nil {
		return fmt.Errorf("failed to open link: %w", err)
	}

	engine := protocol.NewEngine(l, protocol.Options{
		Clock:        s.clock,
		Timeout:      s.cfg.AckTimeout(),
		PollInterval: s.cfg.PollInterval(),
	})
	s.machine.Attach(engine, l.Name())

	lst := listener.New(s.machine, engine, s.clock, s.cfg.ListenerInterval())
	lst.Start()
	go s.watch(lst, l)

	s.link = l
	s.listener = lst

	log.Info().Str("port", l.Name()).Msg("serial link attached")
	notifications.LinkOpened(s.ns, l.Name())
	return nil
}

// detachLocked stops the listener and closes the link. Caller must hold mu.
func (s *Service) detachLocked() {
	if s.listener != nil {
		s.listener.Stop()
		s.listener = nil
	}
	s.machine.Detach()
	if s.link != nil {
		if err := s.link.Close(); err != nil {
			log.Warn().Err(err).Str("port", s.link.Name()).Msg("failed to close serial link")
		}
		s.link = nil
	}
}

// watch closes l once its listener gives up on it.
func (s *Service) watch(lst *listener.Listener, l Link) {
	<-lst.Done()
	if lst.Err() == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link != l {
		return
	}
	s.listener = nil
	s.link = nil
	if err := l.Close(); err != nil {
		log.Warn().Err(err).Str("port", l.Name()).Msg("failed to close lost serial link")
	}
}

// Stop tells the device to stop autorotating, closes the link and stops
// the broker. It is safe to call more than once.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	log.Info().Msg("stopping service")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	shutdownErr := s.machine.Shutdown(ctx)
	cancel()
	if shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("device did not confirm shutdown")
	}

	s.mu.Lock()
	s.detachLocked()
	s.mu.Unlock()

	s.cancel()
	<-s.broker.Done()

	log.Info().Msg("service stopped")
	return nil
}
