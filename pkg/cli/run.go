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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/config"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// TrayFunc shows the tray and blocks until the operator quits or ctx is
// cancelled.
type TrayFunc func(ctx context.Context, svc *service.Service)

type RunArgs struct {
	Cfg     *config.Instance
	Flags   *Flags
	Tray    TrayFunc
	Client  client.APIClient
	Out     io.Writer
	Service service.Args
	Dirs    helpers.Dirs
}

// Execute runs the parsed command line. Commands meant for a running
// instance are forwarded to it; otherwise the app is started, and if
// another copy already owns the port only -port is forwarded.
//
//nolint:gocritic // args copied for immutability
func Execute(ctx context.Context, args RunArgs) error {
	if args.Flags.RemoteCommand() {
		return args.Flags.Remote(ctx, args.Client, args.Out)
	}

	err := RunApp(ctx, args)
	if !errors.Is(err, helpers.ErrAlreadyRunning) {
		return err
	}

	log.Info().Err(err).Msg("another instance owns the serial port")
	if args.Flags.isFlagPassed("port") {
		return args.Flags.Remote(ctx, args.Client, args.Out)
	}
	_, _ = fmt.Fprintln(args.Out, "Zaparoo Autorotate is already running.")
	return nil
}

// RunApp owns the serial port until ctx is cancelled or the tray is quit.
// The API server, if enabled, runs alongside the tray.
//
//nolint:gocritic // args copied for immutability
func RunApp(ctx context.Context, args RunArgs) (returnErr error) {
	if err := helpers.EnsureDirectories(args.Dirs); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	release, err := helpers.AcquireInstanceLock(args.Dirs.TempDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("failed to release instance lock")
		}
	}()

	if args.Flags != nil && *args.Flags.Port != "" {
		log.Info().Str("port", *args.Flags.Port).Msg("using serial port from command line")
		args.Cfg.SetSerialPort(*args.Flags.Port)
	}

	svc, err := service.Start(args.Cfg, args.Service)
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
			if returnErr == nil {
				returnErr = err
			}
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// both goroutines log their own failures; neither stops the app
	var bg errgroup.Group
	if args.Cfg.APIEnabled() {
		srv := api.NewServer(svc)
		bg.Go(func() error {
			if err := srv.Serve(ctx, args.Cfg.APIListen()); err != nil {
				log.Error().Err(err).Msg("API server unavailable")
			}
			return nil
		})
	}
	bg.Go(func() error {
		err := args.Cfg.Watch(ctx, func() { applyConfig(args.Cfg, svc) })
		if err != nil {
			log.Warn().Err(err).Msg("config changes will need a restart")
		}
		return nil
	})

	if args.Tray != nil && (args.Flags == nil || !*args.Flags.NoTray) {
		args.Tray(ctx, svc)
	} else {
		log.Info().Msg("running without tray")
		<-ctx.Done()
	}

	cancel()
	_ = bg.Wait()
	return nil
}

// applyConfig pushes settings that can change without a restart.
func applyConfig(cfg *config.Instance, svc *service.Service) {
	helpers.SetDebugLogging(cfg.DebugLogging())
	svc.Machine().SetThreshold(cfg.Threshold())
}
