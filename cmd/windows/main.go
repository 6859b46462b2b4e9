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

//go:build windows

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/zaparoo-autorotate/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/assets"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/cli"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/config"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/ui/systray"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()
	flags.Pre()

	dirs := helpers.DefaultDirs()
	cfg := cli.Setup(
		dirs,
		config.BaseDefaults,
		[]io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}},
	)

	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	flags.Post(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, cli.RunArgs{
		Cfg:    cfg,
		Flags:  flags,
		Client: client.New(cfg.APIListen()),
		Out:    os.Stdout,
		Dirs:   dirs,
		Tray: func(ctx context.Context, svc *service.Service) {
			systray.Run(ctx, svc, systray.Options{
				Exec:    &command.RealExecutor{},
				Icon:    assets.TrayIconICO,
				LogPath: dirs.LogPath(),
			}, nil)
		},
	})
}
