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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/zaparoo-autorotate/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/config"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/link"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	fs          *flag.FlagSet
	Version     *bool
	ListPorts   *bool
	Port        *string
	NoTray      *bool
	Status      *bool
	Rotate      *string
	Toggle      *bool
	Test        *bool
	Query       *bool
	Recalibrate *bool
	Wait        *string
}

// SetupFlags registers the shared flags on the default flag set.
func SetupFlags() *Flags {
	return NewFlags(flag.CommandLine)
}

func NewFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		ListPorts: fs.Bool(
			"list-ports",
			false,
			"print available serial ports and exit",
		),
		Port: fs.String(
			"port",
			"",
			"serial port of the sensor (switches a running instance)",
		),
		NoTray: fs.Bool(
			"no-tray",
			false,
			"run without the tray menu",
		),
		Status: fs.Bool(
			"status",
			false,
			"print the state of the running instance",
		),
		Rotate: fs.String(
			"rotate",
			"",
			"rotate the display: landscape, portrait, landscape_flipped, portrait_flipped",
		),
		Toggle: fs.Bool(
			"toggle",
			false,
			"toggle auto-rotate on the running instance",
		),
		Test: fs.Bool(
			"test",
			false,
			"test comms with the sensor",
		),
		Query: fs.Bool(
			"query",
			false,
			"ask the sensor whether it is auto-rotating",
		),
		Recalibrate: fs.Bool(
			"recalibrate",
			false,
			"recalibrate the sensor's IMU",
		),
		Wait: fs.String(
			"wait",
			"",
			"print the next notification with this method and exit",
		),
		fs: fs,
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses the command line and handles flags that don't need config.
func (f *Flags) Pre() {
	if !f.fs.Parsed() {
		_ = f.fs.Parse(os.Args[1:])
	}

	if *f.Version {
		_, _ = fmt.Printf("Zaparoo Autorotate v%s\n", config.AppVersion)
		os.Exit(0)
	}
}

// Post handles flags that need config but not the service.
func (f *Flags) Post(cfg *config.Instance) {
	if *f.ListPorts {
		ports, err := link.NewProvider(cfg.ReadTimeout()).ListAvailable()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		printPorts(os.Stdout, ports, cfg.SerialPort())
		os.Exit(0)
	}
}

// RemoteCommand reports whether the command line asks a running instance
// to do something rather than starting a new one.
func (f *Flags) RemoteCommand() bool {
	return *f.Status || *f.Rotate != "" || *f.Toggle || *f.Test ||
		*f.Query || *f.Recalibrate || *f.Wait != ""
}

// Remote forwards the requested commands to a running instance in a fixed
// order and prints each result. It stops at the first failure.
func (f *Flags) Remote(ctx context.Context, c client.APIClient, out io.Writer) error {
	if f.isFlagPassed("port") && *f.Port != "" {
		status, err := c.OpenPort(ctx, *f.Port)
		if err != nil {
			return fmt.Errorf("failed to open port %s: %w", *f.Port, err)
		}
		_, _ = fmt.Fprintf(out, "port: %s\n", status.Port)
	}

	if *f.Rotate != "" {
		o, err := orientation.Parse(*f.Rotate)
		if err != nil {
			return err
		}
		status, err := c.Rotate(ctx, o)
		if err != nil {
			return fmt.Errorf("failed to rotate: %w", err)
		}
		_, _ = fmt.Fprintf(out, "orientation: %s\n", status.Orientation)
	}

	if *f.Toggle {
		enabled, err := c.Toggle(ctx)
		if err != nil {
			return fmt.Errorf("failed to toggle auto-rotate: %w", err)
		}
		_, _ = fmt.Fprintf(out, "auto-rotate: %s\n", onOff(enabled))
	}

	if *f.Test {
		if err := c.Test(ctx); err != nil {
			return fmt.Errorf("comms test failed: %w", err)
		}
		_, _ = fmt.Fprintln(out, "test: ok")
	}

	if *f.Query {
		running, err := c.Query(ctx)
		if err != nil {
			return fmt.Errorf("failed to query device: %w", err)
		}
		_, _ = fmt.Fprintf(out, "device auto-rotate: %s\n", onOff(running))
	}

	if *f.Recalibrate {
		if err := c.Recalibrate(ctx); err != nil {
			return fmt.Errorf("failed to recalibrate: %w", err)
		}
		_, _ = fmt.Fprintln(out, "recalibrate: ok")
	}

	if *f.Status {
		status, err := c.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		printStatus(out, status)
	}

	if *f.Wait != "" {
		n, err := c.WaitNotification(ctx, 0, *f.Wait)
		if err != nil {
			return fmt.Errorf("error waiting for notification: %w", err)
		}
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to encode notification: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
	}

	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printStatus(out io.Writer, s models.StatusResponse) {
	port := s.Port
	if port == "" {
		port = "-"
	}
	state := "disconnected"
	if s.Connected {
		state = "connected"
	}
	_, _ = fmt.Fprintf(out, "port:        %s (%s)\n", port, state)
	_, _ = fmt.Fprintf(out, "orientation: %s (%d°)\n", s.Orientation, s.Degrees)
	_, _ = fmt.Fprintf(out, "auto-rotate: %s\n", onOff(s.Enabled))
	_, _ = fmt.Fprintf(out, "threshold:   %d°\n", s.Threshold)
}

func printPorts(out io.Writer, ports []string, configured string) {
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "No serial ports found.")
		return
	}
	for _, p := range ports {
		if p == configured {
			_, _ = fmt.Fprintf(out, "%s (configured)\n", p)
		} else {
			_, _ = fmt.Fprintln(out, p)
		}
	}
}

// Setup initializes logging and the user config. Returns a user config
// object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	dirs helpers.Dirs,
	defaultConfig config.Values,
	writers []io.Writer,
) *config.Instance {
	err := helpers.InitLogging(dirs, writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(config.DefaultConfigDir(), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	helpers.SetDebugLogging(cfg.DebugLogging())

	if err := telemetry.Init(telemetry.Options{
		Enabled: cfg.ErrorReporting(),
		DSN:     cfg.ReportingDSN(),
		Version: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	log.Info().Str("version", config.AppVersion).Str("log", dirs.LogPath()).Msg("starting")

	return cfg
}
