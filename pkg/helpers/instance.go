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

package helpers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const PidFile = "autorotate.pid"

// ErrAlreadyRunning is returned when another process holds the instance lock.
var ErrAlreadyRunning = errors.New("zaparoo autorotate is already running")

// InstancePid returns the PID recorded in tempDir, or 0 if there is none.
func InstancePid(tempDir string) (int, error) {
	path := filepath.Join(tempDir, PidFile)

	//nolint:gosec // Safe: reads our own PID file
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

// AcquireInstanceLock records the current PID in tempDir so only one copy
// of the app owns the serial port. A PID file left by a dead process is
// replaced. The returned function removes the file.
func AcquireInstanceLock(tempDir string) (func() error, error) {
	pid, err := InstancePid(tempDir)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable pid file")
		pid = 0
	}

	if pid != 0 && pid != os.Getpid() {
		proc, err := os.FindProcess(pid)
		if err == nil && IsProcessRunning(proc) {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		log.Info().Int("pid", pid).Msg("removing stale pid file")
	}

	path := filepath.Join(tempDir, PidFile)
	err = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return func() error {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove PID file: %w", err)
		}
		return nil
	}, nil
}
