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

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatch(t *testing.T, cfg *Instance, onReload func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cfg.Watch(ctx, onReload) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	var reloads atomic.Int32
	startWatch(t, cfg, func() { reloads.Add(1) })

	writeConfig(t, dir, `config_schema = 1

[autorotate]
threshold_degrees = 30
`)

	require.Eventually(t, func() bool {
		return cfg.Threshold() == 30
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return reloads.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatch_KeepsValuesOnBadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	var reloads atomic.Int32
	startWatch(t, cfg, func() { reloads.Add(1) })

	writeConfig(t, dir, "config_schema = [")
	time.Sleep(3 * ReloadDelay)

	assert.Equal(t, DefaultThreshold, cfg.Threshold())
	assert.Zero(t, reloads.Load())
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	var reloads atomic.Int32
	startWatch(t, cfg, func() { reloads.Add(1) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600))
	time.Sleep(3 * ReloadDelay)

	assert.Zero(t, reloads.Load())
}
