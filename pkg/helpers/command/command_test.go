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

//go:build !windows

package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealExecutor_Run(t *testing.T) {
	t.Parallel()

	executor := &RealExecutor{}

	t.Run("executes_successful_command", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, executor.Run(context.Background(), "true"))
	})

	t.Run("returns_error_for_failed_command", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, executor.Run(context.Background(), "false"))
	})

	t.Run("returns_error_for_nonexistent_command", func(t *testing.T) {
		t.Parallel()
		require.Error(t, executor.Run(context.Background(), "nonexistent_command_that_should_not_exist_12345"))
	})
}

func TestRealExecutor_Output(t *testing.T) {
	t.Parallel()

	executor := &RealExecutor{}

	t.Run("returns_stdout", func(t *testing.T) {
		t.Parallel()

		out, err := executor.Output(context.Background(), "echo", "HDMI-1 connected")
		require.NoError(t, err)
		assert.Equal(t, "HDMI-1 connected\n", string(out))
	})

	t.Run("includes_stderr_on_failure", func(t *testing.T) {
		t.Parallel()

		_, err := executor.Output(context.Background(), "sh", "-c", "echo bad output >&2; exit 3")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad output")
		assert.Contains(t, err.Error(), "sh:")
	})
}

func TestRealExecutor_Start(t *testing.T) {
	t.Parallel()

	executor := &RealExecutor{}

	require.NoError(t, executor.Start(context.Background(), StartOptions{HideWindow: true}, "true"))
	require.Error(t, executor.Start(context.Background(), StartOptions{}, "nonexistent_command_that_should_not_exist_12345"))
}
