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

package display

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
)

const xrandrTimeout = 5 * time.Second

// Matches an active output, e.g.
// "HDMI-1 connected primary 1920x1080+0+0 left (normal left inverted right ...".
var xrandrOutputRe = regexp.MustCompile(
	`^(\S+) connected(?: primary)? (\d+)x(\d+)\+\d+\+\d+(?: (normal|left|inverted|right))?`,
)

var xrandrRotations = map[string]orientation.Orientation{
	"normal":   orientation.Landscape,
	"left":     orientation.Portrait,
	"inverted": orientation.LandscapeFlipped,
	"right":    orientation.PortraitFlipped,
}

func xrandrRotation(o orientation.Orientation) string {
	for name, v := range xrandrRotations {
		if v == o {
			return name
		}
	}
	return "normal"
}

type xrandrOutput struct {
	Name string
	Mode Mode
}

// parseXrandr returns the active outputs listed by "xrandr --query", in order.
func parseXrandr(out []byte) ([]xrandrOutput, error) {
	var outputs []xrandrOutput
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		m := xrandrOutputRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		w, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid width in %q: %w", m[0], err)
		}
		h, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("invalid height in %q: %w", m[0], err)
		}
		rot := orientation.Landscape
		if m[4] != "" {
			rot = xrandrRotations[m[4]]
		}
		outputs = append(outputs, xrandrOutput{
			Name: m[1],
			Mode: Mode{Width: w, Height: h, Orientation: rot},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read xrandr output: %w", err)
	}
	return outputs, nil
}

// Xrandr rotates an X11 output by shelling out to xrandr.
type Xrandr struct {
	exec    command.Executor
	monitor int
}

// NewXrandr returns a backend for the monitor'th active output, counting
// from 1.
func NewXrandr(exec command.Executor, monitor int) *Xrandr {
	return &Xrandr{exec: exec, monitor: monitor}
}

func (*Xrandr) Name() string { return "xrandr" }

func (x *Xrandr) output() (xrandrOutput, error) {
	ctx, cancel := context.WithTimeout(context.Background(), xrandrTimeout)
	defer cancel()

	out, err := x.exec.Output(ctx, "xrandr", "--query")
	if err != nil {
		return xrandrOutput{}, fmt.Errorf("failed to query xrandr: %w", err)
	}
	outputs, err := parseXrandr(out)
	if err != nil {
		return xrandrOutput{}, err
	}
	if x.monitor < 1 || x.monitor > len(outputs) {
		return xrandrOutput{}, fmt.Errorf("%w: %d of %d", ErrMonitorNotFound, x.monitor, len(outputs))
	}
	return outputs[x.monitor-1], nil
}

func (x *Xrandr) CurrentMode() (Mode, error) {
	o, err := x.output()
	if err != nil {
		return Mode{}, err
	}
	return o.Mode, nil
}

// SetMode only changes the rotation. xrandr swaps the dimensions itself.
func (x *Xrandr) SetMode(m Mode) error {
	o, err := x.output()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), xrandrTimeout)
	defer cancel()

	err = x.exec.Run(ctx, "xrandr", "--output", o.Name, "--rotate", xrandrRotation(m.Orientation))
	if err != nil {
		return fmt.Errorf("xrandr failed to rotate %s: %w", o.Name, err)
	}
	return nil
}
