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

package systray

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/config"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service"
	"github.com/rs/zerolog/log"
)

const appName = "Zaparoo Autorotate"

// item is the part of a tray menu entry the tray logic drives.
type item interface {
	Check()
	Uncheck()
	Checked() bool
	SetTitle(title string)
	Show()
	Hide()
}

// alerter shows a message to the operator.
type alerter func(title, msg string, isErr bool)

type portItem struct {
	item item
	name string
}

// Tray keeps the menu in step with the service. Menu construction lives in
// systray.go; everything here works on the item interface.
type Tray struct {
	svc     *service.Service
	exec    command.Executor
	alert   alerter
	addPort func(name string) (item, <-chan struct{})
	orients map[orientation.Orientation]item
	auto    item
	status  item
	startup item
	setTip  func(string)
	logPath string
	ports   []*portItem
	mu      syncutil.Mutex
}

func setChecked(i item, checked bool) {
	if checked {
		i.Check()
	} else {
		i.Uncheck()
	}
}

func openCommand() string {
	switch runtime.GOOS {
	case "windows":
		return "explorer"
	case "darwin":
		return "open"
	default:
		return "xdg-open"
	}
}

func (t *Tray) open(path string) {
	err := t.exec.Start(t.svc.Context(), command.StartOptions{HideWindow: true}, openCommand(), path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to open file")
	}
}

func (t *Tray) syncOrientation() {
	current := t.svc.Machine().Orientation()
	for o, i := range t.orients {
		setChecked(i, o == current)
	}
	t.syncTooltip()
}

func (t *Tray) syncAutorotate() {
	setChecked(t.auto, t.svc.Machine().Enabled())
	t.syncTooltip()
}

func (t *Tray) syncTooltip() {
	if t.setTip == nil {
		return
	}
	state := "off"
	if t.svc.Machine().Enabled() {
		state = "on"
	}
	t.setTip(fmt.Sprintf("%s: %s, auto-rotate %s",
		appName, t.svc.Machine().Orientation().Label(), state))
}

func (t *Tray) syncPorts() {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.svc.Machine().Port()
	for _, p := range t.ports {
		setChecked(p.item, p.name != "" && p.name == current)
	}

	if current == "" {
		t.status.SetTitle("Not connected")
	} else {
		t.status.SetTitle("Connected: " + current)
	}
}

func (t *Tray) sync() {
	t.syncOrientation()
	t.syncAutorotate()
	t.syncPorts()
	if t.startup != nil {
		setChecked(t.startup, t.svc.Config().EnableOnStart())
	}
}

// refreshPorts rebuilds the port submenu from the ports currently present.
// The configured port is always listed. Items are reused because the tray
// can't remove entries, only hide them.
func (t *Tray) refreshPorts(ctx context.Context) {
	names, err := t.svc.Ports()
	if err != nil {
		log.Warn().Err(err).Msg("failed to list serial ports")
	}
	if configured := t.svc.Config().SerialPort(); configured != "" && !contains(names, configured) {
		names = append(names, configured)
	}

	t.mu.Lock()
	for i, name := range names {
		if i < len(t.ports) {
			p := t.ports[i]
			p.name = name
			p.item.SetTitle(name)
			p.item.Show()
			continue
		}
		it, clicked := t.addPort(name)
		p := &portItem{item: it, name: name}
		t.ports = append(t.ports, p)
		go t.watchPort(ctx, p, clicked)
	}
	for _, p := range t.ports[len(names):] {
		p.name = ""
		p.item.Hide()
	}
	t.mu.Unlock()

	t.syncPorts()
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func (t *Tray) watchPort(ctx context.Context, p *portItem, clicked <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-clicked:
			t.mu.Lock()
			name := p.name
			t.mu.Unlock()
			if name != "" {
				t.selectPort(name)
			}
		}
	}
}

func (t *Tray) selectPort(name string) {
	if name == t.svc.Machine().Port() {
		t.syncPorts()
		return
	}
	if err := t.svc.OpenPort(name); err != nil {
		t.alert("Serial port", fmt.Sprintf("Couldn't open %s: %v", name, err), true)
	}
	t.sync()
}

func (t *Tray) rotate(o orientation.Orientation) {
	if err := t.svc.Machine().Rotate(o); err != nil {
		t.alert("Rotate display", err.Error(), true)
	}
	t.syncOrientation()
}

func (t *Tray) toggle(ctx context.Context) {
	if _, err := t.svc.Machine().Toggle(ctx); err != nil {
		t.alert("Auto-rotate", err.Error(), true)
	}
	t.syncAutorotate()
}

// toggleStartup flips enable_on_start and saves it.
func (t *Tray) toggleStartup() {
	cfg := t.svc.Config()
	cfg.SetEnableOnStart(!cfg.EnableOnStart())
	if err := cfg.Save(); err != nil {
		log.Error().Err(err).Msg("failed to save enable on start")
		t.alert("Settings", err.Error(), true)
	}
	setChecked(t.startup, cfg.EnableOnStart())
}

func (t *Tray) testLink(ctx context.Context) {
	port := t.svc.Machine().Port()
	if err := t.svc.Machine().TestLink(ctx); err != nil {
		t.alert("Test comms", err.Error(), true)
		return
	}
	t.alert("Test comms", "Device on "+port+" answered.", false)
}

func (t *Tray) query(ctx context.Context) {
	running, err := t.svc.Machine().QueryStatus(ctx)
	if err != nil {
		t.alert("Query device", err.Error(), true)
		return
	}
	if running {
		t.alert("Query device", "Device is auto-rotating.", false)
	} else {
		t.alert("Query device", "Device is not auto-rotating.", false)
	}
}

func (t *Tray) recalibrate(ctx context.Context) {
	if err := t.svc.Machine().Recalibrate(ctx); err != nil {
		t.alert("Recalibrate IMU", err.Error(), true)
		return
	}
	t.alert("Recalibrate IMU", "Device recalibrated.", false)
}

// handle updates the menu for one notification. Failures of operator
// actions are reported where the action ran; only failures the operator
// didn't cause are alerted here.
func (t *Tray) handle(n models.Notification) {
	switch n.Method {
	case models.NotificationOrientationChanged:
		t.syncOrientation()
	case models.NotificationAutorotateChanged:
		t.syncAutorotate()
	case models.NotificationLinkOpened:
		t.syncPorts()
	case models.NotificationLinkLost:
		t.sync()
		go t.alert("Serial port", "Lost connection to the sensor.", true)
	case models.NotificationOperationFailed:
		var params models.OperationFailedParams
		if err := unmarshalParams(n, &params); err != nil {
			log.Warn().Err(err).Msg("bad operation.failed notification")
			return
		}
		if params.Operation == models.OperationDeviceRotate {
			t.syncOrientation()
			go t.alert("Rotate display", params.Error, true)
		}
	}
}

// listen applies notifications until ch closes.
func (t *Tray) listen(ch <-chan models.Notification) {
	for n := range ch {
		t.handle(n)
	}
}

func unmarshalParams(n models.Notification, v any) error {
	if err := json.Unmarshal(n.Params, v); err != nil {
		return fmt.Errorf("failed to decode %s params: %w", n.Method, err)
	}
	return nil
}

func aboutText() string {
	return appName + "\n" +
		"Version v" + config.AppVersion + "\n\n" +
		"License: GPLv3\n\n" +
		"www.zaparoo.org"
}
