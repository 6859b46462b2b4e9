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

// Package systray is the tray menu operators use to rotate the display and
// drive the sensor by hand.
package systray

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"fyne.io/systray"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service"
	"github.com/nixinwang/dialog"
	"github.com/rs/zerolog/log"
)

const notificationQueue = 16

// Options configures the tray.
type Options struct {
	Exec    command.Executor
	Icon    []byte
	LogPath string
}

func dialogAlert(title, msg string, isErr bool) {
	b := dialog.Message("%s", msg).Title(title)
	if isErr {
		b.Error()
	} else {
		b.Info()
	}
}

func onReady(ctx context.Context, svc *service.Service, opts Options) func() {
	return func() {
		systray.SetIcon(opts.Icon)
		if runtime.GOOS != "darwin" {
			systray.SetTitle(appName)
		}
		systray.SetTooltip(appName)

		t := &Tray{
			svc:     svc,
			exec:    opts.Exec,
			alert:   dialogAlert,
			logPath: opts.LogPath,
			orients: make(map[orientation.Orientation]item, len(orientation.All)),
			setTip:  systray.SetTooltip,
		}

		mStatus := systray.AddMenuItem("Not connected", "Serial port in use")
		mStatus.Disable()
		t.status = mStatus
		systray.AddSeparator()

		// menu order differs from wire order
		order := []orientation.Orientation{
			orientation.Landscape,
			orientation.LandscapeFlipped,
			orientation.Portrait,
			orientation.PortraitFlipped,
		}
		orientClicks := make([]chan struct{}, 0, len(order))
		for _, o := range order {
			mi := systray.AddMenuItemCheckbox(o.Label(), "Rotate the display", false)
			t.orients[o] = mi
			orientClicks = append(orientClicks, mi.ClickedCh)
		}
		mAuto := systray.AddMenuItemCheckbox("Auto-rotate", "Let the sensor rotate the display", false)
		t.auto = mAuto
		mStartup := systray.AddMenuItemCheckbox("Auto-rotate on launch", "Enable auto-rotate when the app starts", false)
		t.startup = mStartup
		systray.AddSeparator()

		mTest := systray.AddMenuItem("Test comms", "Check the sensor answers")
		mQuery := systray.AddMenuItem("Query device", "Ask the sensor whether it is auto-rotating")
		mRecal := systray.AddMenuItem("Recalibrate IMU", "Recalibrate the sensor")
		mPorts := systray.AddMenuItem("Serial port", "Choose the sensor's serial port")
		mRefresh := mPorts.AddSubMenuItem("Refresh", "Rescan serial ports")
		t.addPort = func(name string) (item, <-chan struct{}) {
			mi := mPorts.AddSubMenuItemCheckbox(name, "Use "+name, false)
			return mi, mi.ClickedCh
		}
		systray.AddSeparator()

		mLog := systray.AddMenuItem("View log", "View log file")
		mConfig := systray.AddMenuItem("Edit config", "Edit config file")
		mAbout := systray.AddMenuItem("About", "")
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Stop auto-rotating and quit")

		t.refreshPorts(ctx)
		t.sync()

		ch, id := svc.Broker().Subscribe(notificationQueue)
		go t.listen(ch)
		go func() {
			<-ctx.Done()
			svc.Broker().Unsubscribe(id)
		}()

		for i, o := range order {
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-orientClicks[i]:
						t.rotate(o)
					}
				}
			}()
		}

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-mAuto.ClickedCh:
					t.toggle(ctx)
				case <-mStartup.ClickedCh:
					t.toggleStartup()
				case <-mTest.ClickedCh:
					t.testLink(ctx)
				case <-mQuery.ClickedCh:
					t.query(ctx)
				case <-mRecal.ClickedCh:
					t.recalibrate(ctx)
				case <-mRefresh.ClickedCh:
					t.refreshPorts(ctx)
				case <-mLog.ClickedCh:
					t.open(t.logPath)
				case <-mConfig.ClickedCh:
					t.open(svc.Config().Path())
				case <-mAbout.ClickedCh:
					dialog.Message("%s", aboutText()).Title(fmt.Sprintf("About %s", appName)).Info()
				case <-mQuit.ClickedCh:
					log.Info().Msg("quit selected from tray")
					systray.Quit()
					return
				}
			}
		}()
	}
}

// Run shows the tray and blocks until Quit is chosen or ctx is cancelled.
// onExit runs after the tray is gone.
func Run(ctx context.Context, svc *service.Service, opts Options, onExit func()) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		systray.Quit()
	}()

	start := time.Now()
	systray.Run(onReady(ctx, svc, opts), func() {
		log.Debug().Dur("uptime", time.Since(start)).Msg("tray exited")
		cancel()
		if onExit != nil {
			onExit()
		}
	})
}
