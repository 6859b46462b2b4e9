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
	"fmt"
	"unsafe"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"
)

var (
	modUser32                    = windows.NewLazySystemDLL("user32.dll")
	procEnumDisplayDevicesW      = modUser32.NewProc("EnumDisplayDevicesW")
	procEnumDisplaySettingsW     = modUser32.NewProc("EnumDisplaySettingsW")
	procChangeDisplaySettingsExW = modUser32.NewProc("ChangeDisplaySettingsExW")
)

const (
	enumCurrentSettings = 0xFFFFFFFF

	displayDeviceAttachedToDesktop = 0x00000001

	dmDisplayOrientation = 0x00000080
	dmPelsWidth          = 0x00080000
	dmPelsHeight         = 0x00100000

	cdsUpdateRegistry = 0x00000001

	dispChangeSuccessful = 0
	dispChangeRestart    = 1
	dispChangeFailed     = -1
	dispChangeBadMode    = -2
	dispChangeNotUpdated = -3
	dispChangeBadFlags   = -4
	dispChangeBadParam   = -5
)

// devModeW mirrors DEVMODEW with the display branch of its unions.
type devModeW struct {
	DeviceName         [32]uint16
	SpecVersion        uint16
	DriverVersion      uint16
	Size               uint16
	DriverExtra        uint16
	Fields             uint32
	PositionX          int32
	PositionY          int32
	DisplayOrientation uint32
	DisplayFixedOutput uint32
	Color              int16
	Duplex             int16
	YResolution        int16
	TTOption           int16
	Collate            int16
	FormName           [32]uint16
	LogPixels          uint16
	BitsPerPel         uint32
	PelsWidth          uint32
	PelsHeight         uint32
	DisplayFlags       uint32
	DisplayFrequency   uint32
	ICMMethod          uint32
	ICMIntent          uint32
	MediaType          uint32
	DitherType         uint32
	Reserved1          uint32
	Reserved2          uint32
	PanningWidth       uint32
	PanningHeight      uint32
}

type displayDeviceW struct {
	Cb           uint32
	DeviceName   [32]uint16
	DeviceString [128]uint16
	StateFlags   uint32
	DeviceID     [128]uint16
	DeviceKey    [128]uint16
}

func dispChangeError(code int32) error {
	switch code {
	case dispChangeRestart:
		return fmt.Errorf("display change requires a restart (%d)", code)
	case dispChangeFailed:
		return fmt.Errorf("display driver failed the mode change (%d)", code)
	case dispChangeBadMode:
		return fmt.Errorf("display mode not supported (%d)", code)
	case dispChangeNotUpdated:
		return fmt.Errorf("unable to write settings to the registry (%d)", code)
	case dispChangeBadFlags, dispChangeBadParam:
		return fmt.Errorf("invalid display change parameters (%d)", code)
	default:
		return fmt.Errorf("display change failed (%d)", code)
	}
}

// user32 rotates a Windows display adapter output.
type user32 struct {
	device string
}

// newUser32 resolves monitor, counting from 1 among outputs attached to the
// desktop, to its GDI device name.
func newUser32(monitor int) (*user32, error) {
	if err := procEnumDisplayDevicesW.Find(); err != nil {
		return nil, fmt.Errorf("user32 unavailable: %w", err)
	}

	seen := 0
	for i := uint32(0); ; i++ {
		dd := displayDeviceW{}
		dd.Cb = uint32(unsafe.Sizeof(dd))
		ret, _, _ := procEnumDisplayDevicesW.Call(0, uintptr(i), uintptr(unsafe.Pointer(&dd)), 0)
		if ret == 0 {
			break
		}
		if dd.StateFlags&displayDeviceAttachedToDesktop == 0 {
			continue
		}
		seen++
		if seen == monitor {
			name := windows.UTF16ToString(dd.DeviceName[:])
			log.Debug().
				Str("device", name).
				Str("adapter", windows.UTF16ToString(dd.DeviceString[:])).
				Msg("using display device")
			return &user32{device: name}, nil
		}
	}
	return nil, fmt.Errorf("%w: %d of %d", ErrMonitorNotFound, monitor, seen)
}

func (*user32) Name() string { return "user32" }

func (u *user32) settings() (*devModeW, *uint16, error) {
	name, err := windows.UTF16PtrFromString(u.device)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid device name: %w", err)
	}
	dm := &devModeW{}
	dm.Size = uint16(unsafe.Sizeof(*dm))
	ret, _, callErr := procEnumDisplaySettingsW.Call(
		uintptr(unsafe.Pointer(name)),
		uintptr(enumCurrentSettings),
		uintptr(unsafe.Pointer(dm)),
	)
	if ret == 0 {
		return nil, nil, fmt.Errorf("EnumDisplaySettingsW %s: %w", u.device, callErr)
	}
	return dm, name, nil
}

func (u *user32) CurrentMode() (Mode, error) {
	dm, _, err := u.settings()
	if err != nil {
		return Mode{}, err
	}
	o, err := orientation.FromByte(byte(dm.DisplayOrientation))
	if err != nil {
		return Mode{}, fmt.Errorf("unexpected display orientation: %w", err)
	}
	return Mode{
		Width:       int(dm.PelsWidth),
		Height:      int(dm.PelsHeight),
		Orientation: o,
	}, nil
}

// SetMode writes the rotation and dimensions. DMDO_DEFAULT..DMDO_270 share
// their values with the orientation tags.
func (u *user32) SetMode(m Mode) error {
	dm, name, err := u.settings()
	if err != nil {
		return err
	}
	dm.DisplayOrientation = uint32(m.Orientation.Byte())
	dm.PelsWidth = uint32(m.Width)
	dm.PelsHeight = uint32(m.Height)
	dm.Fields = dmDisplayOrientation | dmPelsWidth | dmPelsHeight

	ret, _, _ := procChangeDisplaySettingsExW.Call(
		uintptr(unsafe.Pointer(name)),
		uintptr(unsafe.Pointer(dm)),
		0,
		cdsUpdateRegistry,
		0,
	)
	if code := int32(ret); code != dispChangeSuccessful {
		return dispChangeError(code)
	}
	return nil
}
