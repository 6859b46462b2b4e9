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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/helpers/syncutil"
	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "ZAPAROO_AUTOROTATE_CFG"
	CfgFile       = "config.toml"
	AppDir        = "zaparoo-autorotate"

	DefaultPort               = "COM4"
	DefaultBaudRate           = 9600
	DefaultReadTimeoutMs      = 1000
	DefaultAckTimeoutMs       = 10000
	DefaultPollIntervalMs     = 20
	DefaultMonitor            = 1
	DefaultThreshold          = 65
	DefaultListenerIntervalMs = 10
	DefaultAPIPort            = 7498
)

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Serial       Serial     `toml:"serial"`
	Autorotate   Autorotate `toml:"autorotate"`
	API          API        `toml:"api"`
	Telemetry    Telemetry  `toml:"telemetry"`
	ConfigSchema int        `toml:"config_schema"`
	DebugLogging bool       `toml:"debug_logging"`
}

type Serial struct {
	Port           string `toml:"port" validate:"serialport"`
	BaudRate       int    `toml:"baud_rate" validate:"oneof=1200 2400 4800 9600 19200 38400 57600 115200"`
	ReadTimeoutMs  int    `toml:"read_timeout_ms" validate:"min=10,max=60000"`
	AckTimeoutMs   int    `toml:"ack_timeout_ms" validate:"min=100,max=60000"`
	PollIntervalMs int    `toml:"poll_interval_ms" validate:"min=1,max=1000"`
}

type Autorotate struct {
	Monitor            int  `toml:"monitor" validate:"min=1,max=16"`
	ThresholdDegrees   int  `toml:"threshold_degrees" validate:"min=1,max=90"`
	ListenerIntervalMs int  `toml:"listener_interval_ms" validate:"min=1,max=1000"`
	EnableOnStart      bool `toml:"enable_on_start"`
}

type API struct {
	Port    int  `toml:"port" validate:"min=1,max=65535"`
	Enabled bool `toml:"enabled"`
}

// Telemetry is opt-in; nothing is sent without both fields set.
type Telemetry struct {
	DSN            string `toml:"dsn" validate:"omitempty,url"`
	ErrorReporting bool   `toml:"error_reporting"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Serial: Serial{
		Port:           DefaultPort,
		BaudRate:       DefaultBaudRate,
		ReadTimeoutMs:  DefaultReadTimeoutMs,
		AckTimeoutMs:   DefaultAckTimeoutMs,
		PollIntervalMs: DefaultPollIntervalMs,
	},
	Autorotate: Autorotate{
		Monitor:            DefaultMonitor,
		ThresholdDegrees:   DefaultThreshold,
		ListenerIntervalMs: DefaultListenerIntervalMs,
	},
	API: API{
		Enabled: true,
		Port:    DefaultAPIPort,
	},
}

// DefaultConfigDir returns the per-user directory holding config.toml.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppDir)
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from configDir, or from the path in
// ZAPAROO_AUTOROTATE_CFG if set. A missing file is created from defaults.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Str("path", cfgPath).Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys missing from the file keep their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := validation.DefaultValidator.Validate(&newVals); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.cfgPath, err)
	}

	c.vals = newVals
	log.Info().Str("path", c.cfgPath).Str("port", c.vals.Serial.Port).Msg("loaded config")
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	if err := validation.DefaultValidator.Validate(&c.vals); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SerialPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.Port
}

func (c *Instance) SetSerialPort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.Port = port
}

func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Serial.BaudRate == 0 {
		return DefaultBaudRate
	}
	return c.vals.Serial.BaudRate
}

func (c *Instance) ReadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.Serial.ReadTimeoutMs, DefaultReadTimeoutMs)
}

// AckTimeout is how long the host waits for the device to answer a request.
func (c *Instance) AckTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.Serial.AckTimeoutMs, DefaultAckTimeoutMs)
}

func (c *Instance) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.Serial.PollIntervalMs, DefaultPollIntervalMs)
}

// Monitor is the 1-based index of the display to rotate.
func (c *Instance) Monitor() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Autorotate.Monitor < 1 {
		return DefaultMonitor
	}
	return c.vals.Autorotate.Monitor
}

func (c *Instance) Threshold() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Autorotate.ThresholdDegrees == 0 {
		return DefaultThreshold
	}
	return c.vals.Autorotate.ThresholdDegrees
}

func (c *Instance) EnableOnStart() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Autorotate.EnableOnStart
}

func (c *Instance) SetEnableOnStart(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Autorotate.EnableOnStart = enabled
}

func (c *Instance) ListenerInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return millis(c.vals.Autorotate.ListenerIntervalMs, DefaultListenerIntervalMs)
}

func (c *Instance) APIEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.Enabled
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu (read or write).
func (c *Instance) apiPortLocked() int {
	if c.vals.API.Port == 0 {
		return DefaultAPIPort
	}
	return c.vals.API.Port
}

// APIListen returns the loopback address the API server binds to.
func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return "127.0.0.1:" + strconv.Itoa(c.apiPortLocked())
}

func (c *Instance) ErrorReporting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.ErrorReporting
}

func (c *Instance) ReportingDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.DSN
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
