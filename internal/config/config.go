package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PixPMusic/gnova/internal/midi"
)

// DeviceConfig selects the MIDI output port to draw on
type DeviceConfig struct {
	Type         midi.DeviceType `json:"type"`
	OutPort      string          `json:"out_port,omitempty"`      // exact port name, overrides PortPatterns
	PortPatterns []string        `json:"port_patterns,omitempty"` // substrings matched against port names
}

// PaletteConfig stores Launchpad palette indices (0-127)
type PaletteConfig struct {
	Flash       uint8 `json:"flash"`
	Unknown     uint8 `json:"unknown"`
	Idle        uint8 `json:"idle"`
	Operational uint8 `json:"operational"`
	Printing    uint8 `json:"printing"`
}

// SerialConfig describes an optional serial port to read G-code from
type SerialConfig struct {
	Port string `json:"port,omitempty"`
	Baud int    `json:"baud"`
}

// Config holds application configuration
type Config struct {
	ID       string        `json:"id"` // identifies this instance in bridge events
	Device   DeviceConfig  `json:"device"`
	Palette  PaletteConfig `json:"palette"`
	FlashMS  int           `json:"flash_ms"` // per-column flash step in milliseconds
	Listen   string        `json:"listen"`   // bridge HTTP address, empty disables it
	Serial   SerialConfig  `json:"serial"`
	LogLevel string        `json:"log_level"`
	LogJSON  bool          `json:"log_json"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		ID:     uuid.New().String(),
		Device: DeviceConfig{Type: midi.DeviceTypeColorful},
		Palette: PaletteConfig{
			Flash:       1,
			Unknown:     41,
			Idle:        5,
			Operational: 13,
			Printing:    21,
		},
		FlashMS:  10,
		Listen:   "127.0.0.1:5580",
		Serial:   SerialConfig{Baud: 115200},
		LogLevel: "info",
	}
}

// FlashStep returns the per-column flash step
func (c *Config) FlashStep() time.Duration {
	return time.Duration(c.FlashMS) * time.Millisecond
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "gnova"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, creating it on first run
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadOrCreate(configPath)
}

// LoadOrCreate is LoadFile that also writes the file when none exists yet,
// so the instance ID survives restarts. Environment overrides are not saved.
func LoadOrCreate(path string) (*Config, error) {
	cfg, found, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if !found {
		if err := cfg.SaveFile(path); err != nil {
			// a read-only config dir only costs a stable ID
			slog.Warn("failed to save config", "path", path, "err", err)
		} else {
			slog.Info("created config", "path", path)
		}
	}
	cfg.finish()
	return cfg, nil
}

// LoadFile reads the config from path, returning defaults if not found.
// GNOVA_* environment variables override file values.
func LoadFile(path string) (*Config, error) {
	cfg, _, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.finish()
	return cfg, nil
}

func readFile(path string) (*Config, bool, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, true, nil
}

// finish applies env overrides and fills required values
func (c *Config) finish() {
	c.applyEnv()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Device.Type == "" {
		c.Device.Type = midi.DeviceTypeColorful
	}
	if !c.Device.Type.Known() {
		slog.Warn("unknown device type, using colorful", "type", c.Device.Type)
		c.Device.Type = midi.DeviceTypeColorful
	}
	if c.FlashMS <= 0 {
		c.FlashMS = Default().FlashMS
	}
	if c.Serial.Baud <= 0 {
		c.Serial.Baud = Default().Serial.Baud
	}
}

func (c *Config) applyEnv() {
	c.Device.OutPort = getenv("GNOVA_OUT_PORT", c.Device.OutPort)
	c.Device.Type = midi.DeviceType(getenv("GNOVA_DEVICE_TYPE", string(c.Device.Type)))
	if v := os.Getenv("GNOVA_PORT_PATTERNS"); v != "" {
		c.Device.PortPatterns = strings.Split(v, ",")
	}
	c.FlashMS = getenvInt("GNOVA_FLASH_MS", c.FlashMS)
	c.Listen = getenv("GNOVA_LISTEN", c.Listen)
	c.Serial.Port = getenv("GNOVA_SERIAL_PORT", c.Serial.Port)
	c.Serial.Baud = getenvInt("GNOVA_SERIAL_BAUD", c.Serial.Baud)
	c.LogLevel = getenv("GNOVA_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("GNOVA_LOG_JSON"); v != "" {
		c.LogJSON, _ = strconv.ParseBool(v)
	}
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
