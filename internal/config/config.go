package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const (
	BackendPortAudio = "portaudio"
	BackendPulse     = "pulse"

	DefaultFramesPerBuffer = 512
	DefaultFetchTimeoutSec = 10
)

type Config struct {
	Backend         string      `json:"backend"` // "portaudio" or "pulse"
	LogLevel        string      `json:"log_level"`
	Hotkey          string      `json:"hotkey"`
	HotkeyDarwin    string      `json:"hotkey_darwin"`
	Notifications   bool        `json:"notifications"`
	MetricsAddr     string      `json:"metrics_addr"` // empty disables /metrics
	FetchTimeoutSec int         `json:"fetch_timeout_sec"`
	Audio           AudioConfig `json:"audio"`
	Pulse           PulseConfig `json:"pulse"`
}

// AudioConfig tunes the PortAudio backend. Device choice is deliberately
// not stored here: selections last for one run only.
type AudioConfig struct {
	FramesPerBuffer int `json:"frames_per_buffer"`
}

type PulseConfig struct {
	Server      string `json:"server"` // empty uses $PULSE_SERVER or the default socket
	LatencyMsec int    `json:"latency_msec"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:         BackendPortAudio,
		LogLevel:        "info",
		Hotkey:          "Alt+Shift+C",
		HotkeyDarwin:    "Ctrl+Shift+C",
		Notifications:   true,
		FetchTimeoutSec: DefaultFetchTimeoutSec,
		Audio: AudioConfig{
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom reads the config at path, keeping defaults for missing keys.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	return c.SaveTo(configPath())
}

// SaveTo writes the config to path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPortAudio, BackendPulse:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendPortAudio, BackendPulse)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	if c.FetchTimeoutSec < 0 {
		return fmt.Errorf("fetch_timeout_sec must not be negative, got %d", c.FetchTimeoutSec)
	}
	if c.Audio.FramesPerBuffer < 0 {
		return fmt.Errorf("audio.frames_per_buffer must not be negative, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Pulse.LatencyMsec < 0 {
		return fmt.Errorf("pulse.latency_msec must not be negative, got %d", c.Pulse.LatencyMsec)
	}
	return nil
}

// ApplyFlags overrides loaded values with flags set on the command line.
// Unchanged flags keep the file's values. The result is not saved.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "backend":
			c.Backend = f.Value.String()
		case "log-level":
			c.LogLevel = f.Value.String()
		case "metrics-addr":
			c.MetricsAddr = f.Value.String()
		case "fetch-timeout":
			var d time.Duration
			if d, err = time.ParseDuration(f.Value.String()); err == nil {
				c.FetchTimeoutSec = int(d.Round(time.Second) / time.Second)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}
	return c.Validate()
}

// FetchTimeout returns the bound on one device listing.
func (c *Config) FetchTimeout() time.Duration {
	if c.FetchTimeoutSec <= 0 {
		return DefaultFetchTimeoutSec * time.Second
	}
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// Path returns the config file location.
func Path() string {
	return configPath()
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "streamvox", "config.json")
}
