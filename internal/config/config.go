// Package config loads the YAML configuration for the monitoring
// daemon.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML values like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config mirrors the YAML file layout.
type Config struct {
	Device struct {
		// Path of the hidraw node; empty selects the first attached
		// monitor.
		Path string `yaml:"path"`
		// Key is the hex-encoded 8-byte feature-report key; empty
		// means all zeros.
		Key string `yaml:"key"`
		// BypassDecrypt treats reports as plaintext. Must be set
		// explicitly for hardware variants that skip the obfuscation.
		BypassDecrypt bool `yaml:"bypass_decrypt"`
		// RollingKey advances the keystream origin per decoded report.
		RollingKey bool `yaml:"rolling_key"`
	} `yaml:"device"`

	Monitor struct {
		Interval    Duration `yaml:"interval"`
		MaxRequests int      `yaml:"max_requests"`
		HistorySize int      `yaml:"history_size"`
	} `yaml:"monitor"`

	Log struct {
		// CSV is the path of the CSV log; empty disables it.
		CSV string `yaml:"csv"`
		// SQLite is the path of the SQLite database; empty disables it.
		SQLite string `yaml:"sqlite"`
		Level  string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Monitor.Interval = Duration(10 * time.Second)
	cfg.Monitor.MaxRequests = 50
	cfg.Monitor.HistorySize = 4096
	cfg.Log.Level = "info"
	return cfg
}

// Load reads and validates the file at path, applied on top of the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Monitor.Interval < 0 {
		return fmt.Errorf("monitor.interval must not be negative")
	}
	if c.Monitor.MaxRequests <= 0 {
		return fmt.Errorf("monitor.max_requests must be positive")
	}
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("monitor.history_size must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
