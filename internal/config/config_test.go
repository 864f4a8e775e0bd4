package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 10*time.Second, cfg.Monitor.Interval.Std())
	require.Equal(t, 50, cfg.Monitor.MaxRequests)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
device:
  path: /dev/hidraw3
  bypass_decrypt: true
monitor:
  interval: 30s
  max_requests: 100
log:
  csv: /tmp/co2.csv
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/hidraw3", cfg.Device.Path)
	require.True(t, cfg.Device.BypassDecrypt)
	require.Equal(t, 30*time.Second, cfg.Monitor.Interval.Std())
	require.Equal(t, 100, cfg.Monitor.MaxRequests)
	// defaults survive partial files
	require.Equal(t, 4096, cfg.Monitor.HistorySize)
	require.Equal(t, "/tmp/co2.csv", cfg.Log.CSV)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "monitor:\n  intreval: 30s\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "monitor:\n  interval: soon\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: loud\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRanges(t *testing.T) {
	cfg := Default()
	cfg.Monitor.MaxRequests = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Monitor.HistorySize = -1
	require.Error(t, cfg.Validate())
}
