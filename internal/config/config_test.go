package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, v, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Interface)
	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.StalenessWindow)
	assert.Equal(t, 3*time.Second, cfg.Discovery.ProbeTimeout)
	assert.Equal(t, 64, cfg.Discovery.Concurrency)
	assert.False(t, cfg.Discovery.SweepEnabled)
	assert.Equal(t, time.Second, cfg.Control.AnnounceInterval)
	assert.True(t, cfg.Vendor.RemoteEnabled)
	assert.Equal(t, "info", v.GetString("logging.level"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
interface: wlan0
monitor:
  interval: 10s
  staleness_window: 5m
discovery:
  sweep_enabled: true
vendor:
  remote_enabled: false
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, v, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wlan0", cfg.Interface)
	assert.Equal(t, 10*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.StalenessWindow)
	assert.True(t, cfg.Discovery.SweepEnabled)
	assert.False(t, cfg.Vendor.RemoteEnabled)
	assert.Equal(t, "debug", v.GetString("logging.level"))
	// Unset keys keep their defaults.
	assert.Equal(t, 64, cfg.Discovery.Concurrency)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interface: [unclosed"), 0o644))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LANWARD_INTERFACE", "eth7")

	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "eth7", cfg.Interface)
}

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		_, v, err := Load("")
		require.NoError(t, err)
		v.Set("logging.format", format)

		logger, err := NewLogger(v)
		require.NoError(t, err, format)
		require.NotNil(t, logger)
	}
}

func TestNewLoggerNamedRoot(t *testing.T) {
	_, v, err := Load("")
	require.NoError(t, err)

	logger, err := NewLogger(v)
	require.NoError(t, err)
	assert.Equal(t, "lanward", logger.Name())
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, v, err := Load("")
	require.NoError(t, err)
	v.Set("logging.level", "shouting")

	_, err = NewLogger(v)
	assert.Error(t, err)
}
