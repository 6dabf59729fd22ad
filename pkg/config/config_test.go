package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsUsableWithoutAFile(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5277, cfg.Protocol.ListenPort)
	assert.Equal(t, "720p", cfg.Video.Resolution)
	assert.Equal(t, "timed", cfg.Sensors.NightMode.Provider)
	assert.True(t, cfg.Wifi.MDNSEnabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aahu.yaml")
	contents := `
protocol:
  listen_port: 5555
video:
  resolution: 1080p
  codecs: ["h264"]
sensors:
  night_mode:
    provider: gpio
    gpio_pin: 17
    active_high: true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5555, cfg.Protocol.ListenPort)
	assert.Equal(t, "1080p", cfg.Video.Resolution)
	assert.Equal(t, []string{"h264"}, cfg.Video.Codecs)
	assert.Equal(t, "gpio", cfg.Sensors.NightMode.Provider)
	assert.Equal(t, 17, cfg.Sensors.NightMode.GPIOPin)
	assert.True(t, cfg.Sensors.NightMode.ActiveHigh)

	// Untouched defaults survive.
	assert.Equal(t, "aahu", cfg.Identity.HeadUnitName)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/aahu.yaml")
	assert.Error(t, err)
}

func TestPingIntervalDefaultsWhenZero(t *testing.T) {
	var c ProtocolConfig
	assert.Equal(t, 5*time.Second, c.PingInterval())
}

func TestHandshakeTimeoutsDefaultWhenZero(t *testing.T) {
	var c ProtocolConfig
	assert.Equal(t, 5*time.Second, c.VersionTimeout())
	assert.Equal(t, 5*time.Second, c.HandshakeTimeout())
	assert.Equal(t, 5*time.Second, c.DiscoveryTimeout())
	assert.Equal(t, 5*time.Second, c.ShutdownGrace())
}

func TestHandshakeTimeoutsHonorConfiguredValue(t *testing.T) {
	c := ProtocolConfig{VersionTimeoutMs: 100, HandshakeTimeoutMs: 200, DiscoveryTimeoutMs: 300, ShutdownGraceMs: 400}
	assert.Equal(t, 100*time.Millisecond, c.VersionTimeout())
	assert.Equal(t, 200*time.Millisecond, c.HandshakeTimeout())
	assert.Equal(t, 300*time.Millisecond, c.DiscoveryTimeout())
	assert.Equal(t, 400*time.Millisecond, c.ShutdownGrace())
}
