// Package config loads the head unit's YAML configuration file: identity,
// display, codec, wifi/bluetooth, and night-mode sensor settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the on-disk YAML tree.
type Config struct {
	Protocol ProtocolConfig `yaml:"protocol"`
	Identity IdentityConfig `yaml:"identity"`
	Video    VideoConfig    `yaml:"video"`
	Display  DisplayConfig  `yaml:"display"`
	Wifi     WifiConfig     `yaml:"wifi"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Sensors  SensorsConfig  `yaml:"sensors"`
}

type ProtocolConfig struct {
	ListenPort        int    `yaml:"listen_port"`
	PingIntervalMs    int    `yaml:"ping_interval_ms"`
	MissedPingLimit   int    `yaml:"missed_ping_limit"`
	VersionTimeoutMs  int    `yaml:"version_timeout_ms"`
	HandshakeTimeoutMs int   `yaml:"handshake_timeout_ms"`
	DiscoveryTimeoutMs int   `yaml:"discovery_timeout_ms"`
	ShutdownGraceMs   int    `yaml:"shutdown_grace_ms"`
	ProtocolLogFile   string `yaml:"protocol_log_file"`
	ProtocolLogFormat string `yaml:"protocol_log_format"`
}

type IdentityConfig struct {
	HeadUnitName        string `yaml:"head_unit_name"`
	Manufacturer        string `yaml:"manufacturer"`
	Model               string `yaml:"model"`
	SwVersion           string `yaml:"sw_version"`
	SwBuild             string `yaml:"sw_build"`
	CarModel            string `yaml:"car_model"`
	CarYear             string `yaml:"car_year"`
	CarSerial           string `yaml:"car_serial"`
	LeftHandDrive       bool   `yaml:"left_hand_drive"`
	NativeMediaDuringVR bool   `yaml:"native_media_during_vr"`
}

type VideoConfig struct {
	Resolution string   `yaml:"resolution"` // "480p", "720p", "1080p"
	FPS        int      `yaml:"fps"`
	DPI        int      `yaml:"dpi"`
	Codecs     []string `yaml:"codecs"` // "h264", "h265", "vp9", "av1"
}

type DisplayConfig struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	SidebarEnabled  bool   `yaml:"sidebar_enabled"`
	SidebarWidth    int    `yaml:"sidebar_width"`
	SidebarPosition string `yaml:"sidebar_position"` // "left", "right", "top", "bottom"
}

type WifiConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`

	// MDNSEnabled advertises the head unit over mDNS so a phone already
	// joined to SSID can find it without entering an IP address.
	MDNSEnabled bool `yaml:"mdns_enabled"`
	// MDNSInterface restricts the mDNS advertisement to one network
	// interface. Empty means all interfaces.
	MDNSInterface string `yaml:"mdns_interface"`
}

type BluetoothConfig struct {
	AdapterAddress string `yaml:"adapter_address"`
}

type SensorsConfig struct {
	NightMode NightModeConfig `yaml:"night_mode"`
}

type NightModeConfig struct {
	Provider   string `yaml:"provider"` // "none", "timed", "gpio"
	DayStart   string `yaml:"day_start"`   // "HH:mm", timed only
	NightStart string `yaml:"night_start"` // "HH:mm", timed only
	GPIOPin    int    `yaml:"gpio_pin"`    // gpio only
	ActiveHigh bool   `yaml:"active_high"` // gpio only
}

// Default returns the configuration used when no file is supplied, matching
// the original reference head unit's hardcoded identity and defaults.
func Default() Config {
	return Config{
		Protocol: ProtocolConfig{
			ListenPort:         5277,
			PingIntervalMs:     5000,
			MissedPingLimit:    3,
			VersionTimeoutMs:   5000,
			HandshakeTimeoutMs: 5000,
			DiscoveryTimeoutMs: 5000,
			ShutdownGraceMs:    5000,
		},
		Identity: IdentityConfig{
			HeadUnitName:        "aahu",
			Manufacturer:        "aahu",
			Model:               "aahu head unit",
			SwVersion:           "1.0",
			SwBuild:             "1",
			CarModel:            "Universal",
			CarYear:             "2018",
			CarSerial:           "00000000",
			LeftHandDrive:       true,
			NativeMediaDuringVR: true,
		},
		Video: VideoConfig{
			Resolution: "720p",
			FPS:        30,
			DPI:        140,
			Codecs:     []string{"h264", "h265"},
		},
		Display: DisplayConfig{
			Width:  1280,
			Height: 720,
		},
		Wifi: WifiConfig{
			MDNSEnabled: true,
		},
		Sensors: SensorsConfig{
			NightMode: NightModeConfig{
				Provider:   "timed",
				DayStart:   "07:00",
				NightStart: "19:00",
			},
		},
	}
}

// Load reads and parses a YAML configuration file, filling any field not
// present in the file with the built-in defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// PingInterval returns the configured keepalive interval as a duration.
func (c ProtocolConfig) PingInterval() time.Duration {
	if c.PingIntervalMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PingIntervalMs) * time.Millisecond
}

// VersionTimeout returns how long Session waits in VersionExchange for
// VERSION_RESPONSE before disconnecting with reason=Timeout.
func (c ProtocolConfig) VersionTimeout() time.Duration {
	return msOrDefault(c.VersionTimeoutMs, 5*time.Second)
}

// HandshakeTimeout returns how long Session waits in TLSHandshake for the
// TLS handshake to complete before disconnecting with reason=Timeout.
func (c ProtocolConfig) HandshakeTimeout() time.Duration {
	return msOrDefault(c.HandshakeTimeoutMs, 5*time.Second)
}

// DiscoveryTimeout returns how long Session waits in ServiceDiscovery for
// SERVICE_DISCOVERY_REQUEST before disconnecting with reason=Timeout.
func (c ProtocolConfig) DiscoveryTimeout() time.Duration {
	return msOrDefault(c.DiscoveryTimeoutMs, 5*time.Second)
}

// ShutdownGrace returns how long Session waits in ShuttingDown for
// SHUTDOWN_RESPONSE before force-tearing the connection.
func (c ProtocolConfig) ShutdownGrace() time.Duration {
	return msOrDefault(c.ShutdownGraceMs, 5*time.Second)
}

func msOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
