package config

import (
	"fmt"
	"time"
)

// Settings represents the entire user configuration file.
type Settings struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // keyed by a user-chosen name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device holds the per-device connection settings.
type Device struct {
	Host string `yaml:"host"` // hostname or IP, optionally with :port

	// PollInterval between scheduled state polls (default 1m)
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// PresetsInterval between preset library refreshes (default 1h)
	PresetsInterval time.Duration `yaml:"presets_interval,omitempty"`

	// CompatibilityMode selects fixed-delay retries with a smaller budget
	// for firmware that misbehaves under exponential retry bursts
	CompatibilityMode bool `yaml:"compatibility_mode,omitempty"`

	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultDevice   string `yaml:"default_device,omitempty"` // device name used when --host is omitted
	DiscoverTimeout int    `yaml:"discover_timeout"`         // mDNS discovery timeout in seconds
	BridgeListen    string `yaml:"bridge_listen,omitempty"`  // listen address for the serve command
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			DiscoverTimeout: 10,
			BridgeListen:    ":8420",
		},
	}
}

// GetDevice retrieves a device entry by name. Returns nil if absent.
func (s *Settings) GetDevice(name string) *Device {
	return s.Devices[name]
}

// EnsureDevice returns the named device entry, creating it if needed.
func (s *Settings) EnsureDevice(name string) *Device {
	if s.Devices == nil {
		s.Devices = make(map[string]*Device)
	}
	if device, exists := s.Devices[name]; exists {
		return device
	}
	device := &Device{}
	s.Devices[name] = device
	return device
}

// RememberDevice records a device's host and last-seen time after a
// successful connection or discovery.
func (s *Settings) RememberDevice(name, host string) error {
	if err := ValidateHost(host); err != nil {
		return err
	}
	device := s.EnsureDevice(name)
	device.Host = host
	device.LastSeen = time.Now()
	return nil
}

// DefaultDeviceHost resolves the host to use when none was given on the
// command line.
func (s *Settings) DefaultDeviceHost() (string, error) {
	if s.Preferences == nil || s.Preferences.DefaultDevice == "" {
		return "", fmt.Errorf("no device host given and no default_device configured")
	}
	device := s.GetDevice(s.Preferences.DefaultDevice)
	if device == nil || device.Host == "" {
		return "", fmt.Errorf("default_device %q has no host configured", s.Preferences.DefaultDevice)
	}
	return device.Host, nil
}
