package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRememberDevice(t *testing.T) {
	settings := NewSettings()

	if err := settings.RememberDevice("WLED-Bedroom", "192.168.1.40"); err != nil {
		t.Fatalf("RememberDevice() error = %v", err)
	}

	device := settings.GetDevice("WLED-Bedroom")
	if device == nil {
		t.Fatal("device not stored")
	}
	if device.Host != "192.168.1.40" {
		t.Errorf("host = %q", device.Host)
	}
	if device.LastSeen.IsZero() {
		t.Error("LastSeen should be set")
	}

	if err := settings.RememberDevice("bad", "http://192.168.1.40"); err == nil {
		t.Error("RememberDevice should reject a host with a scheme")
	}
}

func TestDefaultDeviceHost(t *testing.T) {
	settings := NewSettings()

	if _, err := settings.DefaultDeviceHost(); err == nil {
		t.Error("expected error with no default device")
	}

	settings.Preferences.DefaultDevice = "WLED-Bedroom"
	if _, err := settings.DefaultDeviceHost(); err == nil {
		t.Error("expected error when the default device has no entry")
	}

	if err := settings.RememberDevice("WLED-Bedroom", "192.168.1.40"); err != nil {
		t.Fatal(err)
	}
	host, err := settings.DefaultDeviceHost()
	if err != nil {
		t.Fatalf("DefaultDeviceHost() error = %v", err)
	}
	if host != "192.168.1.40" {
		t.Errorf("host = %q", host)
	}
}

func TestSettingsYAMLRoundTrip(t *testing.T) {
	settings := NewSettings()
	if err := settings.RememberDevice("WLED-Bedroom", "192.168.1.40"); err != nil {
		t.Fatal(err)
	}
	settings.Devices["WLED-Bedroom"].CompatibilityMode = true
	settings.Preferences.DefaultDevice = "WLED-Bedroom"

	data, err := yaml.Marshal(settings)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if loaded.Version != 1 {
		t.Errorf("version = %d", loaded.Version)
	}
	device := loaded.GetDevice("WLED-Bedroom")
	if device == nil || device.Host != "192.168.1.40" || !device.CompatibilityMode {
		t.Errorf("device round trip failed: %+v", device)
	}
	if loaded.Preferences.DefaultDevice != "WLED-Bedroom" {
		t.Errorf("default device = %q", loaded.Preferences.DefaultDevice)
	}
}

func TestGetConfigDirRespectsXDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}

	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	want := filepath.Join(tmp, appName)
	if dir != want {
		t.Errorf("config dir = %q, want %q", dir, want)
	}
}
