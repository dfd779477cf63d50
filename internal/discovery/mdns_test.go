package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func makeEntry(instance, hostname string, port int, ipv4 string, txt []string) *zeroconf.ServiceEntry {
	entry := &zeroconf.ServiceEntry{
		HostName: hostname,
		Port:     port,
		Text:     txt,
	}
	entry.Instance = instance
	if ipv4 != "" {
		entry.AddrIPv4 = []net.IP{net.ParseIP(ipv4)}
	}
	return entry
}

func TestParseServiceEntry(t *testing.T) {
	entry := makeEntry("WLED-Bedroom", "wled-bedroom.local.", 80, "192.168.1.40",
		[]string{"mac=aabbccddeeff", "flag"})

	device := parseServiceEntry(entry)
	if device == nil {
		t.Fatal("expected a device")
	}
	if device.Name != "WLED-Bedroom" {
		t.Errorf("name = %q", device.Name)
	}
	if device.Hostname != "wled-bedroom.local" {
		t.Errorf("hostname = %q, want trailing dot stripped", device.Hostname)
	}
	if device.IP != "192.168.1.40" || device.Port != 80 {
		t.Errorf("address = %s:%d", device.IP, device.Port)
	}
	if device.MAC != "aabbccddeeff" {
		t.Errorf("mac = %q", device.MAC)
	}
	if device.GetMetadata("flag") != "" {
		t.Errorf("bare TXT key should map to empty value")
	}
	if device.DiscoveredAt.IsZero() {
		t.Error("DiscoveredAt should be set")
	}
}

func TestParseServiceEntryNoAddress(t *testing.T) {
	entry := makeEntry("WLED-Bedroom", "wled-bedroom.local.", 80, "", nil)
	if device := parseServiceEntry(entry); device != nil {
		t.Errorf("expected nil for an entry without an address, got %v", device)
	}
	if device := parseServiceEntry(nil); device != nil {
		t.Error("expected nil for a nil entry")
	}
}

func TestParseServiceEntryDefaultPort(t *testing.T) {
	entry := makeEntry("WLED-Strip", "wled-strip.local.", 0, "192.168.1.41", nil)
	device := parseServiceEntry(entry)
	if device == nil {
		t.Fatal("expected a device")
	}
	if device.Port != DefaultPort {
		t.Errorf("port = %d, want default %d", device.Port, DefaultPort)
	}
}

func TestDeviceHost(t *testing.T) {
	tests := []struct {
		ip   string
		port int
		want string
	}{
		{"192.168.1.40", 80, "192.168.1.40"},
		{"192.168.1.40", 0, "192.168.1.40"},
		{"192.168.1.40", 8080, "192.168.1.40:8080"},
	}
	for _, tt := range tests {
		d := &Device{IP: tt.ip, Port: tt.port}
		if got := d.Host(); got != tt.want {
			t.Errorf("Host(%s:%d) = %q, want %q", tt.ip, tt.port, got, tt.want)
		}
	}
}
