package discovery

import (
	"fmt"
	"time"
)

// Device represents a discovered WLED controller on the network
type Device struct {
	// Name is the device name from the mDNS instance (e.g., "WLED-Bedroom")
	Name string

	// Hostname is the mDNS hostname (e.g., "wled-bedroom.local")
	Hostname string

	// IP is the IPv4 address (e.g., "192.168.1.40")
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// MAC is the device MAC address from the mDNS TXT record, if advertised
	MAC string

	// Metadata contains additional mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("WLED device %s (%s) at %s:%d", d.Name, d.Hostname, d.IP, d.Port)
}

// Host returns the host:port string suitable for constructing a client,
// omitting the port when it is the HTTP default.
func (d *Device) Host() string {
	if d.Port == 0 || d.Port == 80 {
		return d.IP
	}
	return fmt.Sprintf("%s:%d", d.IP, d.Port)
}

// GetMetadata retrieves a TXT record value by key, or "" if not present
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
