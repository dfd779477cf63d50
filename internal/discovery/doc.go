// Package discovery provides mDNS-based discovery of WLED devices.
//
// WLED controllers advertise themselves as "_wled._tcp" services and include
// their MAC address in the TXT record. Discovery broadcasts mDNS queries,
// collects advertisements until the timeout, and returns the devices found
// with their instance name, hostname, address and port.
//
// # Network Requirements
//
//   - Multicast support on the network interface
//   - Devices on the same local network segment
//   - Firewall allowing mDNS (UDP port 5353)
package discovery
