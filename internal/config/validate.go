package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// hostnamePattern matches RFC 1123 hostnames (labels of alphanumerics and
// hyphens, joined by dots).
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateHost checks a device host string: a bare hostname or IPv4 address,
// optionally with a :port suffix. URLs, schemes, paths and whitespace are
// rejected; the client always speaks plain HTTP to the host as given.
func ValidateHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("device host cannot be empty")
	}
	if host != strings.TrimSpace(host) || strings.ContainsAny(host, " \t") {
		return fmt.Errorf("device host %q must not contain whitespace", host)
	}
	if strings.Contains(host, "://") {
		return fmt.Errorf("device host %q must not include a scheme; use a bare hostname or IP", host)
	}
	if strings.Contains(host, "/") {
		return fmt.Errorf("device host %q must not include a path", host)
	}

	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		p, perr := strconv.Atoi(port)
		if perr != nil || p < 1 || p > 65535 {
			return fmt.Errorf("device host %q has an invalid port", host)
		}
		name = h
	} else if strings.Count(host, ":") > 0 {
		// A colon without a valid host:port split is malformed
		return fmt.Errorf("device host %q is not a valid host or host:port", host)
	}

	if ip := net.ParseIP(name); ip != nil {
		return nil
	}
	if !hostnamePattern.MatchString(name) {
		return fmt.Errorf("device host %q is not a valid hostname or IP address", host)
	}
	return nil
}
