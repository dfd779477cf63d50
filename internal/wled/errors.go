package wled

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind is the category of a device communication failure.
type ErrorKind int

const (
	// KindTimeout indicates the connect or total request deadline was exceeded
	KindTimeout ErrorKind = iota
	// KindNetwork indicates a lower-level I/O failure (DNS, refused, reset, TLS)
	KindNetwork
	// KindHTTP indicates a non-2xx HTTP status not otherwise classified
	KindHTTP
	// KindAuth indicates the device rejected the request with HTTP 401
	KindAuth
	// KindInvalidResponse indicates an empty or structurally wrong body
	KindInvalidResponse
	// KindInvalidJSON indicates the body could not be parsed as JSON
	KindInvalidJSON
	// KindCommand indicates the device reported failure or did not apply a
	// critical command field
	KindCommand
	// KindValidation indicates malformed caller input, rejected before any
	// network attempt
	KindValidation
)

// NetworkSubtype refines KindNetwork failures for diagnostics.
type NetworkSubtype int

const (
	NetworkGeneric NetworkSubtype = iota
	NetworkDNS
	NetworkRefused
	NetworkReset
	NetworkTLS
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network error"
	case KindHTTP:
		return "http error"
	case KindAuth:
		return "authentication required"
	case KindInvalidResponse:
		return "invalid response"
	case KindInvalidJSON:
		return "invalid json"
	case KindCommand:
		return "command error"
	case KindValidation:
		return "validation error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// String returns a human-readable name for the network subtype
func (s NetworkSubtype) String() string {
	switch s {
	case NetworkDNS:
		return "dns"
	case NetworkRefused:
		return "refused"
	case NetworkReset:
		return "reset"
	case NetworkTLS:
		return "tls"
	default:
		return "generic"
	}
}

// DeviceError represents a failure while talking to a WLED device. A single
// struct with a Kind discriminant is used instead of one error type per
// failure mode so callers can switch on the kind while still getting
// structured context fields.
type DeviceError struct {
	Kind       ErrorKind
	Subtype    NetworkSubtype // meaningful only for KindNetwork
	Message    string
	Host       string // device host for context
	Operation  string // e.g. "GET /json/state"
	StatusCode int    // HTTP status, if applicable
	Err        error  // underlying cause, if any
	Retryable  bool
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Host != "" {
		msg = fmt.Sprintf("%s (device %s)", msg, e.Host)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps a low-level transport failure onto the error
// taxonomy. Timeouts and network failures are retryable; DNS failures are
// retryable too since the resolver may recover between polls.
func classifyTransportError(err error, host, operation string) *DeviceError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &DeviceError{
			Kind:      KindTimeout,
			Message:   "request deadline exceeded",
			Host:      host,
			Operation: operation,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Kind:      KindNetwork,
			Subtype:   NetworkDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Host:      host,
			Operation: operation,
			Err:       err,
			Retryable: true,
		}
	}

	var recordErr *tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) {
		return &DeviceError{
			Kind:      KindNetwork,
			Subtype:   NetworkTLS,
			Message:   "TLS failure",
			Host:      host,
			Operation: operation,
			Err:       err,
			Retryable: true,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DeviceError{
				Kind:      KindNetwork,
				Subtype:   NetworkRefused,
				Message:   "device refused connection",
				Host:      host,
				Operation: operation,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.ECONNRESET), errors.Is(opErr.Err, syscall.EPIPE):
			return &DeviceError{
				Kind:      KindNetwork,
				Subtype:   NetworkReset,
				Message:   "connection reset by device",
				Host:      host,
				Operation: operation,
				Err:       err,
				Retryable: true,
			}
		}
	}

	// url.Error wraps the interesting cause; classify that instead.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		if urlErr.Timeout() {
			return &DeviceError{
				Kind:      KindTimeout,
				Message:   "request deadline exceeded",
				Host:      host,
				Operation: operation,
				Err:       err,
				Retryable: true,
			}
		}
		classified := classifyTransportError(urlErr.Err, host, operation)
		classified.Err = err
		return classified
	}

	return &DeviceError{
		Kind:      KindNetwork,
		Subtype:   NetworkGeneric,
		Message:   "network failure",
		Host:      host,
		Operation: operation,
		Err:       err,
		Retryable: true,
	}
}

// newHTTPError classifies a non-2xx status. 401 is an authentication failure,
// 404 means the endpoint does not exist on this firmware, and 5xx is treated
// as retryable since the device may be transiently overloaded.
func newHTTPError(status int, host, operation string) *DeviceError {
	switch {
	case status == 401:
		return &DeviceError{
			Kind:       KindAuth,
			Message:    "device requires authentication",
			Host:       host,
			Operation:  operation,
			StatusCode: status,
			Retryable:  false,
		}
	case status == 404:
		return &DeviceError{
			Kind:       KindInvalidResponse,
			Message:    "endpoint not found; the device may not support this feature",
			Host:       host,
			Operation:  operation,
			StatusCode: status,
			Retryable:  false,
		}
	case status >= 500:
		return &DeviceError{
			Kind:       KindHTTP,
			Message:    fmt.Sprintf("device server error (HTTP %d)", status),
			Host:       host,
			Operation:  operation,
			StatusCode: status,
			Retryable:  true,
		}
	default:
		return &DeviceError{
			Kind:       KindHTTP,
			Message:    fmt.Sprintf("unexpected status code %d", status),
			Host:       host,
			Operation:  operation,
			StatusCode: status,
			Retryable:  false,
		}
	}
}

func newValidationError(message string) *DeviceError {
	return &DeviceError{
		Kind:      KindValidation,
		Message:   message,
		Retryable: false,
	}
}

// AsDeviceError extracts a *DeviceError from an error chain.
// Returns nil if the chain contains none.
func AsDeviceError(err error) *DeviceError {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr
	}
	return nil
}

// IsRetryable reports whether an operation that failed with err may succeed
// if attempted again within the same retry burst.
func IsRetryable(err error) bool {
	if devErr := AsDeviceError(err); devErr != nil {
		return devErr.Retryable
	}
	return false
}

// IsKind reports whether err is a DeviceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	devErr := AsDeviceError(err)
	return devErr != nil && devErr.Kind == kind
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool { return IsKind(err, KindAuth) }

// IsTimeoutError reports whether err is a deadline failure.
func IsTimeoutError(err error) bool { return IsKind(err, KindTimeout) }

// IsNetworkError reports whether err is a lower-level I/O failure.
func IsNetworkError(err error) bool { return IsKind(err, KindNetwork) }

// IsCommandError reports whether err is a device-reported command failure.
func IsCommandError(err error) bool { return IsKind(err, KindCommand) }

// IsValidationError reports whether err is a caller input failure.
func IsValidationError(err error) bool { return IsKind(err, KindValidation) }
