package wled

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
)

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      ErrorKind
		wantSubtype   NetworkSubtype
		wantRetryable bool
	}{
		{
			name:          "deadline exceeded",
			err:           os.ErrDeadlineExceeded,
			wantKind:      KindTimeout,
			wantRetryable: true,
		},
		{
			name:          "dns failure",
			err:           &net.DNSError{Err: "no such host", Name: "wled-bedroom.local"},
			wantKind:      KindNetwork,
			wantSubtype:   NetworkDNS,
			wantRetryable: true,
		},
		{
			name:          "connection refused",
			err:           &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			wantKind:      KindNetwork,
			wantSubtype:   NetworkRefused,
			wantRetryable: true,
		},
		{
			name:          "connection reset",
			err:           &net.OpError{Op: "read", Err: syscall.ECONNRESET},
			wantKind:      KindNetwork,
			wantSubtype:   NetworkReset,
			wantRetryable: true,
		},
		{
			name:          "broken pipe",
			err:           &net.OpError{Op: "write", Err: syscall.EPIPE},
			wantKind:      KindNetwork,
			wantSubtype:   NetworkReset,
			wantRetryable: true,
		},
		{
			name: "url error wrapping refused",
			err: &url.Error{
				Op:  "Get",
				URL: "http://192.168.1.40/json",
				Err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			},
			wantKind:      KindNetwork,
			wantSubtype:   NetworkRefused,
			wantRetryable: true,
		},
		{
			name: "url error timeout",
			err: &url.Error{
				Op:  "Get",
				URL: "http://192.168.1.40/json",
				Err: timeoutError{},
			},
			wantKind:      KindTimeout,
			wantRetryable: true,
		},
		{
			name:          "unclassified failure",
			err:           errors.New("something broke"),
			wantKind:      KindNetwork,
			wantSubtype:   NetworkGeneric,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := classifyTransportError(tt.err, "192.168.1.40", "GET /json")
			if devErr == nil {
				t.Fatal("expected a DeviceError, got nil")
			}
			if devErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", devErr.Kind, tt.wantKind)
			}
			if devErr.Kind == KindNetwork && devErr.Subtype != tt.wantSubtype {
				t.Errorf("Subtype = %v, want %v", devErr.Subtype, tt.wantSubtype)
			}
			if devErr.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", devErr.Retryable, tt.wantRetryable)
			}
			if devErr.Host != "192.168.1.40" {
				t.Errorf("Host = %q, want %q", devErr.Host, "192.168.1.40")
			}
			if !errors.Is(devErr, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyTransportErrorNil(t *testing.T) {
	if devErr := classifyTransportError(nil, "h", "op"); devErr != nil {
		t.Errorf("expected nil for nil input, got %v", devErr)
	}
}

// timeoutError simulates a net error that reports Timeout() without matching
// os.ErrDeadlineExceeded.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestNewHTTPError(t *testing.T) {
	tests := []struct {
		status        int
		wantKind      ErrorKind
		wantRetryable bool
	}{
		{401, KindAuth, false},
		{404, KindInvalidResponse, false},
		{500, KindHTTP, true},
		{503, KindHTTP, true},
		{418, KindHTTP, false},
	}

	for _, tt := range tests {
		devErr := newHTTPError(tt.status, "host", "GET /json/state")
		if devErr.Kind != tt.wantKind {
			t.Errorf("status %d: Kind = %v, want %v", tt.status, devErr.Kind, tt.wantKind)
		}
		if devErr.Retryable != tt.wantRetryable {
			t.Errorf("status %d: Retryable = %v, want %v", tt.status, devErr.Retryable, tt.wantRetryable)
		}
		if devErr.StatusCode != tt.status {
			t.Errorf("status %d: StatusCode = %d", tt.status, devErr.StatusCode)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	authErr := newHTTPError(401, "h", "op")
	if !IsAuthError(authErr) {
		t.Error("IsAuthError should be true for a 401")
	}
	if IsAuthError(errors.New("plain")) {
		t.Error("IsAuthError should be false for a plain error")
	}

	valErr := newValidationError("bad input")
	if !IsValidationError(valErr) {
		t.Error("IsValidationError should be true")
	}
	if IsRetryable(valErr) {
		t.Error("validation errors must not be retryable")
	}

	// Helpers must see through wrapping.
	wrapped := fmt.Errorf("poll failed: %w", newHTTPError(401, "h", "op"))
	if !IsAuthError(wrapped) {
		t.Error("IsAuthError should unwrap")
	}
	if AsDeviceError(wrapped) == nil {
		t.Error("AsDeviceError should unwrap")
	}
	if AsDeviceError(errors.New("plain")) != nil {
		t.Error("AsDeviceError should be nil for non-device errors")
	}
}

func TestDeviceErrorMessage(t *testing.T) {
	devErr := &DeviceError{
		Kind:    KindCommand,
		Message: "device did not apply command",
		Host:    "192.168.1.40",
	}
	got := devErr.Error()
	want := "command error: device did not apply command (device 192.168.1.40)"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
