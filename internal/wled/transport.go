package wled

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wled-tools/wledbridge/internal/logging"
)

const (
	// DefaultConnectTimeout bounds TCP connection establishment
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds the whole request including body read
	DefaultRequestTimeout = 10 * time.Second
)

// transport issues a single HTTP request to the device and returns the raw
// status and body. It performs no retries; that is the retry policy's job.
type transport struct {
	host    string
	client  *http.Client
	timeout time.Duration
}

// newTransport builds a transport with a single keep-alive connection to the
// device. WLED runs on a constrained embedded target that cannot handle
// concurrent connections, so the pool is capped at one host connection.
func newTransport(host string, connectTimeout, requestTimeout time.Duration) *transport {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	return &transport{
		host: host,
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				MaxConnsPerHost:     1,
				MaxIdleConnsPerHost: 1,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: requestTimeout,
	}
}

// request performs one attempt. On success it returns the HTTP status code
// and the full response body. Any transport-level failure is classified into
// the Timeout/Network taxonomy.
func (t *transport) request(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	url := fmt.Sprintf("http://%s%s", t.host, path)
	operation := fmt.Sprintf("%s %s", method, path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, &DeviceError{
			Kind:      KindValidation,
			Message:   "failed to build request",
			Host:      t.host,
			Operation: operation,
			Err:       err,
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.Debug("device request",
		zap.String("host", t.host),
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, classifyTransportError(err, t.host, operation)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, classifyTransportError(err, t.host, operation)
	}

	return resp.StatusCode, raw, nil
}

// close releases idle connections held by the transport.
func (t *transport) close() {
	t.client.CloseIdleConnections()
}
