package wled

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wled-tools/wledbridge/internal/logging"
)

// Device API endpoints. Note that presets live outside the /json prefix.
const (
	pathState   = "/json/state"
	pathInfo    = "/json/info"
	pathFull    = "/json"
	pathPresets = "/presets.json"
)

// Options configures a Client. The zero value selects standard mode:
// exponential backoff, five retries, keep-alive connection reuse.
type Options struct {
	// ConnectTimeout bounds TCP connection establishment (default 5s)
	ConnectTimeout time.Duration

	// RequestTimeout bounds the whole request (default 10s)
	RequestTimeout time.Duration

	// MaxRetries overrides the retry budget (default 5)
	MaxRetries int

	// RetryDelay overrides the initial backoff delay (default 1s)
	RetryDelay time.Duration

	// MaxRetryDelay caps exponential backoff (default 30s)
	MaxRetryDelay time.Duration

	// CompatibilityMode switches to fixed-delay retries with a budget of
	// three, for firmware that misbehaves under exponential bursts
	CompatibilityMode bool
}

// Client talks to exactly one WLED device over its local HTTP/JSON API.
// It is not a general HTTP client: one host, plain HTTP, JSON payloads.
type Client struct {
	host      string
	transport *transport
	retry     *retryPolicy
}

// NewClient creates a client for the device at host (hostname or IP,
// optionally with a port).
func NewClient(host string) *Client {
	return NewClientWithOptions(host, Options{})
}

// NewClientWithOptions creates a client with explicit tuning.
func NewClientWithOptions(host string, opts Options) *Client {
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
		if opts.CompatibilityMode {
			maxRetries = CompatMaxRetries
		}
	}

	return &Client{
		host:      host,
		transport: newTransport(host, opts.ConnectTimeout, opts.RequestTimeout),
		retry: newRetryPolicy(maxRetries, opts.RetryDelay, opts.MaxRetryDelay,
			!opts.CompatibilityMode),
	}
}

// Host returns the device host this client targets.
func (c *Client) Host() string {
	return c.host
}

// Close releases the client's idle device connection.
func (c *Client) Close() {
	c.transport.close()
}

// do runs one validated request under the retry policy. expected is the wire
// map of a just-sent command, or nil for reads.
func (c *Client) do(ctx context.Context, method, path string, body []byte, expected map[string]any) (map[string]any, error) {
	operation := fmt.Sprintf("%s %s", method, path)

	var doc map[string]any
	err := c.retry.execute(ctx, operation, func() error {
		status, raw, err := c.transport.request(ctx, method, path, body)
		if err != nil {
			return err
		}
		doc, err = validateResponse(status, raw, c.host, operation, expected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetState retrieves the device's current light state.
func (c *Client) GetState(ctx context.Context) (State, error) {
	doc, err := c.do(ctx, http.MethodGet, pathState, nil, nil)
	if err != nil {
		return State{}, err
	}
	return parseState(doc), nil
}

// GetInfo retrieves device metadata.
func (c *Client) GetInfo(ctx context.Context) (Info, error) {
	doc, err := c.do(ctx, http.MethodGet, pathInfo, nil, nil)
	if err != nil {
		return Info{}, err
	}
	return parseInfo(doc), nil
}

// GetFullState retrieves state, info and the effect/palette name lists in a
// single round trip.
func (c *Client) GetFullState(ctx context.Context) (FullState, error) {
	doc, err := c.do(ctx, http.MethodGet, pathFull, nil, nil)
	if err != nil {
		return FullState{}, err
	}
	return parseFullState(doc), nil
}

// UpdateState sends a command to the device and verifies the response
// reflects its critical fields. Returns the device's post-command state.
func (c *Client) UpdateState(ctx context.Context, cmd *Command) (State, error) {
	if err := cmd.validate(); err != nil {
		return State{}, err
	}

	body, err := cmd.encode()
	if err != nil {
		return State{}, newValidationError(fmt.Sprintf("failed to encode command: %v", err))
	}

	logging.Debug("sending command",
		zap.String("host", c.host),
		zap.ByteString("command", body),
	)

	doc, err := c.do(ctx, http.MethodPost, pathState, body, cmd.wireMap())
	if err != nil {
		return State{}, err
	}
	return parseState(doc), nil
}

// TurnOnOptions carries the optional fields for TurnOn.
type TurnOnOptions struct {
	Brightness *int
	Transition *int
	Preset     *int
}

// TurnOn switches the device on, optionally setting brightness, transition
// time, or a preset in the same command.
func (c *Client) TurnOn(ctx context.Context, opts TurnOnOptions) (State, error) {
	cmd := &Command{
		On:         boolPtr(true),
		Brightness: opts.Brightness,
		Transition: opts.Transition,
		Preset:     opts.Preset,
	}
	return c.UpdateState(ctx, cmd)
}

// TurnOff switches the device off, optionally with a transition time.
func (c *Client) TurnOff(ctx context.Context, transition *int) (State, error) {
	return c.UpdateState(ctx, &Command{On: boolPtr(false), Transition: transition})
}

// SetBrightness sets the master brightness (0-255).
func (c *Client) SetBrightness(ctx context.Context, brightness int, transition *int) (State, error) {
	return c.UpdateState(ctx, &Command{Brightness: intPtr(brightness), Transition: transition})
}

// SetPreset recalls a saved preset by id.
func (c *Client) SetPreset(ctx context.Context, preset int) (State, error) {
	return c.UpdateState(ctx, &Command{Preset: intPtr(preset)})
}

// SetEffect selects an effect on segment 0 with optional speed, intensity and
// palette. The nested single-element segment list is the shape the device
// firmware requires.
func (c *Client) SetEffect(ctx context.Context, effect int, speed, intensity, palette *int) (State, error) {
	cmd := &Command{
		Segment: &SegmentEffect{
			Effect:    effect,
			Speed:     speed,
			Intensity: intensity,
			Palette:   palette,
		},
	}
	return c.UpdateState(ctx, cmd)
}

// ActivatePlaylist starts a playlist by id.
func (c *Client) ActivatePlaylist(ctx context.Context, playlist int) (State, error) {
	return c.UpdateState(ctx, &Command{Playlist: intPtr(playlist)})
}

// GetPresets retrieves the device's preset and playlist library. Individual
// malformed entries are skipped; only transport-level failures error out.
func (c *Client) GetPresets(ctx context.Context) (*PresetLibrary, error) {
	doc, err := c.do(ctx, http.MethodGet, pathPresets, nil, nil)
	if err != nil {
		return nil, err
	}

	lib := parsePresetLibrary(doc, c.host)
	logging.Debug("retrieved preset library",
		zap.String("host", c.host),
		zap.Int("presets", len(lib.Presets)),
		zap.Int("playlists", len(lib.Playlists)),
	)
	return lib, nil
}

// TestConnection reports whether the device responds to an info request.
// All failures are swallowed; this exists for setup-time reachability checks.
func (c *Client) TestConnection(ctx context.Context) bool {
	if _, err := c.GetInfo(ctx); err != nil {
		logging.Warn("connection test failed",
			zap.String("host", c.host),
			zap.Error(err),
		)
		return false
	}
	return true
}
