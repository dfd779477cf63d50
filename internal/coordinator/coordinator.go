package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wled-tools/wledbridge/internal/logging"
	"github.com/wled-tools/wledbridge/internal/wled"
)

const (
	// DefaultPollInterval is the period between scheduled device polls
	DefaultPollInterval = 1 * time.Minute

	// DefaultPresetsInterval is the period between preset library refreshes
	DefaultPresetsInterval = 1 * time.Hour

	// MaxFailedPolls is the consecutive countable-failure threshold after
	// which the device is reported unavailable. Kept separate from the raw
	// connection state so isolated blips do not flap availability.
	MaxFailedPolls = 3
)

// ConnectionState tracks the device link as driven by poll outcomes.
type ConnectionState string

const (
	StateUnknown      ConnectionState = "unknown"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateError        ConnectionState = "error"
)

// Device is the client surface the coordinator drives. *wled.Client
// satisfies it; tests substitute fakes.
type Device interface {
	Host() string
	GetFullState(ctx context.Context) (wled.FullState, error)
	UpdateState(ctx context.Context, cmd *wled.Command) (wled.State, error)
	GetPresets(ctx context.Context) (*wled.PresetLibrary, error)
}

// Snapshot is the externally visible view of the device: the last known
// state plus availability metadata. During transient outages State holds
// stale data and Available flags the degradation.
type Snapshot struct {
	State           wled.FullState
	ConnectionState ConnectionState
	Available       bool // false once MaxFailedPolls consecutive failures
	FailedPolls     int
	LastError       string
	LastErrorTime   time.Time
	LastSuccess     time.Time
	Presets         *wled.PresetLibrary
}

// Coordinator owns the polling loop and availability state machine for one
// device. The snapshot is mutex-guarded because the bridge server and TUI
// read it while the loop updates it.
type Coordinator struct {
	device          Device
	pollInterval    time.Duration
	presetsInterval time.Duration
	refreshCh       chan struct{}

	mu             sync.RWMutex
	state          ConnectionState
	failedPolls    int
	snapshot       *wled.FullState
	lastError      string
	lastErrorTime  time.Time
	lastSuccess    time.Time
	presets        *wled.PresetLibrary
	presetsUpdated time.Time
	presetsFailed  int
	listeners      []func(Snapshot)

	now func() time.Time // test hook
}

// Option tunes a Coordinator.
type Option func(*Coordinator)

// WithPollInterval overrides the scheduled poll period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.pollInterval = d }
}

// WithPresetsInterval overrides the preset library refresh period.
func WithPresetsInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.presetsInterval = d }
}

// New creates a coordinator for one device. Construct one per configured
// device at setup and tear it down at unload; state is never shared through
// globals.
func New(device Device, opts ...Option) *Coordinator {
	c := &Coordinator{
		device:          device,
		pollInterval:    DefaultPollInterval,
		presetsInterval: DefaultPresetsInterval,
		refreshCh:       make(chan struct{}, 1),
		state:           StateUnknown,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddListener registers a callback invoked with a fresh snapshot after every
// poll and command. Register listeners before calling Run.
func (c *Coordinator) AddListener(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// TriggerRefresh requests an out-of-band poll. Non-blocking; a refresh
// already pending is enough.
func (c *Coordinator) TriggerRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Run polls on the configured interval until ctx is cancelled. Out-of-band
// refreshes requested through TriggerRefresh preempt the timer.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.refreshCh:
			timer.Stop()
		case <-timer.C:
		}

		if _, err := c.Poll(ctx); err != nil {
			logging.Error("poll failed",
				zap.String("host", c.device.Host()),
				zap.Error(err),
			)
		}
	}
}

// Poll fetches the device state once and runs the availability state
// machine. On countable failures with a warm cache it returns the stale
// snapshot instead of the error; the availability flag is then the only
// visible signal of degradation. Authentication failures always propagate.
func (c *Coordinator) Poll(ctx context.Context) (Snapshot, error) {
	full, err := c.device.GetFullState(ctx)
	if err == nil {
		c.recordSuccess(full)
		c.refreshPresetsIfDue(ctx)
		snap := c.Snapshot()
		c.notify(snap)
		return snap, nil
	}

	countable, nextState := classifyPollFailure(err)
	c.recordFailure(err, nextState, countable)
	snap := c.Snapshot()
	c.notify(snap)

	// Authentication is categorically wrong, not transiently unavailable:
	// never serve stale data for it.
	if countable && c.hasCache() {
		logging.Debug("serving stale state after poll failure",
			zap.String("host", c.device.Host()),
			zap.Int("failed_polls", snap.FailedPolls),
		)
		return snap, nil
	}

	return snap, err
}

// classifyPollFailure decides whether a failure counts toward the
// availability threshold and which connection state it drives.
func classifyPollFailure(err error) (countable bool, next ConnectionState) {
	devErr := wled.AsDeviceError(err)
	if devErr == nil {
		return true, StateError
	}
	switch devErr.Kind {
	case wled.KindAuth:
		return false, StateError
	case wled.KindNetwork:
		return true, StateDisconnected
	default:
		return true, StateError
	}
}

func (c *Coordinator) recordSuccess(full wled.FullState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected {
		logging.Info("device connected", zap.String("host", c.device.Host()))
	}
	c.state = StateConnected
	c.failedPolls = 0
	c.snapshot = &full
	c.lastError = ""
	c.lastErrorTime = time.Time{}
	c.lastSuccess = c.now()
}

func (c *Coordinator) recordFailure(err error, next ConnectionState, countable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if countable {
		c.failedPolls++
	}

	if c.state != next {
		logging.Warn("device connection state changed",
			zap.String("host", c.device.Host()),
			zap.String("from", string(c.state)),
			zap.String("to", string(next)),
			zap.Error(err),
		)
	}
	c.state = next
	c.lastError = err.Error()
	c.lastErrorTime = c.now()

	if countable && c.failedPolls == MaxFailedPolls {
		logging.Error("device marked unavailable",
			zap.String("host", c.device.Host()),
			zap.Int("failed_polls", c.failedPolls),
		)
	}
}

func (c *Coordinator) hasCache() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot != nil
}

// Snapshot returns the current view of the device. The cached state is never
// cleared by a failed poll, only replaced by a newer successful one.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		ConnectionState: c.state,
		Available:       c.failedPolls < MaxFailedPolls,
		FailedPolls:     c.failedPolls,
		LastError:       c.lastError,
		LastErrorTime:   c.lastErrorTime,
		LastSuccess:     c.lastSuccess,
		Presets:         c.presets,
	}
	if c.snapshot != nil {
		snap.State = *c.snapshot
	}
	return snap
}

// Connected reports whether the last poll or command round trip succeeded.
func (c *Coordinator) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateConnected
}

// LastError returns the most recent failure message, or "" after a success.
func (c *Coordinator) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Coordinator) notify(snap Snapshot) {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// SendCommand dispatches a command to the device. On success it triggers an
// out-of-band refresh so the cached state reflects the applied command
// before the next scheduled tick. Command failures are never swallowed the
// way background poll failures are; the caller asked, the caller hears.
func (c *Coordinator) SendCommand(ctx context.Context, cmd *wled.Command) (wled.State, error) {
	state, err := c.device.UpdateState(ctx, cmd)
	if err != nil {
		if !wled.IsValidationError(err) {
			_, next := classifyPollFailure(err)
			c.recordFailure(err, next, false)
			c.notify(c.Snapshot())
		}
		return wled.State{}, err
	}

	c.TriggerRefresh()
	return state, nil
}

// TurnOn switches the device on with optional brightness/transition/preset.
func (c *Coordinator) TurnOn(ctx context.Context, brightness, transition, preset *int) (wled.State, error) {
	on := true
	return c.SendCommand(ctx, &wled.Command{
		On:         &on,
		Brightness: brightness,
		Transition: transition,
		Preset:     preset,
	})
}

// TurnOff switches the device off with an optional transition.
func (c *Coordinator) TurnOff(ctx context.Context, transition *int) (wled.State, error) {
	off := false
	return c.SendCommand(ctx, &wled.Command{On: &off, Transition: transition})
}

// SetBrightness sets the master brightness.
func (c *Coordinator) SetBrightness(ctx context.Context, brightness int, transition *int) (wled.State, error) {
	return c.SendCommand(ctx, &wled.Command{Brightness: &brightness, Transition: transition})
}

// SetPreset recalls a preset.
func (c *Coordinator) SetPreset(ctx context.Context, preset int) (wled.State, error) {
	return c.SendCommand(ctx, &wled.Command{Preset: &preset})
}

// SetEffect selects an effect on segment 0.
func (c *Coordinator) SetEffect(ctx context.Context, effect int, speed, intensity, palette *int) (wled.State, error) {
	return c.SendCommand(ctx, &wled.Command{
		Segment: &wled.SegmentEffect{
			Effect:    effect,
			Speed:     speed,
			Intensity: intensity,
			Palette:   palette,
		},
	})
}

// ActivatePlaylist starts a playlist.
func (c *Coordinator) ActivatePlaylist(ctx context.Context, playlist int) (wled.State, error) {
	return c.SendCommand(ctx, &wled.Command{Playlist: &playlist})
}

// refreshPresetsIfDue refreshes the preset/playlist cache on its own longer
// interval. Failures here are counted separately and never affect the
// primary availability state or fail the poll that triggered the refresh.
func (c *Coordinator) refreshPresetsIfDue(ctx context.Context) {
	c.mu.RLock()
	due := c.presetsUpdated.IsZero() ||
		c.now().Sub(c.presetsUpdated) >= c.presetsInterval
	c.mu.RUnlock()
	if !due {
		return
	}

	lib, err := c.device.GetPresets(ctx)
	if err != nil {
		c.mu.Lock()
		c.presetsFailed++
		failed := c.presetsFailed
		c.mu.Unlock()
		logging.Warn("preset library refresh failed",
			zap.String("host", c.device.Host()),
			zap.Int("consecutive_failures", failed),
			zap.Error(err),
		)
		return
	}

	c.mu.Lock()
	c.presets = lib
	c.presetsUpdated = c.now()
	c.presetsFailed = 0
	c.mu.Unlock()

	logging.Debug("preset library refreshed",
		zap.String("host", c.device.Host()),
		zap.Int("presets", len(lib.Presets)),
		zap.Int("playlists", len(lib.Playlists)),
	)
}

// Presets returns the cached preset library, which may be nil before the
// first successful refresh.
func (c *Coordinator) Presets() *wled.PresetLibrary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.presets
}
