package wled

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fastOptions keeps test retries from sleeping for real.
func fastOptions() Options {
	return Options{
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")
	return NewClientWithOptions(host, fastOptions())
}

const fullStateBody = `{
	"state": {"on": true, "bri": 128, "ps": 2, "pl": -1, "transition": 7,
		"seg": [{"id": 0, "start": 0, "stop": 30, "on": true, "bri": 255, "fx": 5, "sx": 100, "ix": 150, "pal": 3}]},
	"info": {"name": "Bedroom", "ver": "0.14.0", "mac": "aabbccddeeff", "leds": {"count": 30}},
	"effects": ["Solid", "Blink", "Breathe", "Wipe", "Random", "Sweep"],
	"palettes": ["Default", "Random Cycle"]
}`

func TestGetFullState(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json" {
			t.Errorf("path = %q, want /json", r.URL.Path)
		}
		io.WriteString(w, fullStateBody)
	}))
	defer client.Close()

	full, err := client.GetFullState(context.Background())
	if err != nil {
		t.Fatalf("GetFullState() error = %v", err)
	}

	if !full.State.On || full.State.Brightness != 128 {
		t.Errorf("state = on:%v bri:%d, want on:true bri:128", full.State.On, full.State.Brightness)
	}
	if full.State.Preset != 2 {
		t.Errorf("preset = %d, want 2", full.State.Preset)
	}
	if full.State.Playlist != NoPreset {
		t.Errorf("playlist = %d, want %d", full.State.Playlist, NoPreset)
	}
	if len(full.State.Segments) != 1 || full.State.Segments[0].Effect != 5 {
		t.Errorf("segments = %+v, want one segment with fx 5", full.State.Segments)
	}
	if full.Info.Name != "Bedroom" || full.Info.LEDCount != 30 {
		t.Errorf("info = %+v, want Bedroom with 30 LEDs", full.Info)
	}
	if len(full.Effects) != 6 || full.Effects[5] != "Sweep" {
		t.Errorf("effects = %v", full.Effects)
	}
	if len(full.Palettes) != 2 {
		t.Errorf("palettes = %v", full.Palettes)
	}
}

func TestGetStateDefaults(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"on": false, "bri": 0}`)
	}))
	defer client.Close()

	state, err := client.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Preset != NoPreset || state.Playlist != NoPreset {
		t.Errorf("absent ps/pl should default to %d, got ps:%d pl:%d", NoPreset, state.Preset, state.Playlist)
	}
}

func TestUpdateStateSendsExactWireShape(t *testing.T) {
	var gotBody atomic.Value
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/json/state" {
			t.Errorf("request = %s %s, want POST /json/state", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(body)
		io.WriteString(w, `{"on": true, "bri": 128, "seg": [{"fx": 5, "sx": 128, "ix": 200, "pal": 3}]}`)
	}))
	defer client.Close()

	_, err := client.SetEffect(context.Background(), 5, intPtr(128), intPtr(200), intPtr(3))
	if err != nil {
		t.Fatalf("SetEffect() error = %v", err)
	}

	var sent map[string]any
	if err := json.Unmarshal(gotBody.Load().([]byte), &sent); err != nil {
		t.Fatalf("sent body is not JSON: %v", err)
	}
	segs, ok := sent["seg"].([]any)
	if !ok || len(segs) != 1 {
		t.Fatalf("sent seg = %v, want single-element list", sent["seg"])
	}
	seg := segs[0].(map[string]any)
	for key, want := range map[string]float64{"fx": 5, "sx": 128, "ix": 200, "pal": 3} {
		if seg[key] != want {
			t.Errorf("sent seg[0].%s = %v, want %v", key, seg[key], want)
		}
	}
}

func TestUpdateStateEmptyCommandSkipsNetwork(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		io.WriteString(w, `{}`)
	}))
	defer client.Close()

	_, err := client.UpdateState(context.Background(), &Command{})
	if !IsValidationError(err) {
		t.Fatalf("UpdateState(empty) = %v, want validation error", err)
	}
	if requests.Load() != 0 {
		t.Errorf("empty command reached the network (%d requests)", requests.Load())
	}
}

func TestUpdateStateCriticalMismatchFails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Device claims it is still off after an "on" command.
		io.WriteString(w, `{"on": false, "bri": 128}`)
	}))
	defer client.Close()

	_, err := client.TurnOn(context.Background(), TurnOnOptions{Brightness: intPtr(128)})
	if !IsCommandError(err) {
		t.Fatalf("TurnOn() = %v, want command error on unapplied power state", err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"on": true, "bri": 64}`)
	}))
	defer client.Close()

	state, err := client.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v after transient 500s", err)
	}
	if state.Brightness != 64 {
		t.Errorf("brightness = %d, want 64", state.Brightness)
	}
	if requests.Load() != 3 {
		t.Errorf("requests = %d, want 3 (two failures then success)", requests.Load())
	}
}

func TestNoRetryOnAuthError(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer client.Close()

	_, err := client.GetState(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("GetState() = %v, want auth error", err)
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1 (auth failures are not retried)", requests.Load())
	}
}

func TestCompatibilityModeRetryBudget(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.CompatibilityMode = true
	client := NewClientWithOptions(strings.TrimPrefix(srv.URL, "http://"), opts)
	defer client.Close()

	_, err := client.GetState(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if requests.Load() != CompatMaxRetries+1 {
		t.Errorf("requests = %d, want %d", requests.Load(), CompatMaxRetries+1)
	}
}

func TestGetPresets(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/presets.json" {
			t.Errorf("path = %q, want /presets.json", r.URL.Path)
		}
		io.WriteString(w, `{
			"0": {},
			"1": {"n": "Warm white", "on": true, "bri": 180},
			"2": {"on": true, "bri": 255},
			"3": {"n": "Evening", "playlist": {"ps": [1, 2], "dur": [100, 100], "transition": [7, 7], "repeat": 0, "shuffle": false}},
			"x": {"n": "bad-key"}
		}`)
	}))
	defer client.Close()

	lib, err := client.GetPresets(context.Background())
	if err != nil {
		t.Fatalf("GetPresets() error = %v", err)
	}

	if len(lib.Presets) != 2 {
		t.Errorf("presets = %d, want 2 (empty slot 0 and non-numeric key skipped)", len(lib.Presets))
	}
	if lib.Presets[1].Name != "Warm white" {
		t.Errorf("preset 1 name = %q", lib.Presets[1].Name)
	}
	if lib.Presets[2].Name != "Preset 2" {
		t.Errorf("unnamed preset name = %q, want fallback", lib.Presets[2].Name)
	}
	if len(lib.Playlists) != 1 {
		t.Fatalf("playlists = %d, want 1", len(lib.Playlists))
	}
	pl := lib.Playlists[3]
	if pl.Name != "Evening" || len(pl.Presets) != 2 || pl.Presets[0] != 1 {
		t.Errorf("playlist = %+v", pl)
	}
}

func TestTestConnection(t *testing.T) {
	okClient := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name": "Bedroom", "ver": "0.14.0"}`)
	}))
	defer okClient.Close()
	if !okClient.TestConnection(context.Background()) {
		t.Error("TestConnection() = false for a healthy device")
	}

	badClient := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer badClient.Close()
	if badClient.TestConnection(context.Background()) {
		t.Error("TestConnection() = true for a failing device")
	}
}

func TestDeviceReportedErrorSurfaces(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error": 9}`)
	}))
	defer client.Close()

	_, err := client.SetPreset(context.Background(), 4)
	if !IsCommandError(err) {
		t.Fatalf("SetPreset() = %v, want command error from error body", err)
	}
}
