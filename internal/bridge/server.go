package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wled-tools/wledbridge/internal/coordinator"
	"github.com/wled-tools/wledbridge/internal/logging"
	"github.com/wled-tools/wledbridge/internal/wled"
)

// Server exposes one coordinated WLED device to a home-automation host over
// HTTP and WebSocket. It is a thin adapter: all polling, caching and
// availability logic lives in the coordinator.
type Server struct {
	coord *coordinator.Coordinator
	hub   *hub
	http  *http.Server
}

// NewServer builds the bridge for one device.
func NewServer(listen string, coord *coordinator.Coordinator) *Server {
	s := &Server{
		coord: coord,
		hub:   newHub(),
	}

	// Push every coordinator update to connected WebSocket clients.
	coord.AddListener(func(snap coordinator.Snapshot) {
		s.hub.broadcast(snapshotPayload(snap))
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/state", s.handleState)
	r.Get("/api/presets", s.handlePresets)
	r.Post("/api/on", s.handleTurnOn)
	r.Post("/api/off", s.handleTurnOff)
	r.Post("/api/brightness", s.handleBrightness)
	r.Post("/api/preset", s.handlePreset)
	r.Post("/api/effect", s.handleEffect)
	r.Post("/api/playlist", s.handlePlaylist)
	r.Get("/ws", s.hub.handleWS)

	s.http = &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe runs the bridge until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("bridge listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.closeAll()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// statePayload is the JSON document served to the host platform.
type statePayload struct {
	On              bool     `json:"on"`
	Brightness      int      `json:"bri"`
	Preset          int      `json:"ps"`
	Playlist        int      `json:"pl"`
	Effects         []string `json:"effects,omitempty"`
	Palettes        []string `json:"palettes,omitempty"`
	Available       bool     `json:"available"`
	ConnectionState string   `json:"connection_state"`
	FailedPolls     int      `json:"failed_polls"`
	LastError       *string  `json:"last_error"`
	LastSuccess     string   `json:"last_success,omitempty"`
}

func snapshotPayload(snap coordinator.Snapshot) statePayload {
	payload := statePayload{
		On:              snap.State.State.On,
		Brightness:      snap.State.State.Brightness,
		Preset:          snap.State.State.Preset,
		Playlist:        snap.State.State.Playlist,
		Effects:         snap.State.Effects,
		Palettes:        snap.State.Palettes,
		Available:       snap.Available,
		ConnectionState: string(snap.ConnectionState),
		FailedPolls:     snap.FailedPolls,
	}
	if snap.LastError != "" {
		payload.LastError = &snap.LastError
	}
	if !snap.LastSuccess.IsZero() {
		payload.LastSuccess = snap.LastSuccess.Format(time.RFC3339)
	}
	return payload
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotPayload(s.coord.Snapshot()))
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	lib := s.coord.Presets()
	if lib == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"presets":   map[int]string{},
			"playlists": map[int]string{},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"presets":   lib.PresetNames(),
		"playlists": lib.PlaylistNames(),
	})
}

type commandRequest struct {
	Brightness *int `json:"brightness"`
	Transition *int `json:"transition"`
	Preset     *int `json:"preset"`
	Playlist   *int `json:"playlist"`
	Effect     *int `json:"effect"`
	Speed      *int `json:"speed"`
	Intensity  *int `json:"intensity"`
	Palette    *int `json:"palette"`
}

func decodeCommand(r *http.Request) (commandRequest, error) {
	var req commandRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommand(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := s.coord.TurnOn(r.Context(), req.Brightness, req.Transition, req.Preset)
	s.writeCommandResult(w, state, err)
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommand(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := s.coord.TurnOff(r.Context(), req.Transition)
	s.writeCommandResult(w, state, err)
}

func (s *Server) handleBrightness(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommand(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Brightness == nil {
		writeError(w, http.StatusBadRequest, errors.New("brightness is required"))
		return
	}
	state, err := s.coord.SetBrightness(r.Context(), *req.Brightness, req.Transition)
	s.writeCommandResult(w, state, err)
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommand(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Preset == nil {
		writeError(w, http.StatusBadRequest, errors.New("preset is required"))
		return
	}
	state, err := s.coord.SetPreset(r.Context(), *req.Preset)
	s.writeCommandResult(w, state, err)
}

func (s *Server) handleEffect(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommand(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Effect == nil {
		writeError(w, http.StatusBadRequest, errors.New("effect is required"))
		return
	}
	state, err := s.coord.SetEffect(r.Context(), *req.Effect, req.Speed, req.Intensity, req.Palette)
	s.writeCommandResult(w, state, err)
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommand(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Playlist == nil {
		writeError(w, http.StatusBadRequest, errors.New("playlist is required"))
		return
	}
	state, err := s.coord.ActivatePlaylist(r.Context(), *req.Playlist)
	s.writeCommandResult(w, state, err)
}

func (s *Server) writeCommandResult(w http.ResponseWriter, state wled.State, err error) {
	if err != nil {
		writeError(w, commandErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"on":  state.On,
		"bri": state.Brightness,
		"ps":  state.Preset,
		"pl":  state.Playlist,
	})
}

// commandErrorStatus maps the device error taxonomy onto HTTP statuses the
// host platform can act on.
func commandErrorStatus(err error) int {
	devErr := wled.AsDeviceError(err)
	if devErr == nil {
		return http.StatusBadGateway
	}
	switch devErr.Kind {
	case wled.KindValidation:
		return http.StatusBadRequest
	case wled.KindTimeout:
		return http.StatusGatewayTimeout
	case wled.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
