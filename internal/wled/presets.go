package wled

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/wled-tools/wledbridge/internal/logging"
)

// Preset is a saved device state snapshot, recalled by numeric id.
type Preset struct {
	ID   int
	Name string

	// State is the raw saved state document for the preset.
	State map[string]any
}

// Playlist is an ordered sequence of presets with per-step timing.
type Playlist struct {
	ID          int
	Name        string
	Presets     []int // preset ids in play order
	Durations   []int // per-step duration, tenths of a second
	Transitions []int // per-step transition time
	Repeat      int
	Shuffle     bool
}

// PresetLibrary holds the device's presets and playlists keyed by id.
type PresetLibrary struct {
	Presets   map[int]Preset
	Playlists map[int]Playlist
}

// PresetNames returns an id to name mapping for all presets.
func (l *PresetLibrary) PresetNames() map[int]string {
	names := make(map[int]string, len(l.Presets))
	for id, p := range l.Presets {
		names[id] = p.Name
	}
	return names
}

// PlaylistNames returns an id to name mapping for all playlists.
func (l *PresetLibrary) PlaylistNames() map[int]string {
	names := make(map[int]string, len(l.Playlists))
	for id, p := range l.Playlists {
		names[id] = p.Name
	}
	return names
}

// parsePresetLibrary parses the /presets.json document. Entries keyed by
// anything non-numeric are skipped, and individually malformed entries are
// dropped rather than failing the whole document: devices routinely carry an
// empty "0" slot and half-written presets.
func parsePresetLibrary(doc map[string]any, host string) *PresetLibrary {
	lib := &PresetLibrary{
		Presets:   make(map[int]Preset),
		Playlists: make(map[int]Playlist),
	}

	for key, raw := range doc {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}

		entry, ok := raw.(map[string]any)
		if !ok || len(entry) == 0 {
			logging.Debug("skipping malformed preset entry",
				zap.String("host", host),
				zap.String("key", key),
			)
			continue
		}

		if playlistDoc, ok := entry["playlist"].(map[string]any); ok {
			lib.Playlists[id] = parsePlaylist(id, entry, playlistDoc)
		} else {
			lib.Presets[id] = Preset{
				ID:    id,
				Name:  presetName(entry, "Preset", id),
				State: entry,
			}
		}
	}

	return lib
}

func parsePlaylist(id int, entry, playlistDoc map[string]any) Playlist {
	return Playlist{
		ID:          id,
		Name:        presetName(entry, "Playlist", id),
		Presets:     intList(playlistDoc["ps"]),
		Durations:   intList(playlistDoc["dur"]),
		Transitions: intList(playlistDoc["transition"]),
		Repeat:      intField(playlistDoc, "repeat", 0),
		Shuffle:     boolField(playlistDoc, "shuffle"),
	}
}

func presetName(entry map[string]any, fallback string, id int) string {
	if name := stringField(entry, "n"); name != "" {
		return name
	}
	return fallback + " " + strconv.Itoa(id)
}

func intList(v any) []int {
	list, ok := asList(v)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		if f, ok := asFloat(item); ok {
			out = append(out, int(f))
		}
	}
	return out
}
