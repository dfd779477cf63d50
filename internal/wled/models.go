package wled

// Typed views over the device's JSON documents. Parsing happens once at the
// JSON boundary; the raw document is retained for callers that need fields
// this package does not model.

// NoPreset is the preset id WLED reports when no preset is active.
const NoPreset = -1

// Segment is one independently configurable LED sub-range.
type Segment struct {
	ID         int
	Start      int
	Stop       int
	On         bool
	Brightness int
	Effect     int
	Speed      int
	Intensity  int
	Palette    int
}

// State is the device's light state from GET /json/state.
type State struct {
	On         bool
	Brightness int
	Preset     int // NoPreset when none active
	Playlist   int // NoPreset when none active
	Transition int
	Segments   []Segment

	// Raw is the full decoded state document.
	Raw map[string]any
}

// Info is device metadata from GET /json/info.
type Info struct {
	Name     string
	Version  string
	MAC      string
	LEDCount int

	// Raw is the full decoded info document.
	Raw map[string]any
}

// FullState is the combined document from GET /json.
type FullState struct {
	State    State
	Info     Info
	Effects  []string // effect names indexed by effect id
	Palettes []string // palette names indexed by palette id

	// Raw is the full decoded document.
	Raw map[string]any
}

func parseState(doc map[string]any) State {
	st := State{
		On:         boolField(doc, keyOn),
		Brightness: intField(doc, keyBrightness, 0),
		Preset:     intField(doc, keyPreset, NoPreset),
		Playlist:   intField(doc, keyPlaylist, NoPreset),
		Transition: intField(doc, keyTransition, 0),
		Raw:        doc,
	}

	if segs, ok := asList(doc[keySegments]); ok {
		for i, raw := range segs {
			segDoc, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			st.Segments = append(st.Segments, Segment{
				ID:         intField(segDoc, "id", i),
				Start:      intField(segDoc, "start", 0),
				Stop:       intField(segDoc, "stop", 0),
				On:         boolField(segDoc, keyOn),
				Brightness: intField(segDoc, keyBrightness, 0),
				Effect:     intField(segDoc, keyEffect, 0),
				Speed:      intField(segDoc, keySpeed, 0),
				Intensity:  intField(segDoc, keyIntensity, 0),
				Palette:    intField(segDoc, keyPalette, 0),
			})
		}
	}

	return st
}

func parseInfo(doc map[string]any) Info {
	info := Info{
		Name:    stringField(doc, "name"),
		Version: stringField(doc, "ver"),
		MAC:     stringField(doc, "mac"),
		Raw:     doc,
	}

	// LED count is nested: {"leds": {"count": N}}
	if leds, ok := doc["leds"].(map[string]any); ok {
		info.LEDCount = intField(leds, "count", 0)
	}

	return info
}

func parseFullState(doc map[string]any) FullState {
	full := FullState{Raw: doc}

	if stateDoc, ok := doc["state"].(map[string]any); ok {
		full.State = parseState(stateDoc)
	}
	if infoDoc, ok := doc["info"].(map[string]any); ok {
		full.Info = parseInfo(infoDoc)
	}
	full.Effects = stringList(doc["effects"])
	full.Palettes = stringList(doc["palettes"])

	return full
}

func boolField(doc map[string]any, key string) bool {
	v, _ := doc[key].(bool)
	return v
}

func intField(doc map[string]any, key string, fallback int) int {
	if f, ok := asFloat(doc[key]); ok {
		return int(f)
	}
	return fallback
}

func stringField(doc map[string]any, key string) string {
	v, _ := doc[key].(string)
	return v
}

func stringList(v any) []string {
	list, ok := asList(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
