package wled

import (
	"encoding/json"
	"fmt"
)

// WLED JSON state keys. The wire names are fixed by the device firmware.
const (
	keyOn         = "on"
	keyBrightness = "bri"
	keyTransition = "transition"
	keyPreset     = "ps"
	keyPlaylist   = "pl"
	keySegments   = "seg"
	keyEffect     = "fx"
	keySpeed      = "sx"
	keyIntensity  = "ix"
	keyPalette    = "pal"
)

// SegmentEffect selects an effect on segment 0, with optional tuning values.
// The device expects these nested inside a single-element segment list.
type SegmentEffect struct {
	Effect    int
	Speed     *int
	Intensity *int
	Palette   *int
}

// Command is a state-mutating payload for POST /json/state. Only non-nil
// fields are sent. Fields are assembled into the wire map at the JSON
// boundary rather than passing raw maps through the call chain.
type Command struct {
	On         *bool
	Brightness *int
	Transition *int
	Preset     *int
	Playlist   *int
	Segment    *SegmentEffect
}

// IsZero reports whether the command carries no fields at all.
func (c *Command) IsZero() bool {
	return c == nil ||
		(c.On == nil && c.Brightness == nil && c.Transition == nil &&
			c.Preset == nil && c.Playlist == nil && c.Segment == nil)
}

// validate rejects malformed commands before any network attempt.
func (c *Command) validate() error {
	if c.IsZero() {
		return newValidationError("command must set at least one field")
	}
	if c.Brightness != nil && (*c.Brightness < 0 || *c.Brightness > 255) {
		return newValidationError(fmt.Sprintf("brightness must be 0-255, got %d", *c.Brightness))
	}
	if c.Preset != nil && *c.Preset < 0 {
		return newValidationError(fmt.Sprintf("preset id must be non-negative, got %d", *c.Preset))
	}
	if c.Playlist != nil && *c.Playlist < 0 {
		return newValidationError(fmt.Sprintf("playlist id must be non-negative, got %d", *c.Playlist))
	}
	return nil
}

// wireMap produces the exact JSON document the device expects.
func (c *Command) wireMap() map[string]any {
	m := make(map[string]any)

	if c.On != nil {
		m[keyOn] = *c.On
	}
	if c.Brightness != nil {
		m[keyBrightness] = *c.Brightness
	}
	if c.Transition != nil {
		m[keyTransition] = *c.Transition
	}
	if c.Preset != nil {
		m[keyPreset] = *c.Preset
	}
	if c.Playlist != nil {
		m[keyPlaylist] = *c.Playlist
	}
	if c.Segment != nil {
		seg := map[string]any{keyEffect: c.Segment.Effect}
		if c.Segment.Speed != nil {
			seg[keySpeed] = *c.Segment.Speed
		}
		if c.Segment.Intensity != nil {
			seg[keyIntensity] = *c.Segment.Intensity
		}
		if c.Segment.Palette != nil {
			seg[keyPalette] = *c.Segment.Palette
		}
		// The device protocol requires per-segment overrides as a
		// single-element list targeting segment 0.
		m[keySegments] = []any{seg}
	}

	return m
}

// encode marshals the command for the wire.
func (c *Command) encode() ([]byte, error) {
	return json.Marshal(c.wireMap())
}

// intPtr is a small helper for building commands with optional int fields.
func intPtr(v int) *int { return &v }

// boolPtr is a small helper for building commands with optional bool fields.
func boolPtr(v bool) *bool { return &v }
