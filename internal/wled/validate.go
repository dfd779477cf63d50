package wled

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wled-tools/wledbridge/internal/logging"
)

// bodyPreviewLimit caps how much of a malformed body is carried in an error
// for diagnostics. Never attach the full body.
const bodyPreviewLimit = 500

// criticalCommandKeys are the command fields that must be reflected back by
// the device. A mismatch on any other field is tolerated: WLED debounces and
// clamps some settings, so non-critical values may legitimately differ
// slightly after a command.
var criticalCommandKeys = map[string]bool{
	keyOn:         true,
	keyBrightness: true,
}

// brightnessTolerance allows for the device's brightness quantization: the
// firmware can report a value one step off from what was sent without the
// command having failed.
const brightnessTolerance = 1

// validateResponse checks an HTTP response from the device in order:
// status, empty body, JSON shape, device-reported failure, and finally the
// applied-command comparison when a command was sent. Each step fails with
// its own error kind.
func validateResponse(status int, raw []byte, host, operation string, expected map[string]any) (map[string]any, error) {
	if status >= 400 {
		return nil, newHTTPError(status, host, operation)
	}

	body := strings.TrimSpace(string(raw))
	if body == "" {
		return nil, &DeviceError{
			Kind:      KindInvalidResponse,
			Message:   "empty response",
			Host:      host,
			Operation: operation,
		}
	}

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, &DeviceError{
			Kind:      KindInvalidJSON,
			Message:   fmt.Sprintf("failed to parse response: %s", bodyPreview(body)),
			Host:      host,
			Operation: operation,
			Err:       err,
		}
	}

	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil, &DeviceError{
			Kind:      KindInvalidResponse,
			Message:   "invalid format: expected a JSON object",
			Host:      host,
			Operation: operation,
		}
	}

	// WLED can signal failure inside an HTTP 200 body.
	if err := deviceReportedError(doc, host, operation); err != nil {
		return nil, err
	}

	if expected != nil {
		if err := verifyApplied(expected, doc, host, operation); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// deviceReportedError surfaces the device's own error signalling: an "error"
// field or an explicit "success": false.
func deviceReportedError(doc map[string]any, host, operation string) error {
	if errVal, ok := doc["error"]; ok {
		return &DeviceError{
			Kind:      KindCommand,
			Message:   fmt.Sprintf("device reported error: %v", errVal),
			Host:      host,
			Operation: operation,
		}
	}
	if success, ok := doc["success"].(bool); ok && !success {
		return &DeviceError{
			Kind:      KindCommand,
			Message:   "device reported success=false",
			Host:      host,
			Operation: operation,
		}
	}
	return nil
}

// verifyApplied compares each command field against the device's response.
// Critical field mismatches fail the command; everything else is logged only.
func verifyApplied(expected, actual map[string]any, host, operation string) error {
	var criticalMismatches []string

	for key, want := range expected {
		if key == keySegments {
			criticalMismatches = append(criticalMismatches,
				verifySegment(want, actual[keySegments], host)...)
			continue
		}

		got, present := actual[key]
		if !present {
			if criticalCommandKeys[key] {
				criticalMismatches = append(criticalMismatches,
					fmt.Sprintf("%s: sent %v, missing from response", key, want))
			} else {
				logMismatch(host, key, want, "<absent>")
			}
			continue
		}
		if commandValueApplied(key, want, got) {
			continue
		}
		if criticalCommandKeys[key] {
			criticalMismatches = append(criticalMismatches,
				fmt.Sprintf("%s: sent %v, device reports %v", key, want, got))
		} else {
			logMismatch(host, key, want, got)
		}
	}

	if len(criticalMismatches) > 0 {
		return &DeviceError{
			Kind:      KindCommand,
			Message:   "device did not apply command: " + strings.Join(criticalMismatches, "; "),
			Host:      host,
			Operation: operation,
		}
	}
	return nil
}

// verifySegment checks the first element of the seg override list against the
// first segment in the response. Segment tuning values are non-critical, so
// mismatches are logged rather than failed.
func verifySegment(want, got any, host string) []string {
	wantList, ok := asList(want)
	if !ok || len(wantList) == 0 {
		return nil
	}
	wantSeg, ok := wantList[0].(map[string]any)
	if !ok {
		return nil
	}

	gotList, ok := asList(got)
	if !ok || len(gotList) == 0 {
		logMismatch(host, keySegments, want, "<absent>")
		return nil
	}
	gotSeg, ok := gotList[0].(map[string]any)
	if !ok {
		logMismatch(host, keySegments, want, gotList[0])
		return nil
	}

	for key, wantVal := range wantSeg {
		gotVal, present := gotSeg[key]
		if !present || !jsonValueEqual(wantVal, gotVal) {
			logMismatch(host, keySegments+"[0]."+key, wantVal, gotVal)
		}
	}
	return nil
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	default:
		return nil, false
	}
}

func logMismatch(host, field string, want, got any) {
	logging.Debug("non-critical command field differs on device",
		zap.String("host", host),
		zap.String("field", field),
		zap.Any("sent", want),
		zap.Any("device", got),
	)
}

// commandValueApplied reports whether the device's reported value counts as
// the command field having been applied. Brightness gets a small tolerance
// for firmware quantization; everything else must match.
func commandValueApplied(key string, want, got any) bool {
	if key == keyBrightness {
		wf, okW := asFloat(want)
		gf, okG := asFloat(got)
		if okW && okG {
			diff := wf - gf
			if diff < 0 {
				diff = -diff
			}
			return diff <= brightnessTolerance
		}
	}
	return jsonValueEqual(want, got)
}

// jsonValueEqual compares a command value with a decoded JSON value.
// Decoded JSON numbers are float64, so numeric comparison goes through
// a common representation.
func jsonValueEqual(want, got any) bool {
	if wf, ok := asFloat(want); ok {
		gf, ok := asFloat(got)
		return ok && wf == gf
	}
	if wb, ok := want.(bool); ok {
		gb, ok := got.(bool)
		return ok && wb == gb
	}
	if ws, ok := want.(string); ok {
		gs, ok := got.(string)
		return ok && ws == gs
	}
	return fmt.Sprintf("%v", want) == fmt.Sprintf("%v", got)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func bodyPreview(body string) string {
	if len(body) > bodyPreviewLimit {
		return body[:bodyPreviewLimit] + "..."
	}
	return body
}
