package wled

import (
	"strings"
	"testing"
)

func TestValidateResponseOrdering(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected map[string]any
		wantKind ErrorKind
		wantOK   bool
	}{
		{
			name:   "valid state document",
			status: 200,
			body:   `{"on":true,"bri":128}`,
			wantOK: true,
		},
		{
			name:     "http error checked before body",
			status:   500,
			body:     `not json at all`,
			wantKind: KindHTTP,
		},
		{
			name:     "auth failure",
			status:   401,
			body:     `{}`,
			wantKind: KindAuth,
		},
		{
			name:     "empty body",
			status:   200,
			body:     "",
			wantKind: KindInvalidResponse,
		},
		{
			name:     "whitespace body",
			status:   200,
			body:     "  \n\t ",
			wantKind: KindInvalidResponse,
		},
		{
			name:     "malformed json",
			status:   200,
			body:     `{"on":tru`,
			wantKind: KindInvalidJSON,
		},
		{
			name:     "json but not an object",
			status:   200,
			body:     `[1,2,3]`,
			wantKind: KindInvalidResponse,
		},
		{
			name:     "device error field",
			status:   200,
			body:     `{"error":9}`,
			wantKind: KindCommand,
		},
		{
			name:     "device success false",
			status:   200,
			body:     `{"success":false}`,
			wantKind: KindCommand,
		},
		{
			name:   "device success true",
			status: 200,
			body:   `{"success":true,"on":true}`,
			wantOK: true,
		},
		{
			name:     "critical power mismatch",
			status:   200,
			body:     `{"on":false,"bri":128}`,
			expected: map[string]any{"on": true, "bri": 128},
			wantKind: KindCommand,
		},
		{
			name:     "critical brightness mismatch",
			status:   200,
			body:     `{"on":true,"bri":0}`,
			expected: map[string]any{"on": true, "bri": 128},
			wantKind: KindCommand,
		},
		{
			name:     "brightness within quantization tolerance",
			status:   200,
			body:     `{"on":true,"bri":127}`,
			expected: map[string]any{"on": true, "bri": 128},
			wantOK:   true,
		},
		{
			name:     "critical field missing from response",
			status:   200,
			body:     `{"bri":128}`,
			expected: map[string]any{"on": true, "bri": 128},
			wantKind: KindCommand,
		},
		{
			name:     "non-critical mismatch tolerated",
			status:   200,
			body:     `{"on":true,"bri":128,"transition":3}`,
			expected: map[string]any{"on": true, "bri": 128, "transition": 7},
			wantOK:   true,
		},
		{
			name:     "absent non-critical field tolerated",
			status:   200,
			body:     `{"on":true,"bri":128}`,
			expected: map[string]any{"on": true, "bri": 128, "ps": 4},
			wantOK:   true,
		},
		{
			name:     "command applied exactly",
			status:   200,
			body:     `{"on":true,"bri":200,"transition":7}`,
			expected: map[string]any{"on": true, "bri": 200},
			wantOK:   true,
		},
		{
			name:     "segment mismatch tolerated",
			status:   200,
			body:     `{"on":true,"seg":[{"fx":0,"sx":100}]}`,
			expected: map[string]any{"seg": []any{map[string]any{"fx": 5, "sx": 128}}},
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := validateResponse(tt.status, []byte(tt.body), "192.168.1.40", "POST /json/state", tt.expected)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("validateResponse() error = %v, want nil", err)
				}
				if doc == nil {
					t.Fatal("expected parsed document")
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsKind(err, tt.wantKind) {
				t.Errorf("error kind = %v, want %v (err: %v)", AsDeviceError(err).Kind, tt.wantKind, err)
			}
		})
	}
}

func TestCriticalMismatchNamesField(t *testing.T) {
	_, err := validateResponse(200, []byte(`{"on":false,"bri":128}`), "h", "POST /json/state",
		map[string]any{"on": true, "bri": 128})
	if !IsKind(err, KindCommand) {
		t.Fatalf("expected command error, got %v", err)
	}
	if !strings.Contains(err.Error(), "on") {
		t.Errorf("error should name the unapplied field: %v", err)
	}
}

func TestValidateResponseBodyPreviewTruncated(t *testing.T) {
	long := "x" + strings.Repeat("y", 2000)
	_, err := validateResponse(200, []byte(long), "h", "GET /json", nil)
	if !IsKind(err, KindInvalidJSON) {
		t.Fatalf("expected invalid json error, got %v", err)
	}

	msg := AsDeviceError(err).Message
	if len(msg) > bodyPreviewLimit+100 {
		t.Errorf("error message carries %d bytes of body, want at most ~%d", len(msg), bodyPreviewLimit)
	}
	if !strings.Contains(msg, "...") {
		t.Error("truncated preview should end with ellipsis")
	}
}

func TestJSONValueEqual(t *testing.T) {
	tests := []struct {
		want any
		got  any
		eq   bool
	}{
		{128, float64(128), true}, // command int vs decoded JSON number
		{128, float64(127), false},
		{true, true, true},
		{true, false, false},
		{"solid", "solid", true},
		{float64(3), 3, true},
		{true, float64(1), false},
	}

	for _, tt := range tests {
		if got := jsonValueEqual(tt.want, tt.got); got != tt.eq {
			t.Errorf("jsonValueEqual(%v, %v) = %v, want %v", tt.want, tt.got, got, tt.eq)
		}
	}
}
