package config

import "testing"

func TestValidateHost(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"192.168.1.40", false},
		{"192.168.1.40:8080", false},
		{"wled-bedroom.local", false},
		{"wled-bedroom.local:80", false},
		{"wled", false},
		{"[2001:db8::1]:80", false},

		{"", true},
		{"2001:db8::1", true}, // bare IPv6 needs brackets and a port
		{"   ", true},
		{"http://192.168.1.40", true},
		{"192.168.1.40/json", true},
		{"192.168.1.40 ", true},
		{"wled bedroom", true},
		{"192.168.1.40:0", true},
		{"192.168.1.40:99999", true},
		{"192.168.1.40:abc", true},
		{"-leading-hyphen.local", true},
		{"bad_underscore.local", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHost(%q) = %v, wantErr %v", tt.host, err, tt.wantErr)
			}
		})
	}
}
