package geofence

import (
	"errors"
	"testing"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"numeric", "42", 42, false},
		{"large numeric", "9007199254", 9007199254, false},
		{"alphabetic", "abc", 0, true},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-7", 0, true},
		{"float", "4.2", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseUserID(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidIdentity) {
					t.Fatalf("ParseUserID(%q) error = %v, want ErrInvalidIdentity", tc.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUserID(%q) unexpected error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("ParseUserID(%q) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}
