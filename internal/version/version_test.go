package version

import "testing"

func TestGetCurrentVersion(t *testing.T) {
	if got := GetCurrentVersion("dev"); got != DevVersion {
		t.Errorf("GetCurrentVersion(dev) = %q, want %q", got, DevVersion)
	}
	if got := GetCurrentVersion("prod"); got != Version {
		t.Errorf("GetCurrentVersion(prod) = %q, want %q", got, Version)
	}
}

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	tests := []struct {
		version string
		target  string
		want    bool
	}{
		{"1.2.0", "1.2.0", true},
		{"1.3.0", "1.2.0", true},
		{"1.2.0", "1.3.0", false},
		{"2.0.0", "1.9.9", true},
		{"0.0.0-dev", "0.0.0", false},
		{"0.0.0-dev", "0.0.0-dev", true},
		{"1.0.0", "0.0.0-dev", true},
	}
	for _, tt := range tests {
		if got := IsVersionGreaterOrEqualThan(tt.version, tt.target); got != tt.want {
			t.Errorf("IsVersionGreaterOrEqualThan(%q, %q) = %v, want %v", tt.version, tt.target, got, tt.want)
		}
	}
}
