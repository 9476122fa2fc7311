package common

import "testing"

func TestShortHash(t *testing.T) {
	tests := []struct {
		hash     string
		expected string
	}{
		{"", "none"},
		{"0xabc", "0xabc"},
		{"0x1234567890abcdef1234", "0x123456...1234"},
	}

	for _, tt := range tests {
		if got := ShortHash(tt.hash); got != tt.expected {
			t.Errorf("Expected %s for %q, got %s", tt.expected, tt.hash, got)
		}
	}
}

func TestIsIgnorableSyncError(t *testing.T) {
	if !isIgnorableSyncError(errorString("sync /dev/stderr: inappropriate ioctl for device")) {
		t.Error("Expected tty sync error to be ignorable")
	}
	if isIgnorableSyncError(errorString("disk full")) {
		t.Error("Expected other errors to be reported")
	}
}

type errorString string

func (e errorString) Error() string { return string(e) }
