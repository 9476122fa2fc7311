package reconcile

import (
	"errors"
	"testing"
)

func TestTransferId_Deterministic(t *testing.T) {
	a := TransferId("2", "0xMaker", "0xUser", "7", "ETH", "950000000000000000")
	b := TransferId("2", "0xmaker", "0xuser", "7", "eth", "950000000000000000")
	if a != b {
		t.Errorf("Expected case-insensitive join key, got %s and %s", a, b)
	}
	if len(a) != 66 {
		t.Errorf("Expected 0x-prefixed 32-byte hex, got %q", a)
	}

	c := TransferId("2", "0xmaker", "0xuser", "8", "ETH", "950000000000000000")
	if a == c {
		t.Errorf("Expected different nonce to change the key")
	}
}

func TestExpectValue(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		expected string
	}{
		{"ether", "0.95", 18, "950000000000000000"},
		{"usdc", "12.5", 6, "12500000"},
		{"dust truncated", "0.0000001", 6, "0"},
		{"integer", "3", 0, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectValue(tt.amount, tt.decimals)
			if err != nil {
				t.Fatalf("ExpectValue failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	for _, bad := range []string{"", "abc", "-1"} {
		if _, err := ExpectValue(bad, 18); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Expected ErrInvalidAmount for %q, got %v", bad, err)
		}
	}
}

func TestDecodeMemo(t *testing.T) {
	tests := []struct {
		name     string
		calldata string
		expected string
	}{
		{"nonce word", "0x12345678" + word(7), "7"},
		{"extra words ignored", "0x12345678" + word(42) + word(1), "42"},
		{"selector only", "0x12345678", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeMemo(tt.calldata); got != tt.expected {
				t.Errorf("Expected memo %q, got %q", tt.expected, got)
			}
		})
	}
}
