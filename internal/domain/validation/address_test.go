package validation

import (
	"strings"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		network  string
		expected bool
	}{
		{"mixed case checksum", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", "ethereum", true},
		{"lowercase", "0xab5801a7d398351b8be11c439e05c5b3259aec9b", "ethereum", true},
		{"uppercase hex", "0xAB5801A7D398351B8BE11C439E05C5B3259AEC9B", "ethereum", true},
		{"network name case-insensitive", "0xab5801a7d398351b8be11c439e05c5b3259aec9b", "Polygon", true},
		{"too short", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb", "ethereum", false},
		{"too long", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb00", "ethereum", false},
		{"non-hex character", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEbG", "ethereum", false},
		{"missing prefix", "742d35Cc6634C0532925a3b844Bc9e7595f0bEb012", "ethereum", false},
		{"uppercase prefix", "0X742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", "ethereum", false},
		{"leading whitespace", " 0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", "ethereum", false},
		{"trailing newline", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0\n", "ethereum", false},
		{"empty", "", "ethereum", false},
		{"unknown network", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", "bitcoin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAddress(tt.address, tt.network); got != tt.expected {
				t.Errorf("ValidateAddress(%q, %q) = %v, expected %v", tt.address, tt.network, got, tt.expected)
			}
		})
	}
}

func TestValidateAddress_AllHexDigits(t *testing.T) {
	for _, c := range "0123456789abcdefABCDEF" {
		addr := "0x" + strings.Repeat(string(c), 40)
		if !ValidateAddress(addr, "ethereum") {
			t.Errorf("expected %s to be valid", addr)
		}
	}
	for _, c := range "gGzZ-_ x" {
		addr := "0x" + strings.Repeat("a", 39) + string(c)
		if ValidateAddress(addr, "ethereum") {
			t.Errorf("expected %q to be invalid", addr)
		}
	}
}

func TestValidateTxHash(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name     string
		hash     string
		expected bool
	}{
		{"valid", valid, true},
		{"short", valid[:65], false},
		{"missing prefix", strings.Repeat("ab", 33), false},
		{"non-hex", valid[:65] + "z", false},
		{"address instead of hash", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateTxHash(tt.hash, "ethereum"); got != tt.expected {
				t.Errorf("ValidateTxHash(%q) = %v, expected %v", tt.hash, got, tt.expected)
			}
		})
	}
}
