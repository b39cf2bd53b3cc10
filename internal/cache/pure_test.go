package cache

import (
	"strings"
	"testing"
)

func TestHashIP_Deterministic(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"

	hash1 := hashIP(ip)
	hash2 := hashIP(ip)

	if hash1 != hash2 {
		t.Error("Same IP should produce same hash")
	}
}

func TestHashIP_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv4 localhost", "127.0.0.1"},
		{"IPv6 localhost", "::1"},
		{"IPv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash := hashIP(tt.ip)
			// hashIP uses first 8 bytes of SHA256, encoded as 16 hex chars
			if len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
		})
	}
}

func TestHashIP_Different(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip1  string
		ip2  string
	}{
		{"different IPv4", "192.168.1.1", "192.168.1.2"},
		{"different last octet", "10.0.0.1", "10.0.0.2"},
		{"IPv4 vs IPv6", "127.0.0.1", "::1"},
		{"public vs private", "8.8.8.8", "192.168.1.1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash1 := hashIP(tt.ip1)
			hash2 := hashIP(tt.ip2)

			if hash1 == hash2 {
				t.Errorf("Different IPs should produce different hashes: %q and %q both produced %s", tt.ip1, tt.ip2, hash1)
			}
		})
	}
}

func TestSearchCacheKey_Normalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"case insensitive", "What Is Gravity", "what is gravity"},
		{"extra spaces", "what  is   gravity", "what is gravity"},
		{"leading and trailing", "  what is gravity  ", "what is gravity"},
		{"tabs", "what\tis\tgravity", "what is gravity"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if searchCacheKey(tt.a) != searchCacheKey(tt.b) {
				t.Errorf("queries %q and %q should share a cache key", tt.a, tt.b)
			}
		})
	}
}

func TestSearchCacheKey_DistinctQueries(t *testing.T) {
	t.Parallel()

	if searchCacheKey("what is gravity") == searchCacheKey("what is entropy") {
		t.Error("different queries should not collide")
	}
}

func TestSearchCacheKey_Prefix(t *testing.T) {
	t.Parallel()

	key := searchCacheKey("speed of light")
	if !strings.HasPrefix(key, searchKeyPrefix) {
		t.Errorf("cache key should start with %q, got %q", searchKeyPrefix, key)
	}
}
