package model

import (
	"testing"
	"time"
)

func TestAPIKey_IsRevoked(t *testing.T) {
	t.Parallel()

	key := &APIKey{}
	if key.IsRevoked() {
		t.Error("key without revoked_at should not be revoked")
	}

	now := time.Now()
	key.RevokedAt = &now
	if !key.IsRevoked() {
		t.Error("key with revoked_at should be revoked")
	}
}

func TestAPIKey_HasScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scopes []string
		check  string
		want   bool
	}{
		{"has chat scope", []string{ScopeChat}, ScopeChat, true},
		{"missing search scope", []string{ScopeChat}, ScopeSearch, false},
		{"admin implies chat", []string{ScopeAdmin}, ScopeChat, true},
		{"admin implies search", []string{ScopeAdmin}, ScopeSearch, true},
		{"admin implies read", []string{ScopeAdmin}, ScopeRead, true},
		{"empty scopes", nil, ScopeRead, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key := &APIKey{Scopes: tt.scopes}
			if got := key.HasScope(tt.check); got != tt.want {
				t.Errorf("HasScope(%q) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestAPIKey_GetRateLimitConfig(t *testing.T) {
	t.Parallel()

	key := &APIKey{RateLimitTier: TierPremium}
	cfg := key.GetRateLimitConfig()
	if cfg.RequestsPerMinute != 120 {
		t.Errorf("premium tier should allow 120 rpm, got %d", cfg.RequestsPerMinute)
	}

	key = &APIKey{RateLimitTier: "bogus"}
	cfg = key.GetRateLimitConfig()
	if cfg != TierConfigs[TierDefault] {
		t.Error("unknown tier should fall back to default")
	}
}

func TestEndpointLimits_TighterThanTiers(t *testing.T) {
	t.Parallel()

	for endpoint, limit := range EndpointLimits {
		if limit.RequestsPerMinute >= TierConfigs[TierDefault].RequestsPerMinute {
			t.Errorf("endpoint %q limit %d should be tighter than default tier %d",
				endpoint, limit.RequestsPerMinute, TierConfigs[TierDefault].RequestsPerMinute)
		}
	}
}

func TestAPIKey_ToResponse_OmitsSecrets(t *testing.T) {
	t.Parallel()

	key := &APIKey{
		ID:            "key1",
		KeyHash:       "$argon2id$secret",
		KeyPrefix:     "abc123",
		Scopes:        DefaultScopes,
		RateLimitTier: TierDefault,
	}

	resp := key.ToResponse()
	if resp.KeyPrefix != "abc123" {
		t.Errorf("prefix should be exposed, got %q", resp.KeyPrefix)
	}
	if resp.Revoked {
		t.Error("active key should not report revoked")
	}
}
