// Package model defines domain entities for the application.
package model

import "time"

// UsageRecord is one row of the usage_log audit table. A record is written
// for every authenticated API call, via the async usage pipeline.
type UsageRecord struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	APIKeyID string `json:"api_key_id"`
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"` // chat, search, models, usage

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	StatusCode       int `json:"status_code"`
	DurationMS       int `json:"duration_ms"`

	RequestedAt time.Time `json:"requested_at"` // When the request was served
	CreatedAt   time.Time `json:"created_at"`   // DB insertion time
}

// EndpointUsage is the per-endpoint slice of a usage summary.
type EndpointUsage struct {
	Endpoint    string `json:"endpoint"`
	Requests    int64  `json:"requests"`
	TotalTokens int64  `json:"total_tokens"`
}

// UsageWindow aggregates usage over a trailing time window.
type UsageWindow struct {
	Window      string          `json:"window"` // "24h", "7d", "30d"
	Requests    int64           `json:"requests"`
	TotalTokens int64           `json:"total_tokens"`
	ByEndpoint  []EndpointUsage `json:"by_endpoint,omitempty"`
}

// RateLimitSnapshot reports the caller's current quota configuration.
type RateLimitSnapshot struct {
	Tier              string                     `json:"tier"`
	RequestsPerMinute int                        `json:"requests_per_minute"`
	Burst             int                        `json:"burst"`
	EndpointLimits    map[string]RateLimitConfig `json:"endpoint_limits"`
}

// UsageResponse is the body returned by GET /api/usage.
type UsageResponse struct {
	KeyID       string            `json:"key_id"`
	KeyPrefix   string            `json:"key_prefix"`
	Windows     []UsageWindow     `json:"windows"`
	RateLimits  RateLimitSnapshot `json:"rate_limits"`
	GeneratedAt time.Time         `json:"generated_at"`
}
