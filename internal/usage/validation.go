package usage

import "fmt"

const (
	maxEndpointLength = 50
	maxDurationMS     = 10 * 60 * 1000 // 10 minutes
)

// knownEndpoints are the API surfaces that emit usage events.
var knownEndpoints = map[string]bool{
	"chat":   true,
	"search": true,
	"models": true,
	"usage":  true,
}

// ValidateEventPayload validates usage event payload fields before they
// reach the database. Invalid events are dead-lettered, never inserted.
func ValidateEventPayload(payload EventPayload) error {
	if payload.APIKeyID == "" {
		return fmt.Errorf("api_key_id is required")
	}
	if payload.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if payload.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if len(payload.Endpoint) > maxEndpointLength {
		return fmt.Errorf("endpoint too long")
	}
	if !knownEndpoints[payload.Endpoint] {
		return fmt.Errorf("unknown endpoint %q", payload.Endpoint)
	}
	if payload.StatusCode < 100 || payload.StatusCode > 599 {
		return fmt.Errorf("status_code out of range")
	}
	if payload.PromptTokens < 0 || payload.CompletionTokens < 0 {
		return fmt.Errorf("token counts must not be negative")
	}
	if payload.DurationMS < 0 || payload.DurationMS > maxDurationMS {
		return fmt.Errorf("duration_ms out of bounds")
	}
	if payload.RequestedAt <= 0 {
		return fmt.Errorf("requested_at must be set")
	}
	return nil
}
