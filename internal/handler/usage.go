package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/repository"
)

// usageWindows are the trailing windows reported by GET /api/usage.
var usageWindows = []struct {
	name string
	span time.Duration
}{
	{"24h", 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
	{"30d", 30 * 24 * time.Hour},
}

// UsageHandler serves the usage summary endpoint.
type UsageHandler struct {
	logger    *slog.Logger
	usageRepo *repository.UsageRepository
	publisher UsagePublisher
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(logger *slog.Logger, usageRepo *repository.UsageRepository, publisher UsagePublisher) *UsageHandler {
	return &UsageHandler{
		logger:    logger,
		usageRepo: usageRepo,
		publisher: publisher,
	}
}

// Summary handles GET /api/usage.
// Reports aggregated usage for the calling key over the standard windows,
// plus the key's current quota configuration.
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	windows, err := h.collectWindows(ctx, authCtx.KeyID, start)
	if err != nil {
		h.logger.Error("failed to aggregate usage",
			slog.String("key_id", authCtx.KeyID),
			slog.String("error", err.Error()),
		)
		publishUsageEvent(h.publisher, r, "usage", 0, 0, http.StatusInternalServerError, start)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to aggregate usage")
		return
	}

	tier := authCtx.RateLimitTier
	tierConfig, ok := model.TierConfigs[tier]
	if !ok {
		tier = model.TierDefault
		tierConfig = model.TierConfigs[model.TierDefault]
	}

	resp := model.UsageResponse{
		KeyID:     authCtx.KeyID,
		KeyPrefix: authCtx.KeyPrefix,
		Windows:   windows,
		RateLimits: model.RateLimitSnapshot{
			Tier:              tier,
			RequestsPerMinute: tierConfig.RequestsPerMinute,
			Burst:             tierConfig.Burst,
			EndpointLimits:    model.EndpointLimits,
		},
		GeneratedAt: start.UTC(),
	}

	publishUsageEvent(h.publisher, r, "usage", 0, 0, http.StatusOK, start)
	writeJSON(w, http.StatusOK, resp)
}

// collectWindows aggregates the key's usage for each standard window.
// Only the 24h window carries the per-endpoint breakdown; the longer
// windows report totals to keep the query cost down.
func (h *UsageHandler) collectWindows(ctx context.Context, keyID string, now time.Time) ([]model.UsageWindow, error) {
	windows := make([]model.UsageWindow, 0, len(usageWindows))

	for i, w := range usageWindows {
		window, err := h.usageRepo.GetKeyUsage(ctx, keyID, now.Add(-w.span))
		if err != nil {
			return nil, err
		}
		window.Window = w.name
		if i > 0 {
			window.ByEndpoint = nil
		}
		windows = append(windows, *window)
	}

	return windows, nil
}
