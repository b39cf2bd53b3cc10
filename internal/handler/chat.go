package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/chat"
	"github.com/dieai/dieai/internal/middleware"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/usage"
)

// UsagePublisher records API usage asynchronously.
type UsagePublisher interface {
	PublishAsync(event usage.EventPayload)
}

// ChatHandler serves the chat completion endpoints.
type ChatHandler struct {
	logger    *slog.Logger
	service   *chat.Service
	publisher UsagePublisher
}

// NewChatHandler creates a new ChatHandler. publisher may be nil, which
// disables usage logging (tests).
func NewChatHandler(logger *slog.Logger, service *chat.Service, publisher UsagePublisher) *ChatHandler {
	return &ChatHandler{
		logger:    logger,
		service:   service,
		publisher: publisher,
	}
}

// Complete handles POST /api/chat.
func (h *ChatHandler) Complete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	for _, msg := range req.Messages {
		if err := middleware.ValidateChatMessage(msg.Content); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	resp, err := h.service.Complete(r.Context(), req)
	if err != nil {
		status, code := chatErrorStatus(err)
		h.publishUsage(r, "chat", 0, 0, status, start)
		writeError(w, status, code, err.Error())
		return
	}

	h.publishUsage(r, "chat", resp.Usage.PromptTokens, resp.Usage.CompletionTokens, http.StatusOK, start)
	writeJSON(w, http.StatusOK, resp)
}

// CompleteBatch handles POST /api/chat/batch.
func (h *ChatHandler) CompleteBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req model.BatchChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	for _, msg := range req.Messages {
		if err := middleware.ValidateChatMessage(msg); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	resp, err := h.service.CompleteBatch(r.Context(), req)
	if err != nil {
		status, code := chatErrorStatus(err)
		h.publishUsage(r, "chat", 0, 0, status, start)
		writeError(w, status, code, err.Error())
		return
	}

	// Token accounting for batches sums the per-item counts
	promptTokens, completionTokens := 0, 0
	for _, item := range resp.Responses {
		promptTokens += chat.CountTokens(item.Message)
		completionTokens += chat.CountTokens(item.Response)
	}

	h.publishUsage(r, "chat", promptTokens, completionTokens, http.StatusOK, start)
	writeJSON(w, http.StatusOK, resp)
}

// chatErrorStatus maps chat service errors to HTTP status and error code.
func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrNoMessages), errors.Is(err, chat.ErrBlankMessage):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, chat.ErrUnknownModel):
		return http.StatusBadRequest, "UNKNOWN_MODEL"
	case errors.Is(err, chat.ErrBatchTooLarge):
		return http.StatusBadRequest, "BATCH_TOO_LARGE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// publishUsage emits a usage event for an authenticated request.
func (h *ChatHandler) publishUsage(r *http.Request, endpoint string, promptTokens, completionTokens, status int, start time.Time) {
	publishUsageEvent(h.publisher, r, endpoint, promptTokens, completionTokens, status, start)
}

// publishUsageEvent is shared by all API handlers. It is a no-op when the
// request carries no auth context or the publisher is nil.
func publishUsageEvent(publisher UsagePublisher, r *http.Request, endpoint string, promptTokens, completionTokens, status int, start time.Time) {
	if publisher == nil {
		return
	}
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		return
	}

	publisher.PublishAsync(usage.EventPayload{
		APIKeyID:         authCtx.KeyID,
		UserID:           authCtx.UserID,
		Endpoint:         endpoint,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		StatusCode:       status,
		DurationMS:       int(time.Since(start).Milliseconds()),
		RequestedAt:      start.UnixMilli(),
	})
}
