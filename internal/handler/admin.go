package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/repository"
)

// AdminUserLookup defines the interface for user lookup operations.
type AdminUserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeactivateUser(ctx context.Context, id string) error
}

// AdminKeyLister defines the interface for listing API keys.
type AdminKeyLister interface {
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// AdminHandler provides admin-only endpoints for support and operations.
type AdminHandler struct {
	userRepo AdminUserLookup
	keyRepo  AdminKeyLister
	logger   *slog.Logger
	version  string
}

// NewAdminHandler creates a new AdminHandler. version is the build
// version reported by the stats endpoint.
func NewAdminHandler(userRepo AdminUserLookup, keyRepo AdminKeyLister, logger *slog.Logger, version string) *AdminHandler {
	return &AdminHandler{
		userRepo: userRepo,
		keyRepo:  keyRepo,
		logger:   logger,
		version:  version,
	}
}

// UserLookupResponse represents the response for user lookup.
type UserLookupResponse struct {
	User model.UserResponse     `json:"user"`
	Keys []model.APIKeyResponse `json:"keys"`
}

// LookupUser handles GET /api/admin/users?q={username|email}
// Looks up an account by username or email and lists its keys.
func (h *AdminHandler) LookupUser(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "MISSING_QUERY", "query parameter 'q' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.lookupUser(ctx, query)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "No account matches the query")
			return
		}
		h.logger.Error("admin user lookup failed",
			"error", err,
			"query", truncateForLog(query, 100),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "User lookup failed")
		return
	}

	keys, err := h.keyRepo.ListAPIKeysByUserID(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed to list API keys",
			"error", err,
			"user_id", user.ID,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys")
		return
	}

	response := UserLookupResponse{
		User: user.ToResponse(),
		Keys: make([]model.APIKeyResponse, 0, len(keys)),
	}
	for _, key := range keys {
		response.Keys = append(response.Keys, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, response)
}

// lookupUser resolves a query as email when it contains '@', else username.
func (h *AdminHandler) lookupUser(ctx context.Context, query string) (*model.User, error) {
	if strings.Contains(query, "@") {
		return h.userRepo.GetUserByEmail(ctx, query)
	}
	return h.userRepo.GetUserByUsername(ctx, query)
}

// DeactivateUser handles POST /api/admin/users/{user_id}/deactivate
// Deactivated accounts cannot log in and their keys stop authenticating.
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "User ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.userRepo.DeactivateUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found or already deactivated")
			return
		}
		h.logger.Error("failed to deactivate user",
			"error", err,
			"user_id", userID,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to deactivate user")
		return
	}

	h.logger.Info("user deactivated", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// Stats handles GET /api/admin/stats
// Returns basic operational statistics.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{
		Timestamp: time.Now().UTC(),
		Service:   "dieai",
		Version:   h.version,
	}
	writeJSON(w, http.StatusOK, response)
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
