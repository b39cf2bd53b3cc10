package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dieai/dieai/internal/middleware"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/search"
)

// SearchHandler serves the web search endpoint.
type SearchHandler struct {
	logger    *slog.Logger
	service   *search.Service
	publisher UsagePublisher
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(logger *slog.Logger, service *search.Service, publisher UsagePublisher) *SearchHandler {
	return &SearchHandler{
		logger:    logger,
		service:   service,
		publisher: publisher,
	}
}

// Search handles POST /api/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := middleware.ValidateSearchQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			publishUsageEvent(h.publisher, r, "search", 0, 0, http.StatusBadRequest, start)
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		case errors.Is(err, search.ErrAllFailed):
			h.logger.Error("all search providers failed",
				slog.String("query", req.Query),
				slog.String("error", err.Error()),
			)
			publishUsageEvent(h.publisher, r, "search", 0, 0, http.StatusBadGateway, start)
			writeError(w, http.StatusBadGateway, "SEARCH_UNAVAILABLE", "All search providers are unavailable")
		default:
			publishUsageEvent(h.publisher, r, "search", 0, 0, http.StatusInternalServerError, start)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Search failed")
		}
		return
	}

	publishUsageEvent(h.publisher, r, "search", 0, 0, http.StatusOK, start)
	writeJSON(w, http.StatusOK, resp)
}
