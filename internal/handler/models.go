package handler

import (
	"net/http"
	"time"

	"github.com/dieai/dieai/internal/chat"
	"github.com/dieai/dieai/internal/model"
)

// ModelsHandler serves the model catalog endpoint.
type ModelsHandler struct {
	checkpoint *chat.Checkpoint
	publisher  UsagePublisher
}

// NewModelsHandler creates a new ModelsHandler.
func NewModelsHandler(checkpoint *chat.Checkpoint, publisher UsagePublisher) *ModelsHandler {
	return &ModelsHandler{
		checkpoint: checkpoint,
		publisher:  publisher,
	}
}

// List handles GET /api/models.
// There is exactly one model; its status reflects the loaded checkpoint.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	resp := model.ModelsResponse{
		Models: []model.ModelInfo{
			{
				ID:          model.ModelID,
				Name:        "DieAI Transformer",
				Description: "Custom transformer model with web search integration",
				Status:      h.checkpoint.Status(),
				Capabilities: []string{
					"chat",
					"web_search",
					"math",
					"science",
				},
				ContextLength: 2048,
				MaxTokens:     512,
				Pricing: model.Pricing{
					InputTokens:  0,
					OutputTokens: 0,
				},
			},
		},
	}

	publishUsageEvent(h.publisher, r, "models", 0, 0, http.StatusOK, start)
	writeJSON(w, http.StatusOK, resp)
}
