// Package chat orchestrates the response pipeline behind POST /api/chat:
// the placeholder transformer, the rule-based knowledge responder, web
// search synthesis and canned fallbacks.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dieai/dieai/internal/knowledge"
	"github.com/dieai/dieai/internal/metrics"
	"github.com/dieai/dieai/internal/model"
)

// Service errors.
var (
	ErrNoMessages    = errors.New("messages must not be empty")
	ErrBlankMessage  = errors.New("message content must not be blank")
	ErrUnknownModel  = errors.New("unknown model")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)

// MaxBatchSize bounds POST /api/chat/batch.
const MaxBatchSize = 10

// Response sources for metrics.
const (
	sourceKnowledge = "knowledge"
	sourceSearch    = "search"
	sourceFallback  = "fallback"
)

// Searcher is the subset of the search service the chat pipeline needs.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error)
}

// Service generates chat completions.
type Service struct {
	checkpoint *Checkpoint
	responder  *knowledge.Responder
	searcher   Searcher
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// NewService creates a chat Service. searcher may be nil, in which case
// the pipeline skips web search entirely.
func NewService(checkpoint *Checkpoint, responder *knowledge.Responder, searcher Searcher, logger *slog.Logger, recorder metrics.Recorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Service{
		checkpoint: checkpoint,
		responder:  responder,
		searcher:   searcher,
		logger:     logger,
		metrics:    recorder,
	}
}

// Checkpoint returns the loaded model checkpoint.
func (s *Service) Checkpoint() *Checkpoint {
	return s.checkpoint
}

// Complete generates a chat completion for a conversation.
func (s *Service) Complete(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	if req.Model != "" && req.Model != model.ModelID {
		return nil, ErrUnknownModel
	}

	query := lastUserMessage(req.Messages)
	if strings.TrimSpace(query) == "" {
		return nil, ErrBlankMessage
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveChatDuration(time.Since(start))
	}()

	content, source := s.respond(ctx, query, req.SearchEnabled())
	s.metrics.IncChatRequest(source)

	return &model.ChatResponse{
		ID:      "chatcmpl-" + ulid.Make().String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model.ModelID,
		Choices: []model.ChatChoice{
			{
				Index:        0,
				Message:      model.ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: usageFor(req.Messages, content),
	}, nil
}

// CompleteBatch answers up to MaxBatchSize independent messages.
// Individual failures don't abort the batch.
func (s *Service) CompleteBatch(ctx context.Context, req model.BatchChatRequest) (*model.BatchChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	if len(req.Messages) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	items := make([]model.BatchChatItem, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg) == "" {
			items = append(items, model.BatchChatItem{
				Message: msg,
				Error:   ErrBlankMessage.Error(),
				Status:  "error",
			})
			continue
		}

		content, source := s.respond(ctx, msg, req.SearchEnabled())
		s.metrics.IncChatRequest(source)
		items = append(items, model.BatchChatItem{
			Message:  msg,
			Response: content,
			Status:   "success",
		})
	}

	return &model.BatchChatResponse{
		Responses: items,
		Model:     model.ModelID,
		BatchSize: len(items),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// respond runs the pipeline for a single query and reports which stage
// produced the answer.
func (s *Service) respond(ctx context.Context, query string, searchEnabled bool) (string, string) {
	// Stage 1: transformer. The shipped checkpoint has no weights, so
	// this never produces output.
	if s.checkpoint != nil {
		if generated, err := s.checkpoint.Generate(query); err == nil {
			return generated, "model"
		}
	}

	// Stage 2: rule-based knowledge responder
	if s.responder != nil {
		if answer, ok := s.responder.Answer(query); ok {
			return answer, sourceKnowledge
		}
	}

	// Stage 3: web search synthesis
	analysis := analyzeQuery(query)
	if searchEnabled && s.searcher != nil && (analysis.needsSearch || analysis.kind != kindGeneral) {
		searchQuery := rewriteSearchQuery(query, analysis)
		resp, err := s.searcher.Search(ctx, model.SearchRequest{Query: searchQuery, MaxResults: 6})
		if err != nil {
			s.logger.Warn("chat search failed", "error", err)
		} else if answer := synthesizeResponse(query, resp.Results); answer != "" {
			return answer, sourceSearch
		}
	}

	// Stage 4: canned fallback
	return fallbackResponse(query), sourceFallback
}

// lastUserMessage returns the content of the most recent user turn,
// falling back to the final message of any role.
func lastUserMessage(messages []model.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return messages[len(messages)-1].Content
}
