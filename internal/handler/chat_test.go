package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/chat"
	"github.com/dieai/dieai/internal/knowledge"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/usage"
)

// capturePublisher records usage events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []usage.EventPayload
}

func (p *capturePublisher) PublishAsync(event usage.EventPayload) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *capturePublisher) all() []usage.EventPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]usage.EventPayload(nil), p.events...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testChatService() *chat.Service {
	return chat.NewService(&chat.Checkpoint{}, knowledge.NewResponder(), nil, testLogger(), nil)
}

func testAuthContext() *model.AuthContext {
	return &model.AuthContext{
		KeyID:         "key123",
		KeyPrefix:     "abc123",
		UserID:        "user123",
		Scopes:        model.DefaultScopes,
		RateLimitTier: model.TierDefault,
	}
}

func authedRequest(method, target string, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.ContextWithAuth(context.Background(), testAuthContext())
	return req.WithContext(ctx)
}

func TestChatHandler_Complete(t *testing.T) {
	publisher := &capturePublisher{}
	h := NewChatHandler(testLogger(), testChatService(), publisher)

	body := `{"messages":[{"role":"user","content":"What is 15 + 25?"}]}`
	req := authedRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Object != "chat.completion" {
		t.Errorf("object = %q, want chat.completion", resp.Object)
	}
	if len(resp.Choices) != 1 || !strings.Contains(resp.Choices[0].Message.Content, "40") {
		t.Errorf("unexpected choices: %+v", resp.Choices)
	}

	events := publisher.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 usage event, got %d", len(events))
	}
	if events[0].Endpoint != "chat" || events[0].StatusCode != http.StatusOK {
		t.Errorf("unexpected usage event: %+v", events[0])
	}
	if events[0].APIKeyID != "key123" || events[0].UserID != "user123" {
		t.Errorf("usage event should carry auth identity: %+v", events[0])
	}
	if events[0].PromptTokens == 0 {
		t.Error("usage event should carry prompt token count")
	}
}

func TestChatHandler_Complete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "malformed json",
			body:     `{not json`,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_REQUEST",
		},
		{
			name:     "empty messages",
			body:     `{"messages":[]}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_REQUEST",
		},
		{
			name:     "unknown model",
			body:     `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "UNKNOWN_MODEL",
		},
		{
			name:     "oversized message",
			body:     `{"messages":[{"role":"user","content":"` + strings.Repeat("x", 9000) + `"}]}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_REQUEST",
		},
	}

	h := NewChatHandler(testLogger(), testChatService(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/chat", tt.body)
			rec := httptest.NewRecorder()

			h.Complete(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var envelope errorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if envelope.Error.Code != tt.wantErr {
				t.Errorf("error code = %q, want %q", envelope.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestChatHandler_CompleteBatch(t *testing.T) {
	publisher := &capturePublisher{}
	h := NewChatHandler(testLogger(), testChatService(), publisher)

	body := `{"messages":["What is 2 + 2?","hello"]}`
	req := authedRequest(http.MethodPost, "/api/chat/batch", body)
	rec := httptest.NewRecorder()

	h.CompleteBatch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.BatchChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.BatchSize != 2 {
		t.Errorf("batch_size = %d, want 2", resp.BatchSize)
	}
	for i, item := range resp.Responses {
		if item.Status != "success" {
			t.Errorf("item %d status = %q: %+v", i, item.Status, item)
		}
	}

	events := publisher.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 usage event for the batch, got %d", len(events))
	}
}

func TestChatHandler_CompleteBatch_TooLarge(t *testing.T) {
	h := NewChatHandler(testLogger(), testChatService(), nil)

	messages := make([]string, chat.MaxBatchSize+1)
	for i := range messages {
		messages[i] = `"hi"`
	}
	body := `{"messages":[` + strings.Join(messages, ",") + `]}`

	req := authedRequest(http.MethodPost, "/api/chat/batch", body)
	rec := httptest.NewRecorder()

	h.CompleteBatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var envelope errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if envelope.Error.Code != "BATCH_TOO_LARGE" {
		t.Errorf("error code = %q, want BATCH_TOO_LARGE", envelope.Error.Code)
	}
}

func TestChatHandler_NoPublisherWithoutAuth(t *testing.T) {
	publisher := &capturePublisher{}
	h := NewChatHandler(testLogger(), testChatService(), publisher)

	// No auth context on the request
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"hello"}]}`))
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(publisher.all()) != 0 {
		t.Error("no usage event should be published without auth context")
	}
}
