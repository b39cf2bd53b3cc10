// Package model defines domain entities for the application.
package model

import "time"

// ModelID is the identifier of the shipped (placeholder) transformer model.
const ModelID = "dieai-transformer"

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
// The shape follows the OpenAI chat completions convention.
type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	UseSearch   *bool         `json:"use_search,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// SearchEnabled reports whether web search may be used for this request.
// Search defaults to on, matching the product behavior.
func (r *ChatRequest) SearchEnabled() bool {
	if r.UseSearch == nil {
		return true
	}
	return *r.UseSearch
}

// ChatUsage reports approximate token accounting for a completion.
// Tokens are whitespace-delimited words; the placeholder model has no
// real tokenizer to consult.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatChoice is one generated completion.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// BatchChatRequest is the body of POST /api/chat/batch.
type BatchChatRequest struct {
	Messages  []string `json:"messages"`
	UseSearch *bool    `json:"use_search,omitempty"`
}

// SearchEnabled reports whether web search may be used for this batch.
func (r *BatchChatRequest) SearchEnabled() bool {
	if r.UseSearch == nil {
		return true
	}
	return *r.UseSearch
}

// BatchChatItem is one message/response pair in a batch result.
type BatchChatItem struct {
	Message  string `json:"message"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Status   string `json:"status"`
}

// BatchChatResponse is the body returned by POST /api/chat/batch.
type BatchChatResponse struct {
	Responses []BatchChatItem `json:"responses"`
	Model     string          `json:"model"`
	BatchSize int             `json:"batch_size"`
	CreatedAt time.Time       `json:"created_at"`
}

// ModelInfo describes an available model for GET /api/models.
type ModelInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	Capabilities  []string `json:"capabilities"`
	ContextLength int      `json:"context_length"`
	MaxTokens     int      `json:"max_tokens"`
	Pricing       Pricing  `json:"pricing"`
}

// Pricing is the per-token price of a model. Everything is free for now.
type Pricing struct {
	InputTokens  float64 `json:"input_tokens"`
	OutputTokens float64 `json:"output_tokens"`
}

// ModelsResponse is the body returned by GET /api/models.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}
