//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/repository"
)

const (
	systemUsername = "system"
	systemEmail    = "system@dieai.local"
)

type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type modelsResponse struct {
	Models []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"models"`
}

type usageResponse struct {
	Windows []struct {
		Window      string `json:"window"`
		Requests    int64  `json:"requests"`
		TotalTokens int64  `json:"total_tokens"`
	} `json:"windows"`
}

func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("DIEAI_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	apiKey := bootstrapAPIKey(t, dbURL, model.TierUnlimited, model.ValidScopes)

	// Models: the shipped checkpoint is a placeholder, status must say so
	var models modelsResponse
	status := doJSON(t, http.MethodGet, baseURL+"/api/models", apiKey, nil, &models)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from models, got %d", status)
	}
	if len(models.Models) != 1 || models.Models[0].Status != "development" {
		t.Fatalf("unexpected models response: %+v", models)
	}

	// Key management accepts the API key itself, not only a session
	var keyList struct {
		Keys []struct {
			ID        string `json:"id"`
			KeyPrefix string `json:"key_prefix"`
		} `json:"keys"`
	}
	status = doJSON(t, http.MethodGet, baseURL+"/api/keys", apiKey, nil, &keyList)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from key-authenticated key list, got %d", status)
	}
	if len(keyList.Keys) == 0 {
		t.Fatal("key list should include the bootstrapped key")
	}

	// Chat: the knowledge responder answers arithmetic without the model
	chatBody := map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "What is 15 + 25?"}},
	}
	var chat chatResponse
	status = doJSON(t, http.MethodPost, baseURL+"/api/chat", apiKey, chatBody, &chat)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from chat, got %d", status)
	}
	if chat.Object != "chat.completion" {
		t.Fatalf("unexpected chat object: %q", chat.Object)
	}
	if len(chat.Choices) != 1 || !strings.Contains(chat.Choices[0].Message.Content, "40") {
		t.Fatalf("unexpected chat reply: %+v", chat.Choices)
	}
	if chat.Usage.TotalTokens == 0 {
		t.Fatalf("chat usage should report token counts")
	}

	// Usage: the async pipeline should record the chat request shortly
	waitForUsage(t, baseURL, apiKey)
}

func TestE2ERegisterLoginDashboard(t *testing.T) {
	baseURL := envOrDefault("DIEAI_BASE_URL", "http://localhost:8080")

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Timeout: 10 * time.Second, Jar: jar}

	username := fmt.Sprintf("e2e%d", time.Now().UnixNano())
	form := url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {"correct-horse-battery"},
	}

	resp, err := client.PostForm(baseURL+"/register", form)
	if err != nil {
		t.Skipf("server not available: %v", err)
	}
	defer resp.Body.Close()

	// The client follows the 303 to /dashboard
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after registration redirect, got %d", resp.StatusCode)
	}
	if resp.Request.URL.Path != "/dashboard" {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected to land on /dashboard, got %s: %s", resp.Request.URL.Path, body)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), username) {
		t.Errorf("dashboard should greet the user")
	}

	// Session key management: create then revoke a key via the dashboard API
	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	status := doJSONClient(t, client, http.MethodPost, baseURL+"/api/keys", "",
		map[string]any{"name": "e2e"}, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from key create, got %d", status)
	}
	if !strings.HasPrefix(created.Key, "dieai_live_") {
		t.Errorf("unexpected key format: %q", created.Key)
	}

	req, _ := http.NewRequest(http.MethodDelete, baseURL+"/api/keys/"+created.ID, nil)
	revokeResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("revoke request: %v", err)
	}
	revokeResp.Body.Close()
	if revokeResp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from revoke, got %d", revokeResp.StatusCode)
	}
}

// TestE2ERateLimiting validates that rate limiting returns 429 with proper headers.
func TestE2ERateLimiting(t *testing.T) {
	baseURL := envOrDefault("DIEAI_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	// Default tier: chat endpoint bucket allows a burst of 5
	apiKey := bootstrapAPIKey(t, dbURL, model.TierDefault, []string{model.ScopeChat})

	client := &http.Client{Timeout: 10 * time.Second}
	chatBody, _ := json.Marshal(map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
	})

	var rateLimited bool
	var lastResp *http.Response

	for i := 0; i < 20; i++ {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/api/chat", bytes.NewReader(chatBody))
		if err != nil {
			t.Fatalf("create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited = true
			lastResp = resp
			break
		}
		resp.Body.Close()
	}

	if !rateLimited {
		t.Fatalf("expected 429 rate limit after burst, but never hit rate limit")
	}

	defer lastResp.Body.Close()

	if lastResp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("missing X-RateLimit-Limit header on 429 response")
	}
	if got := lastResp.Header.Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("expected X-RateLimit-Remaining=0, got %s", got)
	}
	if lastResp.Header.Get("Retry-After") == "" {
		t.Log("Retry-After header not present (optional but recommended)")
	}

	var errResp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(lastResp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode 429 response: %v", err)
	}
	if errResp.Error.Code != "RATE_LIMITED" {
		t.Errorf("unexpected error code on 429: %q", errResp.Error.Code)
	}
}

// TestE2ENoSecretsInResponses validates that API keys are not leaked in responses.
func TestE2ENoSecretsInResponses(t *testing.T) {
	baseURL := envOrDefault("DIEAI_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	apiKey := bootstrapAPIKey(t, dbURL, model.TierUnlimited, model.ValidScopes)

	client := &http.Client{Timeout: 10 * time.Second}

	// A bogus key must never be echoed back in error responses
	fakeKey := "dieai_live_abc123_" + strings.Repeat("x", 32)
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/models", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+fakeKey)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if strings.Contains(string(body), fakeKey) {
		t.Error("SECURITY: Error response leaked Authorization header value")
	}

	// A valid key must never appear in successful responses
	req2, err := http.NewRequest(http.MethodGet, baseURL+"/api/usage", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req2.Header.Set("Authorization", "Bearer "+apiKey)

	resp2, err := client.Do(req2)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if strings.Contains(string(body2), apiKey) {
		t.Error("SECURITY: Successful response echoed back the API key")
	}
}

// ============================================================================
// Helpers
// ============================================================================

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// bootstrapAPIKey provisions a key directly in the database, bypassing
// the dashboard flow.
func bootstrapAPIKey(t *testing.T, dbURL, tier string, scopes []string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer repo.Close()

	user, err := ensureUser(ctx, repo, systemUsername, systemEmail)
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	generated, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		t.Fatalf("generate api key: %v", err)
	}

	apiKey := &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        user.ID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          "e2e-" + tier,
		CreatedAt:     time.Now().UTC(),
	}

	if err := repo.CreateAPIKey(ctx, apiKey); err != nil {
		t.Fatalf("create api key: %v", err)
	}

	return generated.Plaintext
}

func ensureUser(ctx context.Context, repo *repository.Repository, username, email string) (*model.User, error) {
	if existing, err := repo.GetUserByUsername(ctx, username); err == nil {
		if existing.Email != email {
			return nil, fmt.Errorf("user %s exists with different email: %s", username, existing.Email)
		}
		return existing, nil
	}

	password := make([]byte, 32)
	if _, err := rand.Read(password); err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := auth.HashPassword(base64.RawURLEncoding.EncodeToString(password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// waitForUsage polls /api/usage until the async pipeline records a request.
func waitForUsage(t *testing.T, baseURL, apiKey string) {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		var resp usageResponse
		status := doJSON(t, http.MethodGet, baseURL+"/api/usage", apiKey, nil, &resp)
		if status == http.StatusOK {
			for _, w := range resp.Windows {
				if w.Requests >= 1 {
					return
				}
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	t.Fatalf("usage pipeline did not record requests in time")
}

func doJSON(t *testing.T, method, url, apiKey string, body any, out any) int {
	t.Helper()
	client := &http.Client{Timeout: 15 * time.Second}
	return doRequest(t, client, method, url, apiKey, body, out)
}

func doJSONClient(t *testing.T, client *http.Client, method, url, apiKey string, body any, out any) int {
	t.Helper()
	return doRequest(t, client, method, url, apiKey, body, out)
}

func doRequest(t *testing.T, client *http.Client, method, url, apiKey string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && resp.ContentLength != 0 {
			t.Fatalf("decode response: %v", err)
		}
	}

	return resp.StatusCode
}
