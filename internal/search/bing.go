package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dieai/dieai/internal/model"
)

const bingBaseURL = "https://api.bing.microsoft.com/v7.0/search"

// BingProvider queries the Bing Web Search API.
type BingProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewBingProvider creates a Bing Web Search provider.
func NewBingProvider(apiKey string, timeout time.Duration) *BingProvider {
	return &BingProvider{
		apiKey:  apiKey,
		baseURL: bingBaseURL,
		client:  newHTTPClient(timeout),
	}
}

// Name implements Provider.
func (p *BingProvider) Name() string {
	return "bing"
}

// bingResponse is the subset of the Bing response we use.
type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// Search implements Provider.
func (p *BingProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	maxResults = clampResults(maxResults)

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", maxResults))
	params.Set("offset", "0")

	headers := map[string]string{
		"Ocp-Apim-Subscription-Key": p.apiKey,
	}

	body, err := doGET(ctx, p.client, p.baseURL+"?"+params.Encode(), headers)
	if err != nil {
		return nil, err
	}

	var parsed bingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode bing response: %w", err)
	}

	results := make([]model.SearchResult, 0, len(parsed.WebPages.Value))
	for _, item := range parsed.WebPages.Value {
		if len(results) >= maxResults {
			break
		}
		results = append(results, model.SearchResult{
			Title:   item.Name,
			URL:     item.URL,
			Snippet: item.Snippet,
			Source:  p.Name(),
		})
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}
