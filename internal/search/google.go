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

const googleBaseURL = "https://www.googleapis.com/customsearch/v1"

// GoogleProvider queries the Google Custom Search JSON API.
type GoogleProvider struct {
	apiKey   string
	engineID string
	baseURL  string
	client   *http.Client
}

// NewGoogleProvider creates a Google Custom Search provider.
func NewGoogleProvider(apiKey, engineID string, timeout time.Duration) *GoogleProvider {
	return &GoogleProvider{
		apiKey:   apiKey,
		engineID: engineID,
		baseURL:  googleBaseURL,
		client:   newHTTPClient(timeout),
	}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string {
	return "google"
}

// googleResponse is the subset of the CSE response we use.
type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search implements Provider.
func (p *GoogleProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	maxResults = clampResults(maxResults)

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.engineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", maxResults))

	body, err := doGET(ctx, p.client, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode google response: %w", err)
	}

	results := make([]model.SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if len(results) >= maxResults {
			break
		}
		results = append(results, model.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
			Source:  p.Name(),
		})
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}
