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

const wikipediaBaseURL = "https://en.wikipedia.org/w/api.php"

// WikipediaProvider queries the Wikipedia opensearch API.
// Like DuckDuckGo it needs no API key and serves as the last fallback.
type WikipediaProvider struct {
	baseURL string
	client  *http.Client
}

// NewWikipediaProvider creates a Wikipedia opensearch provider.
func NewWikipediaProvider(timeout time.Duration) *WikipediaProvider {
	return &WikipediaProvider{
		baseURL: wikipediaBaseURL,
		client:  newHTTPClient(timeout),
	}
}

// Name implements Provider.
func (p *WikipediaProvider) Name() string {
	return "wikipedia"
}

// Search implements Provider.
//
// The opensearch response is a positional JSON array:
// [query, titles[], descriptions[], urls[]].
func (p *WikipediaProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	maxResults = clampResults(maxResults)

	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", fmt.Sprintf("%d", maxResults))
	params.Set("format", "json")
	params.Set("redirects", "resolve")

	body, err := doGET(ctx, p.client, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var parsed []json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode wikipedia response: %w", err)
	}
	if len(parsed) < 4 {
		return nil, ErrNoResults
	}

	var titles, descriptions, urls []string
	if err := json.Unmarshal(parsed[1], &titles); err != nil {
		return nil, fmt.Errorf("decode wikipedia titles: %w", err)
	}
	if err := json.Unmarshal(parsed[2], &descriptions); err != nil {
		return nil, fmt.Errorf("decode wikipedia descriptions: %w", err)
	}
	if err := json.Unmarshal(parsed[3], &urls); err != nil {
		return nil, fmt.Errorf("decode wikipedia urls: %w", err)
	}

	results := make([]model.SearchResult, 0, len(titles))
	for i, title := range titles {
		if len(results) >= maxResults {
			break
		}
		result := model.SearchResult{
			Title:  title,
			Source: p.Name(),
		}
		if i < len(descriptions) {
			result.Snippet = descriptions[i]
		}
		if i < len(urls) {
			result.URL = urls[i]
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}
