package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dieai/dieai/internal/model"
)

const duckduckgoBaseURL = "https://api.duckduckgo.com/"

// DuckDuckGoProvider queries the DuckDuckGo Instant Answer API.
// It needs no API key, so it is always in the fallback chain.
type DuckDuckGoProvider struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGoProvider creates a DuckDuckGo Instant Answer provider.
func NewDuckDuckGoProvider(timeout time.Duration) *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		baseURL: duckduckgoBaseURL,
		client:  newHTTPClient(timeout),
	}
}

// Name implements Provider.
func (p *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

// ddgResponse is the subset of the Instant Answer response we use.
// RelatedTopics mixes topic objects and category groups; only entries
// with Text are usable.
type ddgResponse struct {
	Heading       string `json:"Heading"`
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search implements Provider.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	maxResults = clampResults(maxResults)

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	body, err := doGET(ctx, p.client, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var parsed ddgResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode duckduckgo response: %w", err)
	}

	var results []model.SearchResult

	if parsed.Abstract != "" {
		title := parsed.Heading
		if title == "" {
			title = query
		}
		results = append(results, model.SearchResult{
			Title:   title,
			URL:     parsed.AbstractURL,
			Snippet: parsed.Abstract,
			Source:  p.Name(),
		})
	}

	for _, topic := range parsed.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		// Topic text reads "Title - description"
		title, _, _ := strings.Cut(topic.Text, " - ")
		results = append(results, model.SearchResult{
			Title:   title,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
			Source:  p.Name(),
		})
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}
