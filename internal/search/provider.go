// Package search implements multi-provider web search with a fallback chain,
// per-provider request pacing and Redis result caching.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dieai/dieai/internal/model"
)

// Provider errors.
var (
	ErrNoResults       = errors.New("no results")
	ErrProviderFailure = errors.New("provider request failed")
)

const (
	// maxResponseSize caps provider response bodies at 1 MiB.
	maxResponseSize = 1 << 20

	// userAgent identifies us to the search providers.
	userAgent = "dieai-search/1.0"
)

// Provider is a single search backend in the fallback chain.
type Provider interface {
	// Name identifies the provider in results and logs.
	Name() string
	// Search returns up to maxResults results for the query.
	// An empty result set returns ErrNoResults.
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// newHTTPClient builds the client shared by the provider implementations.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

// doGET performs a GET request and returns the body, enforcing the
// response size cap and a 2xx status.
func doGET(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrProviderFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

// clampResults bounds maxResults to [1, 10].
func clampResults(maxResults int) int {
	if maxResults <= 0 || maxResults > 10 {
		return 10
	}
	return maxResults
}
