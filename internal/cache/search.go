package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/model"
)

// Cache key prefixes and TTLs for search results.
const (
	searchKeyPrefix   = "search:"
	negCacheKeySuffix = ":neg"

	// DefaultSearchTTL is the TTL for cached search results.
	DefaultSearchTTL = time.Hour

	// NegativeCacheTTL is the TTL for queries that returned no results,
	// so empty queries don't hammer the provider chain.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// searchCacheKey derives a stable Redis key from a normalized query.
// Queries are lowercased and whitespace-collapsed before hashing so
// trivially different spellings share an entry.
func searchCacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return searchKeyPrefix + auth.QuickHash(normalized)
}

// GetSearchResults retrieves cached results for a query.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetSearchResults(ctx context.Context, query string) ([]model.SearchResult, error) {
	key := searchCacheKey(query)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, ErrCacheMiss
	}

	var results []model.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		// Corrupted entry - treat as miss
		return nil, ErrCacheMiss
	}

	return results, nil
}

// SetSearchResults caches results for a query with the given TTL.
// A zero TTL uses DefaultSearchTTL.
func (c *Cache) SetSearchResults(ctx context.Context, query string, results []model.SearchResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}

	key := searchCacheKey(query)

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal search results: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache search results: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a query is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, query string) (bool, error) {
	key := searchCacheKey(query) + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a query as having produced no results.
func (c *Cache) SetNegativeCache(ctx context.Context, query string) error {
	key := searchCacheKey(query) + negCacheKeySuffix

	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
