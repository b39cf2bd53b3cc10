package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/dieai/dieai/internal/cache"
	"github.com/dieai/dieai/internal/metrics"
	"github.com/dieai/dieai/internal/model"
)

// Service errors.
var (
	ErrEmptyQuery = errors.New("query must not be empty")
	ErrAllFailed  = errors.New("all search providers failed")
)

// Service runs the provider fallback chain with result caching and
// per-provider request pacing.
type Service struct {
	providers []Provider
	limiters  map[string]*rate.Limiter
	cache     *cache.Cache
	cacheTTL  time.Duration
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// Options configures a search Service.
type Options struct {
	// Providers in fallback order; the first non-empty result wins.
	Providers []Provider
	// Cache backs the result and negative caches. May be nil in tests.
	Cache *cache.Cache
	// CacheTTL for cached results; zero uses the cache default.
	CacheTTL time.Duration
	// ProviderRPS is the sustained request rate allowed per provider.
	ProviderRPS float64
	Logger      *slog.Logger
	Metrics     metrics.Recorder
}

// NewService creates a search Service.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	if opts.ProviderRPS <= 0 {
		opts.ProviderRPS = 1
	}

	limiters := make(map[string]*rate.Limiter, len(opts.Providers))
	for _, p := range opts.Providers {
		limiters[p.Name()] = rate.NewLimiter(rate.Limit(opts.ProviderRPS), 1)
	}

	return &Service{
		providers: opts.Providers,
		limiters:  limiters,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Search answers a query via cache or the provider chain.
// The Cached flag in the response reports whether the results came
// from Redis without touching any provider.
func (s *Service) Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error) {
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}
	maxResults := clampResults(req.MaxResults)

	start := time.Now()
	defer func() {
		s.metrics.ObserveSearchDuration(time.Since(start))
	}()

	// Step 1: cache lookup
	if s.cache != nil {
		if results, err := s.cache.GetSearchResults(ctx, req.Query); err == nil {
			s.metrics.IncSearchCacheHit()
			return s.response(req.Query, results, maxResults, true), nil
		}
		s.metrics.IncSearchCacheMiss()

		if negative, _ := s.cache.IsNegativelyCached(ctx, req.Query); negative {
			return s.response(req.Query, nil, maxResults, true), nil
		}
	}

	// Step 2: provider chain, first non-empty result set wins
	results, err := s.runChain(ctx, req.Query, maxResults)
	if err != nil {
		return nil, err
	}

	// Step 3: backfill cache
	if s.cache != nil {
		if len(results) == 0 {
			if err := s.cache.SetNegativeCache(ctx, req.Query); err != nil {
				s.logger.Warn("negative cache write failed", "error", err)
			}
		} else if err := s.cache.SetSearchResults(ctx, req.Query, results, s.cacheTTL); err != nil {
			s.logger.Warn("search cache write failed", "error", err)
		}
	}

	return s.response(req.Query, results, maxResults, false), nil
}

// runChain tries each provider in order until one returns results.
// Provider errors (including ErrNoResults) fall through to the next;
// an exhausted chain with no successes at all is ErrAllFailed.
func (s *Service) runChain(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	var lastErr error
	sawEmpty := false

	for _, provider := range s.providers {
		if err := s.waitForProvider(ctx, provider.Name()); err != nil {
			return nil, err
		}

		results, err := provider.Search(ctx, query, maxResults)
		if err != nil {
			if errors.Is(err, ErrNoResults) {
				sawEmpty = true
				s.metrics.IncSearchProviderCall(provider.Name(), "success")
				continue
			}
			lastErr = err
			s.metrics.IncSearchProviderCall(provider.Name(), "failed")
			s.logger.Warn("search provider failed",
				"provider", provider.Name(),
				"error", err,
			)
			continue
		}

		s.metrics.IncSearchProviderCall(provider.Name(), "success")
		return results, nil
	}

	if sawEmpty {
		// At least one provider answered: the query genuinely has no results
		return nil, nil
	}
	if lastErr != nil {
		return nil, errors.Join(ErrAllFailed, lastErr)
	}
	return nil, nil
}

// waitForProvider blocks until the provider's pacing limiter admits a
// request or the context is cancelled.
func (s *Service) waitForProvider(ctx context.Context, name string) error {
	limiter, ok := s.limiters[name]
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

func (s *Service) response(query string, results []model.SearchResult, maxResults int, cached bool) *model.SearchResponse {
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	return &model.SearchResponse{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
		Cached:       cached,
	}
}
