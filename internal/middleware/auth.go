package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/cache"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/repository"
)

const (
	// minAuthDuration is the minimum time to spend on auth to prevent timing attacks.
	minAuthDuration = 200 * time.Millisecond
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Repository *repository.Repository
	Cache      *cache.Cache
}

// resolveAPIKey verifies the API key on the request, if any.
// Returns the auth context on success; otherwise reason explains the
// failure ("missing_key", "invalid_format", "key_revoked", "invalid_key",
// "database_error").
func resolveAPIKey(cfg AuthConfig, r *http.Request) (authCtx *model.AuthContext, cacheHit bool, reason string) {
	key := extractAPIKey(r)
	if key == "" {
		return nil, false, "missing_key"
	}

	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, false, "invalid_format"
	}

	// Check cache first
	cacheKey := auth.QuickHash(key)
	cached, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey)

	if cached != nil && cfg.Cache.IsKeyRevoked(r.Context(), cached.KeyID) {
		// Revoked since the context was cached
		_ = cfg.Cache.DeleteAuthContext(r.Context(), cacheKey)
		return nil, false, "key_revoked"
	}

	if cached != nil {
		return cached, true, ""
	}

	// Cache miss - lookup by prefix
	keys, err := cfg.Repository.GetAPIKeysByPrefix(r.Context(), parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("database error during auth",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil, false, "database_error"
	}

	// Verify against each candidate key (handles prefix collisions)
	var matchedKey *model.APIKey
	for _, k := range keys {
		match, err := auth.VerifyPassword(key, k.KeyHash)
		if err != nil {
			continue
		}
		if match {
			matchedKey = k
			break
		}
	}

	if matchedKey == nil {
		return nil, false, "invalid_key"
	}

	authCtx = &model.AuthContext{
		KeyID:         matchedKey.ID,
		KeyPrefix:     matchedKey.KeyPrefix,
		UserID:        matchedKey.UserID,
		Scopes:        matchedKey.Scopes,
		RateLimitTier: matchedKey.RateLimitTier,
	}

	// Cache the result
	_ = cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx)

	// Update last_used_at asynchronously
	go func() {
		_ = cfg.Repository.UpdateAPIKeyLastUsed(r.Context(), matchedKey.ID)
	}()

	return authCtx, false, ""
}

// Auth returns a middleware that authenticates API requests.
// It extracts the API key from the Authorization header,
// verifies it, and injects the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			// Ensure consistent timing regardless of outcome
			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			authCtx, cacheHit, reason := resolveAPIKey(cfg, r)
			if authCtx == nil {
				logAuthFailure(cfg.Logger, r, reason)
				writeAuthError(w)
				return
			}

			logAuthSuccess(cfg.Logger, r, authCtx, cacheHit)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthOptional returns a middleware that authenticates an API key when
// one is presented but lets keyless requests pass through untouched.
// A presented key that fails verification is still rejected; only the
// absence of a key is tolerated. Used on routes that also accept a
// browser session, combined with RequireIdentity.
func AuthOptional(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if extractAPIKey(r) == "" {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			authCtx, cacheHit, reason := resolveAPIKey(cfg, r)
			if authCtx == nil {
				logAuthFailure(cfg.Logger, r, reason)
				writeAuthError(w)
				return
			}

			logAuthSuccess(cfg.Logger, r, authCtx, cacheHit)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity returns middleware that rejects requests carrying
// neither an authenticated API key nor a browser session. Must be
// applied after AuthOptional and Session.
func RequireIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.UserIDFromContext(r.Context()) == "" {
				writeAuthError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

func logAuthSuccess(logger *slog.Logger, r *http.Request, authCtx *model.AuthContext, cacheHit bool) {
	logger.Info("authentication successful",
		slog.String("key_id", authCtx.KeyID),
		slog.String("key_prefix", authCtx.KeyPrefix),
		slog.String("user_id", authCtx.UserID),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Bool("cache_hit", cacheHit),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractAPIKey extracts the API key from the request.
// Supports both "Authorization: Bearer <key>" and "X-API-Key: <key>" headers.
func extractAPIKey(r *http.Request) string {
	// Try Authorization header first
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	// Fall back to X-API-Key header
	return r.Header.Get("X-API-Key")
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing API key"}}`))
}
