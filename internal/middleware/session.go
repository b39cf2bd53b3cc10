package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/cache"
)

const (
	// SessionCookieName is the browser session cookie.
	SessionCookieName = "dieai_session"

	// SessionTTL is the sliding session lifetime.
	SessionTTL = 24 * time.Hour
)

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger *slog.Logger
	Cache  *cache.Cache
	// Secure marks the cookie HTTPS-only. Off in development.
	Secure bool
}

// Session returns middleware that resolves the browser session cookie and,
// when valid, injects the session into the request context and refreshes
// its TTL. Requests without a valid session pass through unauthenticated;
// pages decide whether to redirect to login.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := cfg.Cache.GetSession(r.Context(), cookie.Value)
			if err != nil || sess == nil {
				// Expired or bogus cookie; clear it so the browser stops sending it
				ClearSessionCookie(w, cfg.Secure)
				next.ServeHTTP(w, r)
				return
			}

			// Sliding expiry: activity keeps the session alive
			if err := cfg.Cache.RefreshSession(r.Context(), cookie.Value, SessionTTL); err != nil {
				cfg.Logger.Warn("failed to refresh session",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}

			ctx := auth.ContextWithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession returns middleware that redirects unauthenticated browser
// requests to the login page. Must be applied after Session.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.SessionFromContext(r.Context()) == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie writes the session cookie after login or registration.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie. Used on logout.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
