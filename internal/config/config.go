// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor
// principles; a .env file is honored in development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Browser sessions
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionSecure bool          `env:"SESSION_SECURE" envDefault:"false"`

	// Rate limiting
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitWebEnabled bool `env:"RATE_LIMIT_WEB_ENABLED" envDefault:"true"`
	RateLimitWebRPS     int  `env:"RATE_LIMIT_WEB_RPS" envDefault:"10"`
	RateLimitWebBurst   int  `env:"RATE_LIMIT_WEB_BURST" envDefault:"20"`

	// Search providers. Providers with no credentials are skipped;
	// DuckDuckGo and Wikipedia need none.
	GoogleSearchAPIKey   string `env:"GOOGLE_SEARCH_API_KEY" envDefault:""`
	GoogleSearchEngineID string `env:"GOOGLE_SEARCH_ENGINE_ID" envDefault:""`
	BingSearchAPIKey     string `env:"BING_SEARCH_API_KEY" envDefault:""`

	// Search behavior
	SearchTimeout     time.Duration `env:"SEARCH_TIMEOUT" envDefault:"10s"`
	SearchCacheTTL    time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"1h"`
	SearchMaxResults  int           `env:"SEARCH_MAX_RESULTS" envDefault:"10"`
	SearchProviderRPS float64       `env:"SEARCH_PROVIDER_RPS" envDefault:"1"`

	// Model checkpoint. The shipped checkpoint is an empty placeholder;
	// the loader reports "development" status until a real one appears.
	ModelCheckpointPath string `env:"MODEL_CHECKPOINT_PATH" envDefault:"checkpoints/dieai.ckpt"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GoogleSearchConfigured reports whether Google Custom Search can be used.
func (c *Config) GoogleSearchConfigured() bool {
	return c.GoogleSearchAPIKey != "" && c.GoogleSearchEngineID != ""
}

// BingSearchConfigured reports whether the Bing Web Search API can be used.
func (c *Config) BingSearchConfigured() bool {
	return c.BingSearchAPIKey != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// A .env file in the working directory is loaded first if present.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars always win.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
