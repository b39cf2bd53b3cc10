// Package main is the entrypoint for the DieAI API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dieai/dieai/internal/cache"
	"github.com/dieai/dieai/internal/chat"
	"github.com/dieai/dieai/internal/config"
	"github.com/dieai/dieai/internal/handler"
	"github.com/dieai/dieai/internal/knowledge"
	"github.com/dieai/dieai/internal/metrics"
	"github.com/dieai/dieai/internal/middleware"
	"github.com/dieai/dieai/internal/repository"
	"github.com/dieai/dieai/internal/search"
	"github.com/dieai/dieai/internal/server"
	"github.com/dieai/dieai/internal/usage"
	"github.com/dieai/dieai/internal/web"
)

// version is stamped at build time:
//
//	go build -ldflags "-X main.version=$(git describe --tags)"
var version = "dev"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	metricsRecorder := metrics.NewInMemory()
	usageRepo := repository.NewUsageRepository(repo)

	// Model checkpoint. The shipped file is an empty placeholder, so the
	// model stays in development status and never serves completions.
	checkpoint, err := chat.LoadCheckpoint(cfg.ModelCheckpointPath)
	if err != nil {
		logger.Error("failed to inspect model checkpoint",
			slog.String("path", cfg.ModelCheckpointPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("model checkpoint inspected",
		slog.String("path", checkpoint.Path),
		slog.String("status", checkpoint.Status()),
	)

	// Search provider chain in fallback order. Keyed providers are only
	// registered when credentials are configured.
	var providers []search.Provider
	if cfg.GoogleSearchConfigured() {
		providers = append(providers, search.NewGoogleProvider(cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID, cfg.SearchTimeout))
	}
	if cfg.BingSearchConfigured() {
		providers = append(providers, search.NewBingProvider(cfg.BingSearchAPIKey, cfg.SearchTimeout))
	}
	providers = append(providers,
		search.NewDuckDuckGoProvider(cfg.SearchTimeout),
		search.NewWikipediaProvider(cfg.SearchTimeout),
	)
	searchService := search.NewService(search.Options{
		Providers:   providers,
		Cache:       cacheClient,
		CacheTTL:    cfg.SearchCacheTTL,
		ProviderRPS: cfg.SearchProviderRPS,
		Logger:      logger,
		Metrics:     metricsRecorder,
	})

	chatService := chat.NewService(checkpoint, knowledge.NewResponder(), searchService, logger, metricsRecorder)

	// Usage pipeline: handlers publish to a Redis stream, the worker
	// drains it into Postgres in batches.
	publisher := usage.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	worker := usage.NewWorker(cacheClient.Client(), usageRepo, logger, usage.NewConsumerID(), metricsRecorder)

	workerCtx, stopWorker := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil {
			logger.Error("usage worker stopped", slog.String("error", err.Error()))
		}
	}()

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient, checkpoint)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo, cacheClient)
	chatHandler := handler.NewChatHandler(logger, chatService, publisher)
	searchHandler := handler.NewSearchHandler(logger, searchService, publisher)
	modelsHandler := handler.NewModelsHandler(checkpoint, publisher)
	usageHandler := handler.NewUsageHandler(logger, usageRepo, publisher)
	adminHandler := handler.NewAdminHandler(repo, repo, logger, version)
	accountHandler := handler.NewAccountHandler(logger, repo, cacheClient, cfg.SessionSecure)
	webHandler := web.New(logger, repo, usageRepo, chatService, cacheClient)

	r := setupRouter(routerDeps{
		handler: h,
		health:  healthHandler,
		metrics: metricsHandler,
		apiKeys: apiKeyHandler,
		chat:    chatHandler,
		search:  searchHandler,
		models:  modelsHandler,
		usage:   usageHandler,
		admin:   adminHandler,
		account: accountHandler,
		web:     webHandler,
		repo:    repo,
		cache:   cacheClient,
		cfg:     cfg,
		logger:  logger,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Drain in-flight usage batches after the HTTP server stops.
	srv.OnShutdown("usage-worker", func(ctx context.Context) error {
		stopWorker()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"model_status", checkpoint.Status(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	handler *handler.Handler
	health  *handler.HealthHandler
	metrics *handler.MetricsHandler
	apiKeys *handler.APIKeyHandler
	chat    *handler.ChatHandler
	search  *handler.SearchHandler
	models  *handler.ModelsHandler
	usage   *handler.UsageHandler
	admin   *handler.AdminHandler
	account *handler.AccountHandler
	web     *web.Handler
	repo    *repository.Repository
	cache   *cache.Cache
	cfg     *config.Config
	logger  *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	// Health and observability endpoints (no auth required)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:     d.logger,
		Repository: d.repo,
		Cache:      d.cache,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:     d.logger,
		Cache:      d.cache,
		APIEnabled: d.cfg.RateLimitAPIEnabled,
		WebEnabled: d.cfg.RateLimitWebEnabled,
		WebRPS:     d.cfg.RateLimitWebRPS,
		WebBurst:   d.cfg.RateLimitWebBurst,
	}

	securityCfg := middleware.SecurityConfig{
		IsDevelopment:      d.cfg.IsDevelopment(),
		AllowedOrigins:     d.cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: d.cfg.MaxRequestBodySize,
	}

	// API routes (key-authenticated)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Security(securityCfg))
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: d.cfg.GetCORSAllowedOrigins(),
		}))

		r.Get("/", d.handler.APIRoot)

		// Key management accepts either identity: a browser session
		// (dashboard) or an existing API key (automation).
		r.Route("/keys", func(r chi.Router) {
			r.Use(middleware.AuthOptional(authCfg))
			r.Use(middleware.Session(middleware.SessionConfig{
				Logger: d.logger,
				Cache:  d.cache,
				Secure: d.cfg.SessionSecure,
			}))
			r.Use(middleware.RequireIdentity())
			r.Post("/", d.apiKeys.CreateAPIKey)
			r.Get("/", d.apiKeys.ListAPIKeys)
			r.Delete("/{key_id}", d.apiKeys.RevokeAPIKey)
			r.Post("/{key_id}/rotate", d.apiKeys.RotateAPIKey)
		})

		// Model endpoints authenticate with an API key.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			r.With(middleware.RequireChat(), middleware.RateLimitEndpoint(rateLimitCfg, "chat")).
				Post("/chat", d.chat.Complete)
			r.With(middleware.RequireChat(), middleware.RateLimitEndpoint(rateLimitCfg, "chat")).
				Post("/chat/batch", d.chat.CompleteBatch)
			r.With(middleware.RequireSearch(), middleware.RateLimitEndpoint(rateLimitCfg, "search")).
				Post("/search", d.search.Search)
			r.With(middleware.RequireRead()).Get("/models", d.models.List)
			r.With(middleware.RequireRead()).Get("/usage", d.usage.Summary)

			// Admin surface for support and operations
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/users", d.admin.LookupUser)
				r.Post("/users/{user_id}/deactivate", d.admin.DeactivateUser)
				r.Get("/stats", d.admin.Stats)
			})
		})
	})

	// Web routes (session-authenticated pages and auth forms)
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHTML(securityCfg))
		r.Use(middleware.Session(middleware.SessionConfig{
			Logger: d.logger,
			Cache:  d.cache,
			Secure: d.cfg.SessionSecure,
		}))

		r.Get("/", d.web.Index)
		r.Get("/login", d.web.LoginPage)
		r.Get("/register", d.web.RegisterPage)

		r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/login", d.account.Login)
		r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/register", d.account.Register)
		r.Post("/logout", d.account.Logout)

		r.With(middleware.RequireSession()).Get("/dashboard", d.web.Dashboard)
		r.With(middleware.RequireSession()).Post("/dashboard/keys", d.web.KeyCreate)
		r.With(middleware.RequireSession()).Post("/dashboard/keys/{key_id}/revoke", d.web.KeyRevoke)
		r.With(middleware.RequireSession()).Get("/chat", d.web.ChatPage)
		r.With(middleware.RequireSession()).Post("/chat", d.web.ChatSubmit)
	})

	// 404 and 405 handlers
	r.NotFound(d.handler.NotFound)
	r.MethodNotAllowed(d.handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
