// Package web renders the HTML pages: landing, login, register,
// dashboard and chat. Templates are embedded so the binary ships
// self-contained.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/cache"
	"github.com/dieai/dieai/internal/chat"
	"github.com/dieai/dieai/internal/middleware"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	logger    *slog.Logger
	repo      *repository.Repository
	usageRepo *repository.UsageRepository
	chat      *chat.Service
	cache     *cache.Cache
	templates *template.Template
}

// New parses the embedded templates and returns a Handler.
// Template errors are programmer errors, so parse failures panic at startup.
func New(logger *slog.Logger, repo *repository.Repository, usageRepo *repository.UsageRepository, chatService *chat.Service, c *cache.Cache) *Handler {
	templates := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	return &Handler{
		logger:    logger,
		repo:      repo,
		usageRepo: usageRepo,
		chat:      chatService,
		cache:     c,
		templates: templates,
	}
}

// createdKey carries the plaintext of a freshly minted key to the
// dashboard render. It is never persisted.
type createdKey struct {
	Name      string
	Plaintext string
}

// pageData is the payload shared by all page templates.
type pageData struct {
	Title    string
	Username string
	Error    string

	// Dashboard
	Keys   []model.APIKeyResponse
	Usage  *model.UsageWindow
	NewKey *createdKey

	// Chat
	Prompt string
	Reply  string
}

func (h *Handler) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "DieAI"}
	if sess := auth.SessionFromContext(r.Context()); sess != nil {
		data.Username = sess.Username
	}
	h.render(w, "index.html", data)
}

// LoginPage handles GET /login.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, "login.html", pageData{
		Title: "Log in",
		Error: r.URL.Query().Get("error"),
	})
}

// RegisterPage handles GET /register.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if auth.SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, "register.html", pageData{
		Title: "Create account",
		Error: r.URL.Query().Get("error"),
	})
}

// Dashboard handles GET /dashboard. Requires a session.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := h.dashboardData(r, sess)
	data.Error = r.URL.Query().Get("error")
	h.render(w, "dashboard.html", data)
}

// dashboardData assembles the key list and usage summary for the
// dashboard. Load failures degrade to an emptier page, not an error.
func (h *Handler) dashboardData(r *http.Request, sess *model.Session) pageData {
	data := pageData{
		Title:    "Dashboard",
		Username: sess.Username,
	}

	keys, err := h.repo.ListAPIKeysByUserID(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("failed to list keys for dashboard",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
	}
	for _, key := range keys {
		if key.IsRevoked() {
			continue
		}
		data.Keys = append(data.Keys, key.ToResponse())
	}

	window, err := h.usageRepo.GetUserUsage(r.Context(), sess.UserID, time.Now().Add(-24*time.Hour))
	if err != nil {
		h.logger.Error("failed to load usage for dashboard",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
	} else {
		data.Usage = window
	}

	return data
}

// KeyCreate handles POST /dashboard/keys: the dashboard's create-key
// form. Renders the dashboard with the plaintext inline, since a
// redirect would lose it and it is shown only once.
func (h *Handler) KeyCreate(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	name := strings.TrimSpace(r.PostFormValue("name"))

	generated, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		h.logger.Error("failed to generate API key",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
		h.redirectDashboardError(w, r, "Could not create the key, please try again")
		return
	}

	apiKey := &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        sess.UserID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        model.DefaultScopes,
		RateLimitTier: model.TierDefault,
		Name:          name,
		CreatedAt:     time.Now(),
	}
	if err := h.repo.CreateAPIKey(r.Context(), apiKey); err != nil {
		h.logger.Error("failed to create API key",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
		h.redirectDashboardError(w, r, "Could not create the key, please try again")
		return
	}

	h.logger.Info("API key created",
		slog.String("key_id", apiKey.ID),
		slog.String("key_prefix", apiKey.KeyPrefix),
		slog.String("user_id", sess.UserID),
	)

	data := h.dashboardData(r, sess)
	data.NewKey = &createdKey{Name: name, Plaintext: generated.Plaintext}
	h.render(w, "dashboard.html", data)
}

// KeyRevoke handles POST /dashboard/keys/{key_id}/revoke.
func (h *Handler) KeyRevoke(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	keyID := chi.URLParam(r, "key_id")
	key, err := h.repo.GetAPIKeyByID(r.Context(), keyID)
	if err != nil || key.UserID != sess.UserID || key.IsRevoked() {
		h.redirectDashboardError(w, r, "Key not found")
		return
	}

	if err := h.repo.RevokeAPIKey(r.Context(), keyID); err != nil {
		h.logger.Error("failed to revoke API key",
			slog.String("key_id", keyID),
			slog.String("error", err.Error()),
		)
		h.redirectDashboardError(w, r, "Could not revoke the key, please try again")
		return
	}
	if err := h.cache.MarkKeyRevoked(r.Context(), keyID); err != nil {
		h.logger.Warn("failed to denylist revoked key", slog.String("error", err.Error()))
	}

	h.logger.Info("API key revoked",
		slog.String("key_id", keyID),
		slog.String("user_id", sess.UserID),
	)

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) redirectDashboardError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/dashboard?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// ChatPage handles GET /chat. Requires a session.
func (h *Handler) ChatPage(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.render(w, "chat.html", pageData{
		Title:    "Chat",
		Username: sess.Username,
	})
}

// ChatSubmit handles POST /chat: the session-authenticated chat form.
// Renders the chat page with the reply inline; API clients use /api/chat.
func (h *Handler) ChatSubmit(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
		return
	}

	prompt := r.PostFormValue("message")
	data := pageData{
		Title:    "Chat",
		Username: sess.Username,
		Prompt:   prompt,
	}

	if strings.TrimSpace(prompt) == "" {
		data.Error = "Type a message first"
		h.render(w, "chat.html", data)
		return
	}
	if err := middleware.ValidateChatMessage(prompt); err != nil {
		data.Error = err.Error()
		h.render(w, "chat.html", data)
		return
	}

	resp, err := h.chat.Complete(r.Context(), model.ChatRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		h.logger.Error("web chat completion failed",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
		data.Error = "Something went wrong, please try again"
		h.render(w, "chat.html", data)
		return
	}

	if len(resp.Choices) > 0 {
		data.Reply = resp.Choices[0].Message.Content
	}
	h.render(w, "chat.html", data)
}
