package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dieai/dieai/internal/auth"
	"github.com/dieai/dieai/internal/cache"
	"github.com/dieai/dieai/internal/middleware"
	"github.com/dieai/dieai/internal/model"
	"github.com/dieai/dieai/internal/repository"
)

// AccountHandler serves registration, login and logout for the web UI.
// These endpoints consume HTML form posts and answer with redirects;
// validation failures bounce back to the form with an error message.
type AccountHandler struct {
	logger     *slog.Logger
	repository *repository.Repository
	cache      *cache.Cache
	secure     bool
}

// NewAccountHandler creates a new AccountHandler. secure controls the
// session cookie's Secure flag and should be true outside development.
func NewAccountHandler(logger *slog.Logger, repo *repository.Repository, c *cache.Cache, secure bool) *AccountHandler {
	return &AccountHandler{
		logger:     logger,
		repository: repo,
		cache:      c,
		secure:     secure,
	}
}

// Register handles POST /register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/register", "Invalid form submission")
		return
	}

	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	if err := middleware.ValidateUsername(username); err != nil {
		redirectWithError(w, r, "/register", err.Error())
		return
	}
	if err := middleware.ValidateEmail(email); err != nil {
		redirectWithError(w, r, "/register", err.Error())
		return
	}
	if err := middleware.ValidatePassword(password); err != nil {
		redirectWithError(w, r, "/register", err.Error())
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.logger.Error("failed to hash password", slog.String("error", err.Error()))
		redirectWithError(w, r, "/register", "Registration failed, please try again")
		return
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	if err := h.repository.CreateUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			redirectWithError(w, r, "/register", "Username is already taken")
		case errors.Is(err, repository.ErrEmailExists):
			redirectWithError(w, r, "/register", "Email is already registered")
		default:
			h.logger.Error("failed to create user", slog.String("error", err.Error()))
			redirectWithError(w, r, "/register", "Registration failed, please try again")
		}
		return
	}

	h.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	if err := h.startSession(w, r, user); err != nil {
		// Account exists; let the user log in normally
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Login handles POST /login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/login", "Invalid form submission")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.repository.GetUserByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			h.logger.Error("login lookup failed", slog.String("error", err.Error()))
		}
		// Same message for unknown user and wrong password
		h.failLogin(w, r, username)
		return
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match || !user.IsActive {
		h.failLogin(w, r, username)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.logger.Error("failed to create session", slog.String("error", err.Error()))
		redirectWithError(w, r, "/login", "Login failed, please try again")
		return
	}

	h.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.cache.DeleteSession(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to delete session", slog.String("error", err.Error()))
		}
	}

	middleware.ClearSessionCookie(w, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// startSession creates a Redis session and sets the cookie.
func (h *AccountHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}

	sess := &model.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: time.Now(),
	}

	if err := h.cache.SetSession(r.Context(), sess, middleware.SessionTTL); err != nil {
		return err
	}

	middleware.SetSessionCookie(w, token, h.secure)
	return nil
}

// failLogin logs and redirects with a generic message that doesn't reveal
// whether the username exists.
func (h *AccountHandler) failLogin(w http.ResponseWriter, r *http.Request, username string) {
	h.logger.Warn("login failed",
		slog.String("username", username),
		slog.String("ip", r.RemoteAddr),
	)
	redirectWithError(w, r, "/login", "Invalid username or password")
}

// redirectWithError bounces back to a form page with an error message.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, message string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}
