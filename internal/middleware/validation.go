// Package middleware provides HTTP middleware for the DieAI API.
package middleware

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

// Validation limits.
const (
	// MinUsernameLength is the minimum length for a username.
	MinUsernameLength = 3

	// MaxUsernameLength is the maximum length for a username.
	MaxUsernameLength = 32

	// MinPasswordLength is the minimum length for an account password.
	MinPasswordLength = 8

	// MaxPasswordLength bounds password input before hashing.
	MaxPasswordLength = 128

	// MaxEmailLength is the maximum length for an email address.
	MaxEmailLength = 254

	// MaxKeyNameLength is the maximum length for an API key label.
	MaxKeyNameLength = 64

	// MaxChatMessageLength is the maximum length of a single chat message.
	MaxChatMessageLength = 8192

	// MaxSearchQueryLength is the maximum length of a search query.
	MaxSearchQueryLength = 512
)

// Validation errors.
var (
	ErrUsernameTooShort    = errors.New("username is too short")
	ErrUsernameTooLong     = errors.New("username exceeds maximum length")
	ErrUsernameInvalid     = errors.New("username contains invalid characters")
	ErrUsernameReserved    = errors.New("username is reserved")
	ErrEmailInvalid        = errors.New("email address is invalid")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPasswordTooLong     = errors.New("password exceeds maximum length")
	ErrKeyNameTooLong      = errors.New("key name exceeds maximum length")
	ErrKeyNameInvalid      = errors.New("key name contains control characters")
	ErrChatMessageTooLong  = errors.New("message exceeds maximum length")
	ErrSearchQueryEmpty    = errors.New("search query must not be empty")
	ErrSearchQueryTooLong  = errors.New("search query exceeds maximum length")
)

// ReservedUsernames contains names that cannot be registered.
// These collide with system routes or invite impersonation.
var ReservedUsernames = map[string]bool{
	// System routes
	"api":     true,
	"admin":   true,
	"healthz": true,
	"readyz":  true,
	"metrics": true,
	"static":  true,
	"assets":  true,

	// Auth paths
	"login":    true,
	"logout":   true,
	"register": true,
	"auth":     true,

	// Brand protection
	"dieai":   true,
	"support": true,
	"system":  true,
	"root":    true,

	// Common abuse targets
	"password":    true,
	"reset":       true,
	"verify":      true,
	"unsubscribe": true,
}

// validUsernamePattern matches valid username characters.
// Allowed: a-z, A-Z, 0-9, hyphen, underscore
var validUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUsername validates a username at registration.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return ErrUsernameTooShort
	}
	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !validUsernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}

	// Check reserved names (case-insensitive)
	if ReservedUsernames[strings.ToLower(username)] {
		return ErrUsernameReserved
	}

	return nil
}

// ValidateEmail validates an email address at registration.
func ValidateEmail(email string) error {
	if email == "" || len(email) > MaxEmailLength {
		return ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword checks password length bounds. Complexity rules are
// deliberately absent; length is the only requirement.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateKeyName validates an optional API key label.
func ValidateKeyName(name string) error {
	if name == "" {
		return nil // Optional
	}
	if len(name) > MaxKeyNameLength {
		return ErrKeyNameTooLong
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrKeyNameInvalid
		}
	}
	return nil
}

// ValidateChatMessage bounds a single chat message.
func ValidateChatMessage(content string) error {
	if len(content) > MaxChatMessageLength {
		return ErrChatMessageTooLong
	}
	return nil
}

// ValidateSearchQuery validates the q parameter of the search endpoint.
func ValidateSearchQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrSearchQueryEmpty
	}
	if len(query) > MaxSearchQueryLength {
		return ErrSearchQueryTooLong
	}
	return nil
}
