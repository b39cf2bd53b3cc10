package middleware

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{
			name:     "valid username",
			username: "alice",
			wantErr:  nil,
		},
		{
			name:     "valid with hyphen",
			username: "alice-dev",
			wantErr:  nil,
		},
		{
			name:     "valid with underscore",
			username: "alice_dev",
			wantErr:  nil,
		},
		{
			name:     "too short",
			username: "ab",
			wantErr:  ErrUsernameTooShort,
		},
		{
			name:     "too long",
			username: strings.Repeat("a", 33),
			wantErr:  ErrUsernameTooLong,
		},
		{
			name:     "invalid characters",
			username: "alice!@#",
			wantErr:  ErrUsernameInvalid,
		},
		{
			name:     "reserved - admin",
			username: "admin",
			wantErr:  ErrUsernameReserved,
		},
		{
			name:     "reserved - dieai (case insensitive)",
			username: "DieAI",
			wantErr:  ErrUsernameReserved,
		},
		{
			name:     "reserved - api",
			username: "api",
			wantErr:  ErrUsernameReserved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if err != tt.wantErr {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{
			name:    "valid email",
			email:   "alice@example.com",
			wantErr: nil,
		},
		{
			name:    "valid with plus tag",
			email:   "alice+dieai@example.com",
			wantErr: nil,
		},
		{
			name:    "empty",
			email:   "",
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "missing at sign",
			email:   "alice.example.com",
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "display name form rejected",
			email:   "Alice <alice@example.com>",
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "too long",
			email:   strings.Repeat("a", 250) + "@x.com",
			wantErr: ErrEmailInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if err != tt.wantErr {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "correct horse battery",
			wantErr:  nil,
		},
		{
			name:     "exactly minimum",
			password: strings.Repeat("x", MinPasswordLength),
			wantErr:  nil,
		},
		{
			name:     "too short",
			password: "short",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "too long",
			password: strings.Repeat("x", MaxPasswordLength+1),
			wantErr:  ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if err != tt.wantErr {
				t.Errorf("ValidatePassword = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateKeyName(t *testing.T) {
	tests := []struct {
		name    string
		keyName string
		wantErr error
	}{
		{
			name:    "empty is valid (optional)",
			keyName: "",
			wantErr: nil,
		},
		{
			name:    "valid name",
			keyName: "production backend",
			wantErr: nil,
		},
		{
			name:    "too long",
			keyName: strings.Repeat("a", 65),
			wantErr: ErrKeyNameTooLong,
		},
		{
			name:    "control characters",
			keyName: "prod\x00backend",
			wantErr: ErrKeyNameInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyName(tt.keyName)
			if err != tt.wantErr {
				t.Errorf("ValidateKeyName(%q) = %v, want %v", tt.keyName, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{
			name:    "valid query",
			query:   "golang generics",
			wantErr: nil,
		},
		{
			name:    "empty",
			query:   "",
			wantErr: ErrSearchQueryEmpty,
		},
		{
			name:    "whitespace only",
			query:   "   \t ",
			wantErr: ErrSearchQueryEmpty,
		},
		{
			name:    "too long",
			query:   strings.Repeat("q", MaxSearchQueryLength+1),
			wantErr: ErrSearchQueryTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchQuery(tt.query)
			if err != tt.wantErr {
				t.Errorf("ValidateSearchQuery(%q) = %v, want %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChatMessage(t *testing.T) {
	if err := ValidateChatMessage("hello"); err != nil {
		t.Errorf("short message should validate: %v", err)
	}
	if err := ValidateChatMessage(strings.Repeat("x", MaxChatMessageLength+1)); err != ErrChatMessageTooLong {
		t.Errorf("oversized message = %v, want ErrChatMessageTooLong", err)
	}
}
