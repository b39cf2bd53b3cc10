package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dieai/dieai/internal/model"
)

const (
	// sessionKeyPrefix is the Redis key prefix for browser sessions.
	sessionKeyPrefix = "session:"
)

// cachedSession is the Redis representation of a browser session.
type cachedSession struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// GetSession retrieves a session by its token.
// Returns nil if not found or expired (not an error).
func (c *Cache) GetSession(ctx context.Context, token string) (*model.Session, error) {
	key := sessionKeyPrefix + token

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	var cached cachedSession
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.Session{
		Token:     token,
		UserID:    cached.UserID,
		Username:  cached.Username,
		CreatedAt: cached.CreatedAt,
	}, nil
}

// SetSession stores a session with the given TTL.
// Each request through the session middleware refreshes the TTL (sliding window).
func (c *Cache) SetSession(ctx context.Context, sess *model.Session, ttl time.Duration) error {
	key := sessionKeyPrefix + sess.Token

	data, err := json.Marshal(cachedSession{
		UserID:    sess.UserID,
		Username:  sess.Username,
		CreatedAt: sess.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// RefreshSession extends a session's TTL without rewriting its payload.
func (c *Cache) RefreshSession(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Expire(ctx, sessionKeyPrefix+token, ttl).Err()
}

// DeleteSession removes a session. Used on logout.
func (c *Cache) DeleteSession(ctx context.Context, token string) error {
	return c.client.Del(ctx, sessionKeyPrefix+token).Err()
}
