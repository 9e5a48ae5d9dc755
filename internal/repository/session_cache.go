package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/recruitment-portal/internal/config"
)

// SessionCache keeps login sessions and failed-login counters in Redis.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a new SessionCache.
func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

// SetSession stores the active JTI for a principal, replacing any previous one.
func (c *SessionCache) SetSession(ctx context.Context, principalID, jti string, ttl time.Duration) error {
	return c.rdb.Set(ctx, config.CacheKey.CandidateSessionKey(principalID), jti, ttl).Err()
}

// GetSession returns the active JTI, or "" when there is none.
func (c *SessionCache) GetSession(ctx context.Context, principalID string) (string, error) {
	jti, err := c.rdb.Get(ctx, config.CacheKey.CandidateSessionKey(principalID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return jti, err
}

// DeleteSession removes the active session. Missing sessions are not an error.
func (c *SessionCache) DeleteSession(ctx context.Context, principalID string) error {
	return c.rdb.Del(ctx, config.CacheKey.CandidateSessionKey(principalID)).Err()
}

// LoginAttempts returns the failed-login count for an email.
func (c *SessionCache) LoginAttempts(ctx context.Context, email string) (int64, error) {
	n, err := c.rdb.Get(ctx, config.CacheKey.LoginAttemptsKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// IncrLoginAttempts bumps the failed-login counter. The window starts at the first failure.
func (c *SessionCache) IncrLoginAttempts(ctx context.Context, email string, window time.Duration) (int64, error) {
	key := config.CacheKey.LoginAttemptsKey(email)

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// ResetLoginAttempts clears the failed-login counter.
func (c *SessionCache) ResetLoginAttempts(ctx context.Context, email string) error {
	return c.rdb.Del(ctx, config.CacheKey.LoginAttemptsKey(email)).Err()
}
