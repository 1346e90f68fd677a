package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dataroom/dataroom/internal/model"
)

const (
	// authUserPrefix is the Redis key prefix for users resolved from a session token.
	authUserPrefix = "auth:user:"
	// authCacheTTL is the time-to-live for cached auth lookups.
	authCacheTTL = 5 * time.Minute
	// revokedPrefix marks session token ids revoked by logout.
	revokedPrefix = "auth:revoked:"
)

// GetAuthUser retrieves the user cached for a session token.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetAuthUser(ctx context.Context, token string) (*model.User, error) {
	key := authUserPrefix + hashToken(token)

	var cached model.CachedUser
	cmd := c.client.HGetAll(ctx, key)
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(cmd.Val()) == 0 {
		return nil, ErrCacheMiss
	}
	if err := cmd.Scan(&cached); err != nil || cached.ID == "" {
		// Corrupted cache entry - treat as miss
		return nil, ErrCacheMiss
	}

	return cached.ToUser(), nil
}

// SetAuthUser caches the user for a session token. The entry never
// outlives the token itself.
func (c *Cache) SetAuthUser(ctx context.Context, token string, user *model.User, tokenExpiresAt time.Time) error {
	ttl := authCacheTTL
	if remaining := time.Until(tokenExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	key := authUserPrefix + hashToken(token)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, user.ToCachedUser())
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache auth user: %w", err)
	}
	return nil
}

// DeleteAuthUser removes the cached user for a session token.
func (c *Cache) DeleteAuthUser(ctx context.Context, token string) error {
	return c.client.Del(ctx, authUserPrefix+hashToken(token)).Err()
}

// RevokeToken denylists a session token id until it would have expired.
func (c *Cache) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a session token id was revoked.
func (c *Cache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// hashToken keys cache entries by a digest so raw tokens never reach Redis.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
