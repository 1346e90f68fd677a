package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthStatePrefix = "oauth:state:"

// SaveOAuthState remembers an OAuth state value and the redirect URI it was
// issued for.
func (c *Cache) SaveOAuthState(ctx context.Context, state, redirectURI string, ttl time.Duration) error {
	if err := c.client.Set(ctx, oauthStatePrefix+state, redirectURI, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// ConsumeOAuthState returns the redirect URI stored for state and deletes it,
// so every state is accepted once. Returns ErrCacheMiss for unknown states.
func (c *Cache) ConsumeOAuthState(ctx context.Context, state string) (string, error) {
	redirectURI, err := c.client.GetDel(ctx, oauthStatePrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return redirectURI, nil
}
