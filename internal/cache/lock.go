package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const importLockPrefix = "lock:import:"

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// AcquireImportLock takes a short-lived lock on one Drive file in one
// dataroom. ok is false when another import holds it. release is safe to
// call after the lock expired.
func (c *Cache) AcquireImportLock(ctx context.Context, dataroomID, googleFileID string, ttl time.Duration) (release func(), ok bool, err error) {
	key := importLockKey(dataroomID, googleFileID)
	token := uuid.NewString()

	ok, err = c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release = func() {
		// Use a fresh context so a cancelled request still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, c.client, []string{key}, token) //nolint:errcheck
	}
	return release, true, nil
}

func importLockKey(dataroomID, googleFileID string) string {
	return importLockPrefix + dataroomID + ":" + googleFileID
}
