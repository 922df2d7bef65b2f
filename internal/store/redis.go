package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/obada/child-profiles-backend/internal/models"
)

// CacheTTL bounds how long a resolved profile may be served from cache.
// Profile updates and deletions invalidate entries explicitly, so the TTL
// only covers writes that bypass this service.
const CacheTTL = 5 * time.Minute

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// ChildCache is a read-through cache for profile lookups made by the access
// guard. Cached entries never contain the password hash.
type ChildCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewChildCache(rdb *redis.Client) *ChildCache {
	return &ChildCache{rdb: rdb, ttl: CacheTTL}
}

// Get returns the cached profile or nil on a miss. Cache errors are reported
// so callers can fall back to the store.
func (c *ChildCache) Get(ctx context.Context, id string) (*models.Child, error) {
	val, err := c.rdb.Get(ctx, "child:"+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var child models.Child
	if err := json.Unmarshal([]byte(val), &child); err != nil {
		return nil, err
	}
	return &child, nil
}

// Set stores the profile under its id. The password hash is excluded from
// JSON serialization, so it never reaches the cache.
func (c *ChildCache) Set(ctx context.Context, child *models.Child) error {
	data, err := json.Marshal(child)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, "child:"+child.ID.Hex(), data, c.ttl).Err()
}

// Invalidate drops the cached entry after an update or delete so the next
// guarded request re-resolves against the store.
func (c *ChildCache) Invalidate(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, "child:"+id).Err()
}
