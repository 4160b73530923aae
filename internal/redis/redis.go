package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache is a thin JSON cache over a redis client. A nil *Cache is a valid
// no-op cache so callers can run without redis configured.
type Cache struct {
	rdb *redis.Client
}

func New(address, username, password string) *Cache {
	if address == "" {
		return nil
	}
	return &Cache{rdb: redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})}
}

// SetJSON stores v under key with the given expiration. Failures are logged,
// not returned; the cache is best-effort.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, expiration time.Duration) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to marshal cache value")
		return
	}
	if err := c.rdb.Set(ctx, key, payload, expiration).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to write cache key")
	}
}

// GetJSON loads key into dst. Returns false on miss or any error.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false
	}
	return true
}

// Delete removes key. Failures are logged, not returned.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to delete cache key")
	}
}
