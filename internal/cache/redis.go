package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"studyarchive/internal/logging"
)

// Redis stores JSON encoded values in a shared Redis so that several server
// instances see the same invalidations.
type Redis[V any] struct {
	client *redis.Client
	prefix string
}

func NewRedis[V any](client *redis.Client, prefix string) *Redis[V] {
	return &Redis[V]{client: client, prefix: prefix}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var v V
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Warn().Err(err).Str("key", key).Msg("redis cache get failed")
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("redis cache entry undecodable")
		return v, false
	}
	return v, true
}

func (c *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("redis cache encode failed")
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("redis cache set failed")
	}
}

func (c *Redis[V]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("redis cache delete failed")
	}
}
