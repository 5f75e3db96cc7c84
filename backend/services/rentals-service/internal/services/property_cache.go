package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const propertyCacheGenKey = "properties:gen"

// PropertyCache memoizes public search pages. Any listing write bumps a
// generation counter, which orphans every entry from the older generation.
type PropertyCache interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, v any)
	Invalidate(ctx context.Context)
}

type redisPropertyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPropertyCache falls back to a no-op cache when rdb is nil.
func NewPropertyCache(rdb *redis.Client, ttl time.Duration) PropertyCache {
	if rdb == nil || ttl <= 0 {
		return noopPropertyCache{}
	}
	return &redisPropertyCache{rdb: rdb, ttl: ttl}
}

func (c *redisPropertyCache) key(ctx context.Context, key string) (string, error) {
	gen, err := c.rdb.Get(ctx, propertyCacheGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("properties:%d:%s", gen, utils.ContentHash(key)), nil
}

func (c *redisPropertyCache) Get(ctx context.Context, key string, out any) bool {
	k, err := c.key(ctx, key)
	if err != nil {
		utils.Logger.WithError(err).Warn("Property cache unavailable")
		return false
	}
	raw, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			utils.Logger.WithError(err).Warn("Property cache read failed")
		}
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (c *redisPropertyCache) Set(ctx context.Context, key string, v any) {
	k, err := c.key(ctx, key)
	if err != nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, k, raw, c.ttl).Err(); err != nil {
		utils.Logger.WithError(err).Warn("Property cache write failed")
	}
}

func (c *redisPropertyCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, propertyCacheGenKey).Err(); err != nil {
		utils.Logger.WithError(err).Warn("Property cache invalidation failed")
	}
}

type noopPropertyCache struct{}

func (noopPropertyCache) Get(context.Context, string, any) bool { return false }
func (noopPropertyCache) Set(context.Context, string, any) {}
func (noopPropertyCache) Invalidate(context.Context) {}
