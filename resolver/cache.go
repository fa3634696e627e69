package resolver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultCacheTTL bounds how stale a cached resolution may get.
const DefaultCacheTTL = 5 * time.Minute

// Cached is a Redis read-through decorator. Cache failures are logged and
// degrade to the inner resolver; they never fail a resolution.
type Cached struct {
	inner  Resolver
	client *redis.Client
	ttl    time.Duration
}

// NewCached wraps inner with a Redis read-through cache.
func NewCached(inner Resolver, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{inner: inner, client: client, ttl: ttl}
}

// Resolve implements Resolver.
func (c *Cached) Resolve(ctx context.Context, id string) (*Resolved, error) {
	key := "cloudsave:resolved:" + id

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached Resolved
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		log.Warn().Str("resource", id).Msg("dropping undecodable cache entry")
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("resource", id).Msg("resolver cache read failed")
	}

	resolved, err := c.inner.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(resolved); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("resource", id).Msg("resolver cache write failed")
		}
	}
	return resolved, nil
}
