package report

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache holds rendered reports. Entries are keyed by a generation counter
// that Invalidate bumps, so a report rendered before a mutation is never
// served after it.
type Cache interface {
	// Lookup returns the cached body for f and the generation it was
	// looked up under.
	Lookup(ctx context.Context, f Format) (body []byte, gen int64, ok bool)

	// Store saves body for f under generation gen.
	Store(ctx context.Context, gen int64, f Format, body []byte)

	// Invalidate drops every cached report.
	Invalidate(ctx context.Context)
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) Lookup(context.Context, Format) ([]byte, int64, bool) { return nil, 0, false }
func (NopCache) Store(context.Context, int64, Format, []byte)         {}
func (NopCache) Invalidate(context.Context)                           {}

// CacheStats counts cache outcomes.
type CacheStats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Sets          uint64 `json:"sets"`
	Invalidations uint64 `json:"invalidations"`
	Errors        uint64 `json:"errors"`
}

// RedisCache is a Cache backed by Redis. Redis failures degrade to cache
// misses and are logged.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger

	hits, misses, sets, invalidations, errs atomic.Uint64
}

// NewRedisCache creates a RedisCache storing entries under prefix for ttl.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *RedisCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, log: log.Named("report_cache")}
}

func (c *RedisCache) genKey() string { return c.prefix + "gen" }

func (c *RedisCache) entryKey(gen int64, f Format) string {
	return c.prefix + "report:" + strconv.FormatInt(gen, 10) + ":" + f.String()
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Lookup implements Cache.
func (c *RedisCache) Lookup(ctx context.Context, f Format) ([]byte, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.errs.Add(1)
		c.log.Warn("read cache generation", zap.Error(err))
		return nil, 0, false
	}
	body, err := c.client.Get(ctx, c.entryKey(gen, f)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return nil, gen, false
	case err != nil:
		c.errs.Add(1)
		c.log.Warn("read cached report", zap.Stringer("format", f), zap.Error(err))
		return nil, gen, false
	}
	c.hits.Add(1)
	return body, gen, true
}

// Store implements Cache.
func (c *RedisCache) Store(ctx context.Context, gen int64, f Format, body []byte) {
	if err := c.client.Set(ctx, c.entryKey(gen, f), body, c.ttl).Err(); err != nil {
		c.errs.Add(1)
		c.log.Warn("write cached report", zap.Stringer("format", f), zap.Error(err))
		return
	}
	c.sets.Add(1)
}

// Invalidate implements Cache. Entries of older generations expire on their TTL.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		c.errs.Add(1)
		c.log.Warn("bump cache generation", zap.Error(err))
		return
	}
	c.invalidations.Add(1)
}

// Stats returns a snapshot of the cache counters.
func (c *RedisCache) Stats() CacheStats {
	return CacheStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Invalidations: c.invalidations.Load(),
		Errors:        c.errs.Load(),
	}
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
