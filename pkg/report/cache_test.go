package report

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Requires Redis on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T) *RedisCache {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	prefix := "tt-test:" + t.Name() + ":"
	cleanup := func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewRedisCache(client, prefix, time.Minute, zap.NewNop())
}

func TestRedisCache_StoreLookupInvalidate(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	_, gen, ok := c.Lookup(ctx, FormatJSON)
	require.False(t, ok)
	assert.Zero(t, gen)

	c.Store(ctx, gen, FormatJSON, []byte(`[]`))
	body, _, ok := c.Lookup(ctx, FormatJSON)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(body))

	_, _, ok = c.Lookup(ctx, FormatDocument)
	assert.False(t, ok, "formats are cached separately")

	c.Invalidate(ctx)
	_, newGen, ok := c.Lookup(ctx, FormatJSON)
	assert.False(t, ok)
	assert.Equal(t, gen+1, newGen)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(1), stats.Sets)
	assert.Equal(t, uint64(1), stats.Invalidations)
}

func TestRedisCache_StaleGenerationIsNotServed(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	_, gen, _ := c.Lookup(ctx, FormatChart)
	c.Invalidate(ctx)
	// A render that started before the invalidation lands under the old generation.
	c.Store(ctx, gen, FormatChart, []byte("png"))

	_, _, ok := c.Lookup(ctx, FormatChart)
	assert.False(t, ok)
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	ctx := context.Background()
	c.Store(ctx, 0, FormatJSON, []byte("x"))
	c.Invalidate(ctx)
	_, _, ok := c.Lookup(ctx, FormatJSON)
	assert.False(t, ok)
}
