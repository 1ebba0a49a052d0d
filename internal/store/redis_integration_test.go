//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ovall/shortlink/internal/shortlink"
	"github.com/ovall/shortlink/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisCacheStoreIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: getRedisAddr(),
	})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Run("get populates the cache and serves hits from it", func(t *testing.T) {
		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheStore(inner, client, time.Minute)

		link := &shortlink.ShortLink{
			Slug:        "redistest1",
			OriginalURL: "https://example.com",
			CreatedAt:   time.Now().UTC().Truncate(time.Second),
			CreatedBy:   "alice@acme.com",
		}
		require.NoError(t, cached.Put(ctx, link))
		defer client.Del(ctx, "link:redistest1")

		got, err := cached.Get(ctx, link.Slug)
		require.NoError(t, err)
		assert.Equal(t, link.OriginalURL, got.OriginalURL)

		// Remove from the inner store; the cache should still answer.
		require.NoError(t, inner.Delete(ctx, link.Slug, time.Now()))

		got, err = cached.Get(ctx, link.Slug)
		require.NoError(t, err)
		assert.Equal(t, link.OriginalURL, got.OriginalURL)
	})

	t.Run("delete invalidates the cache entry", func(t *testing.T) {
		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheStore(inner, client, time.Minute)

		link := &shortlink.ShortLink{
			Slug:        "redistest2",
			OriginalURL: "https://example.com",
			CreatedAt:   time.Now().UTC(),
			CreatedBy:   "alice@acme.com",
		}
		require.NoError(t, cached.Put(ctx, link))
		require.NoError(t, cached.Delete(ctx, link.Slug, time.Now()))

		_, err := cached.Get(ctx, link.Slug)
		assert.ErrorIs(t, err, shortlink.ErrNotFound)
	})

	t.Run("counter passes through uncached", func(t *testing.T) {
		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheStore(inner, client, time.Minute)

		first, err := cached.IncrementCounter(ctx, shortlink.CounterGlobal)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), first)
	})
}
