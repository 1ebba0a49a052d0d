package store

import (
	"context"
	"strconv"
	"time"

	"github.com/ovall/shortlink/internal/shortlink"
	"github.com/redis/go-redis/v9"
)

// RedisCacheStore wraps a Repository with Redis caching for resolves.
// Cache failures never fail a request; the inner repository stays
// authoritative.
type RedisCacheStore struct {
	inner  shortlink.Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCacheStore creates a Redis-cached repository decorator.
func NewRedisCacheStore(inner shortlink.Repository, client *redis.Client, ttl time.Duration) *RedisCacheStore {
	return &RedisCacheStore{
		inner:  inner,
		client: client,
		prefix: "link:",
		ttl:    ttl,
	}
}

// Get retrieves a link, checking the cache first.
func (r *RedisCacheStore) Get(ctx context.Context, slug shortlink.Slug) (*shortlink.ShortLink, error) {
	if link, err := r.getFromCache(ctx, slug); err == nil {
		return link, nil
	}

	link, err := r.inner.Get(ctx, slug)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link)

	return link, nil
}

// Put stores the link in the underlying repository and write-through caches it.
func (r *RedisCacheStore) Put(ctx context.Context, link *shortlink.ShortLink) error {
	if err := r.inner.Put(ctx, link); err != nil {
		return err
	}

	r.cacheLink(ctx, link)

	return nil
}

// List always goes to the underlying repository; listings are not cached.
func (r *RedisCacheStore) List(ctx context.Context, limit int) ([]*shortlink.ShortLink, error) {
	return r.inner.List(ctx, limit)
}

// Delete removes the link and invalidates the cache entry.
func (r *RedisCacheStore) Delete(ctx context.Context, slug shortlink.Slug, deletedAt time.Time) error {
	if err := r.inner.Delete(ctx, slug, deletedAt); err != nil {
		return err
	}

	_ = r.client.Del(ctx, r.prefix+string(slug)).Err()

	return nil
}

// IncrementCounter passes through; the counter is authoritative in the
// backing store and never cached.
func (r *RedisCacheStore) IncrementCounter(ctx context.Context, name string) (uint64, error) {
	return r.inner.IncrementCounter(ctx, name)
}

// Ping checks Redis connectivity.
func (r *RedisCacheStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCacheStore) getFromCache(ctx context.Context, slug shortlink.Slug) (*shortlink.ShortLink, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+string(slug)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortlink.ErrNotFound
	}

	var createdAt time.Time

	if ts, ok := result["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos).UTC()
		}
	}

	return &shortlink.ShortLink{
		Slug:        shortlink.Slug(result["slug"]),
		OriginalURL: result["original_url"],
		CreatedAt:   createdAt,
		CreatedBy:   shortlink.UserEmail(result["created_by"]),
	}, nil
}

func (r *RedisCacheStore) cacheLink(ctx context.Context, link *shortlink.ShortLink) {
	pipe := r.client.Pipeline()
	key := r.prefix + string(link.Slug)

	pipe.HSet(ctx, key, map[string]interface{}{
		"slug":         string(link.Slug),
		"original_url": link.OriginalURL,
		"created_at":   link.CreatedAt.UnixNano(),
		"created_by":   string(link.CreatedBy),
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

// Compile-time check.
var _ shortlink.Repository = (*RedisCacheStore)(nil)
