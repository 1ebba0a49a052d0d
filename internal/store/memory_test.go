package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ovall/shortlink/internal/shortlink"
	"github.com/ovall/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLink(slug string) *shortlink.ShortLink {
	return &shortlink.ShortLink{
		Slug:        shortlink.Slug(slug),
		OriginalURL: "https://example.com",
		CreatedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		CreatedBy:   "alice@acme.com",
	}
}

func TestMemoryStorePut(t *testing.T) {
	t.Run("stores a link and reads it back equal", func(t *testing.T) {
		s := store.NewMemoryStore()
		link := testLink("abc123")

		require.NoError(t, s.Put(context.Background(), link))

		got, err := s.Get(context.Background(), link.Slug)
		require.NoError(t, err)
		assert.Equal(t, link, got)
	})

	t.Run("rejects a duplicate slug", func(t *testing.T) {
		s := store.NewMemoryStore()

		require.NoError(t, s.Put(context.Background(), testLink("abc123")))

		err := s.Put(context.Background(), testLink("abc123"))
		assert.ErrorIs(t, err, shortlink.ErrAlreadyExists)
	})

	t.Run("exactly one concurrent put of the same slug wins", func(t *testing.T) {
		s := store.NewMemoryStore()

		const workers = 16

		var wg sync.WaitGroup

		results := make(chan error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- s.Put(context.Background(), testLink("contended"))
			}()
		}

		wg.Wait()
		close(results)

		var wins, conflicts int
		for err := range results {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, shortlink.ErrAlreadyExists)
				conflicts++
			}
		}

		assert.Equal(t, 1, wins)
		assert.Equal(t, workers-1, conflicts)
	})
}

func TestMemoryStoreGet(t *testing.T) {
	t.Run("returns ErrNotFound for unknown slugs", func(t *testing.T) {
		s := store.NewMemoryStore()

		_, err := s.Get(context.Background(), "missing")

		assert.ErrorIs(t, err, shortlink.ErrNotFound)
	})
}

func TestMemoryStoreList(t *testing.T) {
	t.Run("returns at most limit links", func(t *testing.T) {
		s := store.NewMemoryStore()

		for _, slug := range []string{"aaa", "bbb", "ccc"} {
			require.NoError(t, s.Put(context.Background(), testLink(slug)))
		}

		links, err := s.List(context.Background(), 2)

		require.NoError(t, err)
		assert.Len(t, links, 2)
	})

	t.Run("excludes deleted links", func(t *testing.T) {
		s := store.NewMemoryStore()

		require.NoError(t, s.Put(context.Background(), testLink("keep")))
		require.NoError(t, s.Put(context.Background(), testLink("drop")))
		require.NoError(t, s.Delete(context.Background(), "drop", time.Now()))

		links, err := s.List(context.Background(), 10)

		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, shortlink.Slug("keep"), links[0].Slug)
	})
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Run("deleted links behave as absent", func(t *testing.T) {
		s := store.NewMemoryStore()

		require.NoError(t, s.Put(context.Background(), testLink("gone")))
		require.NoError(t, s.Delete(context.Background(), "gone", time.Now()))

		_, err := s.Get(context.Background(), "gone")
		assert.ErrorIs(t, err, shortlink.ErrNotFound)
	})

	t.Run("deleting twice fails with ErrNotFound", func(t *testing.T) {
		s := store.NewMemoryStore()

		require.NoError(t, s.Put(context.Background(), testLink("gone")))
		require.NoError(t, s.Delete(context.Background(), "gone", time.Now()))

		err := s.Delete(context.Background(), "gone", time.Now())
		assert.ErrorIs(t, err, shortlink.ErrNotFound)
	})

	t.Run("a deleted slug stays occupied", func(t *testing.T) {
		s := store.NewMemoryStore()

		require.NoError(t, s.Put(context.Background(), testLink("gone")))
		require.NoError(t, s.Delete(context.Background(), "gone", time.Now()))

		err := s.Put(context.Background(), testLink("gone"))
		assert.ErrorIs(t, err, shortlink.ErrAlreadyExists)
	})
}

func TestMemoryStoreIncrementCounter(t *testing.T) {
	t.Run("first increment returns 1", func(t *testing.T) {
		s := store.NewMemoryStore()

		n, err := s.IncrementCounter(context.Background(), shortlink.CounterGlobal)

		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)
	})

	t.Run("counters are independent by name", func(t *testing.T) {
		s := store.NewMemoryStore()

		_, err := s.IncrementCounter(context.Background(), "a")
		require.NoError(t, err)

		n, err := s.IncrementCounter(context.Background(), "b")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)
	})

	t.Run("concurrent increments hand out distinct values", func(t *testing.T) {
		s := store.NewMemoryStore()

		const workers = 64

		var wg sync.WaitGroup

		values := make(chan uint64, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := s.IncrementCounter(context.Background(), shortlink.CounterGlobal)
				assert.NoError(t, err)
				values <- n
			}()
		}

		wg.Wait()
		close(values)

		seen := map[uint64]bool{}
		for n := range values {
			assert.False(t, seen[n])
			seen[n] = true
		}

		assert.Len(t, seen, workers)
	})
}
