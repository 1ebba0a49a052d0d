package store

import (
	"context"
	"sync"
	"time"

	"github.com/ovall/shortlink/internal/shortlink"
)

// MemoryStore is an in-memory implementation of shortlink.Repository,
// used for tests and local development. No durability.
type MemoryStore struct {
	mu       sync.RWMutex
	links    map[shortlink.Slug]shortlink.ShortLink
	counters map[string]uint64
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:    make(map[shortlink.Slug]shortlink.ShortLink),
		counters: make(map[string]uint64),
	}
}

func (m *MemoryStore) Get(_ context.Context, slug shortlink.Slug) (*shortlink.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[slug]
	if !ok || link.DeletedAt != nil {
		return nil, shortlink.ErrNotFound
	}

	out := link

	return &out, nil
}

func (m *MemoryStore) Put(_ context.Context, link *shortlink.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Containment check and insert share one critical section, so
	// concurrent puts of the same slug yield exactly one winner.
	if _, ok := m.links[link.Slug]; ok {
		return shortlink.ErrAlreadyExists
	}

	m.links[link.Slug] = *link

	return nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]*shortlink.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	links := make([]*shortlink.ShortLink, 0, limit)

	for _, link := range m.links {
		if link.DeletedAt != nil {
			continue
		}

		if len(links) == limit {
			break
		}

		out := link
		links = append(links, &out)
	}

	return links, nil
}

func (m *MemoryStore) Delete(_ context.Context, slug shortlink.Slug, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[slug]
	if !ok || link.DeletedAt != nil {
		return shortlink.ErrNotFound
	}

	link.DeletedAt = &deletedAt
	m.links[slug] = link

	return nil
}

func (m *MemoryStore) IncrementCounter(_ context.Context, name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[name]++

	return m.counters[name], nil
}
