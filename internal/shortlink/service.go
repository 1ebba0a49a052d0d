package shortlink

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const (
	// Alias length limits; stricter than the general slug policy.
	minAliasLength = 3
	maxAliasLength = 32

	// ListDefaultLimit is used when the caller passes no limit.
	ListDefaultLimit = 200
	// ListMaxLimit caps the number of links returned by List.
	ListMaxLimit = 500

	// Generated slugs should virtually never collide since the counter is
	// atomic; retries defend against historical manual inserts.
	createRetries = 3
)

// Service orchestrates creation, resolution, listing, and deletion of
// short links. It owns the collision policy for slug minting.
type Service struct {
	repo   Repository
	gen    SlugGenerator
	clock  Clock
	logger *zap.Logger
}

// NewService creates a link service.
func NewService(repo Repository, gen SlugGenerator, clock Clock, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		gen:    gen,
		clock:  clock,
		logger: logger,
	}
}

// Create validates the input, mints or validates a slug, and persists the
// link. A custom alias that is already taken fails with ErrAlreadyExists.
func (s *Service) Create(ctx context.Context, input NewLink, user UserEmail) (*ShortLink, error) {
	if err := ValidateOriginalURL(input.OriginalURL); err != nil {
		return nil, err
	}

	if input.Alias != "" {
		return s.createWithAlias(ctx, input, user)
	}

	return s.createGenerated(ctx, input, user)
}

func (s *Service) createWithAlias(ctx context.Context, input NewLink, user UserEmail) (*ShortLink, error) {
	if len(input.Alias) < minAliasLength || len(input.Alias) > maxAliasLength {
		return nil, ErrInvalidSlug
	}

	slug, err := NewSlug(input.Alias)
	if err != nil {
		return nil, err
	}

	link := &ShortLink{
		Slug:        slug,
		OriginalURL: input.OriginalURL,
		CreatedAt:   s.clock.Now(),
		CreatedBy:   user,
	}

	if err := s.repo.Put(ctx, link); err != nil {
		return nil, err
	}

	return link, nil
}

func (s *Service) createGenerated(ctx context.Context, input NewLink, user UserEmail) (*ShortLink, error) {
	for attempt := 0; attempt <= createRetries; attempt++ {
		n, err := s.repo.IncrementCounter(ctx, CounterGlobal)
		if err != nil {
			return nil, fmt.Errorf("reserve counter: %w", err)
		}

		link := &ShortLink{
			Slug:        s.gen.Derive(n),
			OriginalURL: input.OriginalURL,
			CreatedAt:   s.clock.Now(),
			CreatedBy:   user,
		}

		err = s.repo.Put(ctx, link)
		if err == nil {
			return link, nil
		}

		if !errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}

		s.logger.Warn("generated slug collision",
			zap.String("slug", string(link.Slug)),
			zap.Uint64("counter", n),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, fmt.Errorf("exhausted slug generation retries: %w", ErrAlreadyExists)
}

// Resolve returns the original URL stored for slug.
func (s *Service) Resolve(ctx context.Context, slug Slug) (string, error) {
	link, err := s.repo.Get(ctx, slug)
	if err != nil {
		return "", err
	}

	return link.OriginalURL, nil
}

// List returns up to limit links, newest first. Ties on creation time
// are broken by slug, descending, so the order is deterministic.
// Out-of-range limits are clamped to [1, ListMaxLimit]; zero means
// ListDefaultLimit.
func (s *Service) List(ctx context.Context, limit int) ([]*ShortLink, error) {
	if limit <= 0 {
		limit = ListDefaultLimit
	}

	if limit > ListMaxLimit {
		limit = ListMaxLimit
	}

	links, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}

		return links[i].Slug > links[j].Slug
	})

	return links, nil
}

// Delete soft-deletes the link; it behaves as absent afterwards.
func (s *Service) Delete(ctx context.Context, slug Slug) error {
	return s.repo.Delete(ctx, slug, s.clock.Now())
}
