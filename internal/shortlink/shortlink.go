package shortlink

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no link exists for a slug.
	ErrNotFound = errors.New("link not found")
	// ErrAlreadyExists is returned when a slug is already taken.
	ErrAlreadyExists = errors.New("slug already exists")
	// ErrInvalidSlug is returned for slugs violating the slug policy.
	ErrInvalidSlug = errors.New("invalid slug")
	// ErrInvalidURL is returned for target URLs failing validation.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidEmail is returned for malformed user emails.
	ErrInvalidEmail = errors.New("invalid email")
)

const (
	// MaxURLLength is the maximum accepted length of an original URL.
	MaxURLLength = 2048

	maxSlugLength = 64
)

// Slug is a validated short link identifier. Construct via NewSlug.
type Slug string

// NewSlug validates s against the slug policy: 1-64 characters drawn
// from [0-9A-Za-z_-]. Comparison is case-sensitive.
func NewSlug(s string) (Slug, error) {
	if s == "" || len(s) > maxSlugLength {
		return "", ErrInvalidSlug
	}

	for i := 0; i < len(s); i++ {
		if !isSlugByte(s[i]) {
			return "", ErrInvalidSlug
		}
	}

	return Slug(s), nil
}

func isSlugByte(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b == '-' || b == '_':
		return true
	}

	return false
}

// UserEmail is a validated local@domain address. Construct via NewUserEmail.
type UserEmail string

// NewUserEmail validates s as local@domain with non-empty parts.
func NewUserEmail(s string) (UserEmail, error) {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", ErrInvalidEmail
	}

	return UserEmail(s), nil
}

// Domain returns the ASCII-lowercased domain part of the email.
func (e UserEmail) Domain() string {
	_, domain, ok := strings.Cut(string(e), "@")
	if !ok {
		return ""
	}

	return strings.ToLower(domain)
}

// ShortLink is the persisted slug -> URL mapping.
type ShortLink struct {
	Slug        Slug
	OriginalURL string
	CreatedAt   time.Time
	CreatedBy   UserEmail
	DeletedAt   *time.Time // soft delete marker; a deleted link behaves as absent
}

// NewLink is the input for creating a short link.
type NewLink struct {
	OriginalURL string
	Alias       string // optional custom slug; empty means generate one
}

// ValidateOriginalURL checks that s is a non-empty absolute http(s) URL
// of at most MaxURLLength characters.
func ValidateOriginalURL(s string) error {
	if s == "" || len(s) > MaxURLLength {
		return ErrInvalidURL
	}

	u, err := url.Parse(s)
	if err != nil {
		return ErrInvalidURL
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// CounterGlobal is the name of the canonical slug-minting counter.
const CounterGlobal = "global"

// Repository is the storage port for short links and counters.
//
// Put must fail with ErrAlreadyExists when the slug is taken; it never
// updates. Get and List treat soft-deleted links as absent.
// IncrementCounter atomically returns the post-increment value and must be
// safe against concurrent callers across processes; the first call for a
// name returns 1.
type Repository interface {
	Get(ctx context.Context, slug Slug) (*ShortLink, error)
	Put(ctx context.Context, link *ShortLink) error
	List(ctx context.Context, limit int) ([]*ShortLink, error)
	Delete(ctx context.Context, slug Slug, deletedAt time.Time) error
	IncrementCounter(ctx context.Context, name string) (uint64, error)
}
