package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ovall/shortlink/internal/shortlink"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS shortlinks (
	slug         TEXT PRIMARY KEY,
	original_url TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	created_by   TEXT NOT NULL,
	deleted_at   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS counters (
	name  TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shortlinks_created_at ON shortlinks(created_at DESC);
`

// PostgresStore is a PostgreSQL implementation of shortlink.Repository.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore creates a PostgreSQL-backed repository.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, timeout: defaultTimeout}
}

// EnsureSchema creates the tables when they do not exist yet.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSchema)
	if err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}

	return nil
}

// Ping verifies the database is reachable.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Get(ctx context.Context, slug shortlink.Slug) (*shortlink.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var link shortlink.ShortLink

	err := p.pool.QueryRow(ctx, `
		SELECT slug, original_url, created_at, created_by
		FROM shortlinks
		WHERE slug = $1 AND deleted_at IS NULL
	`, string(slug)).Scan(&link.Slug, &link.OriginalURL, &link.CreatedAt, &link.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortlink.ErrNotFound
		}

		return nil, fmt.Errorf("postgres get: %w", err)
	}

	link.CreatedAt = link.CreatedAt.UTC()

	return &link, nil
}

func (p *PostgresStore) Put(ctx context.Context, link *shortlink.ShortLink) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO shortlinks (slug, original_url, created_at, created_by)
		VALUES ($1, $2, $3, $4)
	`, string(link.Slug), link.OriginalURL, link.CreatedAt, string(link.CreatedBy))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return shortlink.ErrAlreadyExists
		}

		return fmt.Errorf("postgres put: %w", err)
	}

	return nil
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]*shortlink.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, `
		SELECT slug, original_url, created_at, created_by
		FROM shortlinks
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres list: %w", err)
	}
	defer rows.Close()

	var links []*shortlink.ShortLink

	for rows.Next() {
		var link shortlink.ShortLink
		if err := rows.Scan(&link.Slug, &link.OriginalURL, &link.CreatedAt, &link.CreatedBy); err != nil {
			return nil, fmt.Errorf("postgres list scan: %w", err)
		}

		link.CreatedAt = link.CreatedAt.UTC()
		links = append(links, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list rows: %w", err)
	}

	return links, nil
}

func (p *PostgresStore) Delete(ctx context.Context, slug shortlink.Slug, deletedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tag, err := p.pool.Exec(ctx, `
		UPDATE shortlinks SET deleted_at = $1 WHERE slug = $2 AND deleted_at IS NULL
	`, deletedAt, string(slug))
	if err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shortlink.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) IncrementCounter(ctx context.Context, name string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var value uint64

	err := p.pool.QueryRow(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("postgres counter increment: %w", err)
	}

	return value, nil
}
