package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ovall/shortlink/internal/shortlink"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shortlinks (
	slug         TEXT PRIMARY KEY,
	original_url TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	created_by   TEXT NOT NULL,
	deleted_at   TEXT
);
CREATE TABLE IF NOT EXISTS counters (
	name  TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shortlinks_created_at ON shortlinks(created_at DESC);
`

// SQLiteStore is a file-backed implementation of shortlink.Repository.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn under concurrent counter increments.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, timeout: defaultTimeout}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Get(ctx context.Context, slug shortlink.Slug) (*shortlink.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT slug, original_url, created_at, created_by
		FROM shortlinks
		WHERE slug = ? AND deleted_at IS NULL
	`, string(slug))

	link, err := scanShortLink(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shortlink.ErrNotFound
		}

		return nil, fmt.Errorf("sqlite get: %w", err)
	}

	return link, nil
}

func (s *SQLiteStore) Put(ctx context.Context, link *shortlink.ShortLink) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shortlinks(slug, original_url, created_at, created_by)
		VALUES (?, ?, ?, ?)
	`,
		string(link.Slug),
		link.OriginalURL,
		link.CreatedAt.UTC().Format(time.RFC3339),
		string(link.CreatedBy),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return shortlink.ErrAlreadyExists
		}

		return fmt.Errorf("sqlite put: %w", err)
	}

	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*shortlink.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, original_url, created_at, created_by
		FROM shortlinks
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close()

	var links []*shortlink.ShortLink

	for rows.Next() {
		link, err := scanShortLink(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite list scan: %w", err)
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list rows: %w", err)
	}

	return links, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, slug shortlink.Slug, deletedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE shortlinks SET deleted_at = ? WHERE slug = ? AND deleted_at IS NULL
	`, deletedAt.UTC().Format(time.RFC3339), string(slug))
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}

	if affected == 0 {
		return shortlink.ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) IncrementCounter(ctx context.Context, name string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite counter begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO counters(name, value) VALUES (?, 0)
	`, name); err != nil {
		return 0, fmt.Errorf("sqlite counter init: %w", err)
	}

	var value uint64
	if err := tx.QueryRowContext(ctx, `
		UPDATE counters SET value = value + 1 WHERE name = ? RETURNING value
	`, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("sqlite counter increment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite counter commit: %w", err)
	}

	return value, nil
}

type scanFunc func(dest ...any) error

func scanShortLink(scan scanFunc) (*shortlink.ShortLink, error) {
	var (
		slug, originalURL, createdAt, createdBy string
	)

	if err := scan(&slug, &originalURL, &createdAt, &createdBy); err != nil {
		return nil, err
	}

	at, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &shortlink.ShortLink{
		Slug:        shortlink.Slug(slug),
		OriginalURL: originalURL,
		CreatedAt:   at,
		CreatedBy:   shortlink.UserEmail(createdBy),
	}, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}

	code := liteErr.Code()

	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
