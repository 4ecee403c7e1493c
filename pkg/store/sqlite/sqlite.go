// Package sqlite implements the shared pack cache on a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/repopack-ai/repopack/pkg/models"
	"github.com/repopack-ai/repopack/pkg/store"
)

// Store is the shared, multi-tenant pack cache backed by SQLite.
type Store struct {
	db           *sql.DB
	maxEntrySize int64
	hits         atomic.Int64
	misses       atomic.Int64
}

const createPackTable = `
CREATE TABLE IF NOT EXISTS pack_entries (
	key TEXT PRIMARY KEY,
	repo TEXT NOT NULL,
	branch TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	config_hash TEXT NOT NULL,
	output BLOB NOT NULL,
	file_count INTEGER NOT NULL,
	approx_chars INTEGER NOT NULL,
	approx_tokens INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL,
	cached_at DATETIME NOT NULL,
	last_accessed_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pack_repo ON pack_entries(repo, branch, config_hash);
CREATE INDEX IF NOT EXISTS idx_pack_lru ON pack_entries(last_accessed_at);
`

// New opens (or creates) the shared cache database. maxEntrySize bounds the
// payload accepted by Put; zero or negative disables the bound.
func New(dbPath string, maxEntrySize int64) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open pack cache db: %w", err)
	}

	if _, err := db.Exec(createPackTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate pack cache db: %w", err)
	}

	return &Store{db: db, maxEntrySize: maxEntrySize}, nil
}

// Get retrieves an entry by key and bumps its last-accessed time.
func (s *Store) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	e, err := s.scanOne(ctx, `SELECT key, repo, branch, commit_sha, config_hash, output,
		file_count, approx_chars, approx_tokens, size_bytes, cached_at, last_accessed_at
		FROM pack_entries WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	s.hits.Add(1)
	if err := s.Touch(ctx, key); err != nil {
		return nil, false, err
	}
	e.LastAccessedAt = time.Now().UTC()
	return e, true, nil
}

// Put upserts an entry. Oversized payloads are rejected with
// store.ErrTooLarge before any write is attempted.
func (s *Store) Put(ctx context.Context, entry *models.CacheEntry) error {
	if s.maxEntrySize > 0 && entry.SizeBytes > s.maxEntrySize {
		return fmt.Errorf("put %s (%d bytes): %w", entry.Key, entry.SizeBytes, store.ErrTooLarge)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pack_entries
		 (key, repo, branch, commit_sha, config_hash, output, file_count, approx_chars, approx_tokens, size_bytes, cached_at, last_accessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Key, entry.RepoFullName, entry.Branch, entry.CommitSHA, entry.ConfigHash,
		entry.Output, entry.Stats.FileCount, entry.Stats.ApproxChars, entry.Stats.ApproxTokens,
		entry.SizeBytes, entry.CachedAt.UTC(), entry.LastAccessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Touch bumps the last-accessed time of an existing entry.
func (s *Store) Touch(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pack_entries SET last_accessed_at = ? WHERE key = ?`,
		time.Now().UTC(), key,
	)
	if err != nil {
		return fmt.Errorf("cache touch: %w", err)
	}
	return nil
}

// FindByRepoBranchConfig returns all entries matching the triple, most
// recently cached first.
func (s *Store) FindByRepoBranchConfig(ctx context.Context, repo, branch, configHash string) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, repo, branch, commit_sha, config_hash, output,
		 file_count, approx_chars, approx_tokens, size_bytes, cached_at, last_accessed_at
		 FROM pack_entries WHERE repo = ? AND branch = ? AND config_hash = ?
		 ORDER BY cached_at DESC`,
		repo, branch, configHash,
	)
	if err != nil {
		return nil, fmt.Errorf("cache find: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := scanEntry(rows, &e); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an entry by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pack_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pack_entries`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// TotalSize returns the summed payload size of all entries.
func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size_bytes), 0) FROM pack_entries`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("cache total size: %w", err)
	}
	return total, nil
}

// Entries returns metadata summaries for every entry, ordered by
// last-accessed ascending so callers can consume them in LRU order.
func (s *Store) Entries(ctx context.Context) ([]models.EntrySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, repo, branch, commit_sha, config_hash, size_bytes, cached_at, last_accessed_at
		 FROM pack_entries ORDER BY last_accessed_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("cache entries: %w", err)
	}
	defer rows.Close()

	var sums []models.EntrySummary
	for rows.Next() {
		var es models.EntrySummary
		if err := rows.Scan(&es.Key, &es.RepoFullName, &es.Branch, &es.CommitSHA,
			&es.ConfigHash, &es.SizeBytes, &es.CachedAt, &es.LastAccessedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sums = append(sums, es)
	}
	return sums, rows.Err()
}

// Stats returns entry count, total size, hit/miss counters and summaries.
func (s *Store) Stats(ctx context.Context) (models.CacheStats, error) {
	sums, err := s.Entries(ctx)
	if err != nil {
		return models.CacheStats{}, err
	}
	var total int64
	for _, es := range sums {
		total += es.SizeBytes
	}
	return models.CacheStats{
		Entries:    int64(len(sums)),
		TotalBytes: total,
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Summaries:  sums,
	}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner, e *models.CacheEntry) error {
	return r.Scan(&e.Key, &e.RepoFullName, &e.Branch, &e.CommitSHA, &e.ConfigHash,
		&e.Output, &e.Stats.FileCount, &e.Stats.ApproxChars, &e.Stats.ApproxTokens,
		&e.SizeBytes, &e.CachedAt, &e.LastAccessedAt)
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (*models.CacheEntry, error) {
	var e models.CacheEntry
	if err := scanEntry(s.db.QueryRowContext(ctx, query, args...), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

var _ store.Store = (*Store)(nil)
