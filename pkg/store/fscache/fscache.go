// Package fscache implements the local pack cache on the filesystem. Each
// entry lives in its own directory under the base dir, holding a
// metadata.json plus the packed blob in pack.txt.
package fscache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/repopack-ai/repopack/pkg/models"
	"github.com/repopack-ai/repopack/pkg/store"
)

const (
	metadataFile = "metadata.json"
	packFile     = "pack.txt"
)

// Store is the per-user pack cache rooted at a directory.
type Store struct {
	baseDir      string
	maxEntrySize int64
	hits         atomic.Int64
	misses       atomic.Int64
}

// New creates the base directory if needed and returns a Store. maxEntrySize
// bounds the payload accepted by Put; zero or negative disables the bound.
func New(baseDir string, maxEntrySize int64) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store{baseDir: baseDir, maxEntrySize: maxEntrySize}, nil
}

// entryDir maps a cache key to a directory name. Keys contain '/' and '|',
// so the directory is named by a 64-bit hash of the key; the full key lives
// in metadata.json.
func (s *Store) entryDir(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return filepath.Join(s.baseDir, strconv.FormatUint(h.Sum64(), 36))
}

// Get retrieves an entry by key and bumps its last-accessed time.
func (s *Store) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	dir := s.entryDir(key)

	e, err := readMetadata(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if e.Key != key {
		// Directory-name hash collision between distinct keys.
		s.misses.Add(1)
		return nil, false, nil
	}

	output, err := os.ReadFile(filepath.Join(dir, packFile))
	if err != nil {
		return nil, false, fmt.Errorf("read pack blob: %w", err)
	}
	e.Output = output

	s.hits.Add(1)
	e.LastAccessedAt = time.Now().UTC()
	if err := writeMetadata(dir, e); err != nil {
		return nil, false, fmt.Errorf("cache touch: %w", err)
	}
	return e, true, nil
}

// Put upserts an entry. The blob is written first and metadata last, both
// through temp-file renames, so a crash never leaves a readable partial
// entry.
func (s *Store) Put(ctx context.Context, entry *models.CacheEntry) error {
	if s.maxEntrySize > 0 && entry.SizeBytes > s.maxEntrySize {
		return fmt.Errorf("put %s (%d bytes): %w", entry.Key, entry.SizeBytes, store.ErrTooLarge)
	}

	dir := s.entryDir(entry.Key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create entry directory: %w", err)
	}

	if err := atomicWrite(filepath.Join(dir, packFile), entry.Output); err != nil {
		return fmt.Errorf("write pack blob: %w", err)
	}
	if err := writeMetadata(dir, entry); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Touch bumps the last-accessed time of an existing entry.
func (s *Store) Touch(ctx context.Context, key string) error {
	dir := s.entryDir(key)
	e, err := readMetadata(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache touch: %w", err)
	}
	e.LastAccessedAt = time.Now().UTC()
	return writeMetadata(dir, e)
}

// FindByRepoBranchConfig scans all entry metadata for the triple, most
// recently cached first.
func (s *Store) FindByRepoBranchConfig(ctx context.Context, repo, branch, configHash string) ([]models.CacheEntry, error) {
	var entries []models.CacheEntry
	err := s.walkMetadata(func(dir string, e *models.CacheEntry) error {
		if e.RepoFullName != repo || e.Branch != branch || e.ConfigHash != configHash {
			return nil
		}
		output, err := os.ReadFile(filepath.Join(dir, packFile))
		if err != nil {
			return nil // Blob missing; skip the torn entry.
		}
		e.Output = output
		entries = append(entries, *e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache find: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries, nil
}

// Delete removes an entry. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := os.RemoveAll(s.entryDir(key)); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Clear removes and recreates the base directory.
func (s *Store) Clear(ctx context.Context) error {
	if err := os.RemoveAll(s.baseDir); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("recreate cache directory: %w", err)
	}
	return nil
}

// TotalSize returns the summed payload size of all entries.
func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	err := s.walkMetadata(func(_ string, e *models.CacheEntry) error {
		total += e.SizeBytes
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache total size: %w", err)
	}
	return total, nil
}

// Entries returns metadata summaries for every entry, last-accessed
// ascending.
func (s *Store) Entries(ctx context.Context) ([]models.EntrySummary, error) {
	var sums []models.EntrySummary
	err := s.walkMetadata(func(_ string, e *models.CacheEntry) error {
		sums = append(sums, e.Summary())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache entries: %w", err)
	}
	sort.Slice(sums, func(i, j int) bool {
		return sums[i].LastAccessedAt.Before(sums[j].LastAccessedAt)
	})
	return sums, nil
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

// Close is a no-op; the store holds no open handles between operations.
func (s *Store) Close() error {
	return nil
}

func (s *Store) walkMetadata(fn func(dir string, e *models.CacheEntry) error) error {
	dirs, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(s.baseDir, d.Name())
		e, err := readMetadata(dir)
		if err != nil {
			continue // Torn or foreign directory; skip.
		}
		if err := fn(dir, e); err != nil {
			return err
		}
	}
	return nil
}

func readMetadata(dir string) (*models.CacheEntry, error) {
	f, err := os.Open(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var e models.CacheEntry
	if err := json.NewDecoder(f).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &e, nil
}

func writeMetadata(dir string, e *models.CacheEntry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return atomicWrite(filepath.Join(dir, metadataFile), data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

var _ store.Store = (*Store)(nil)
