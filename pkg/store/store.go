// Package store defines the persistence contract shared by the local and
// shared pack caches.
package store

import (
	"context"
	"errors"

	"github.com/repopack-ai/repopack/pkg/models"
)

// ErrTooLarge is returned by Put when an entry exceeds the store's per-entry
// size limit. The entry is never persisted.
var ErrTooLarge = errors.New("cache entry exceeds maximum size")

// Store is a persistent pack cache. Implementations must make Put
// all-or-nothing: a failed write leaves no partial entry behind.
type Store interface {
	// Get returns the entry for key and bumps its last-accessed time.
	// The second return is false when the key is absent.
	Get(ctx context.Context, key string) (*models.CacheEntry, bool, error)
	// Put upserts an entry, overwriting completely on key collision.
	// Returns ErrTooLarge for oversized entries.
	Put(ctx context.Context, entry *models.CacheEntry) error
	// Touch bumps the last-accessed time of an existing entry.
	Touch(ctx context.Context, key string) error
	// FindByRepoBranchConfig returns all entries for the triple, most
	// recently cached first.
	FindByRepoBranchConfig(ctx context.Context, repo, branch, configHash string) ([]models.CacheEntry, error)
	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes all entries.
	Clear(ctx context.Context) error
	// TotalSize returns the summed payload size of all entries.
	TotalSize(ctx context.Context) (int64, error)
	// Entries returns metadata summaries for every entry.
	Entries(ctx context.Context) ([]models.EntrySummary, error)
	// Stats returns the aggregate view of the store.
	Stats(ctx context.Context) (models.CacheStats, error)
	// Close releases underlying resources.
	Close() error
}
