// Package evict bounds a pack store's footprint with LRU eviction and an
// age-based purge. Both policies are advisory: a failed eviction never blocks
// the write it was protecting.
package evict

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/repopack-ai/repopack/pkg/models"
	"github.com/repopack-ai/repopack/pkg/store"
)

// DefaultIdleThreshold is how long an entry may go unaccessed before the
// periodic purge removes it.
const DefaultIdleThreshold = 30 * 24 * time.Hour

// Manager enforces a total-size budget on a store.
type Manager struct {
	budget int64
	logger *log.Logger
}

// New creates a Manager with the given byte budget. A budget of zero or less
// disables size-based eviction. A nil logger falls back to the default
// logger.
func New(budget int64, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{budget: budget, logger: logger}
}

// EnsureCapacity makes room for an incoming entry by deleting entries in
// ascending last-accessed order until the entry fits under the budget or no
// candidates remain. The incoming entry's own key is never evicted. All
// failures are logged and swallowed so the triggering write proceeds.
func (m *Manager) EnsureCapacity(ctx context.Context, s store.Store, incoming *models.CacheEntry) {
	if m.budget <= 0 {
		return
	}

	total, err := s.TotalSize(ctx)
	if err != nil {
		m.logger.Warn("eviction skipped, cannot read store size", "err", err)
		return
	}

	// An existing entry under the same key is replaced, not added.
	if existing, ok, err := m.sizeOfKey(ctx, s, incoming.Key); err == nil && ok {
		total -= existing
	}

	need := total + incoming.SizeBytes - m.budget
	if need <= 0 {
		return
	}

	sums, err := s.Entries(ctx)
	if err != nil {
		m.logger.Warn("eviction skipped, cannot list entries", "err", err)
		return
	}

	var freed int64
	for _, es := range sums {
		if freed >= need {
			break
		}
		if es.Key == incoming.Key {
			continue
		}
		if err := s.Delete(ctx, es.Key); err != nil {
			m.logger.Warn("eviction delete failed", "key", es.Key, "err", err)
			continue
		}
		freed += es.SizeBytes
		m.logger.Debug("evicted pack entry",
			"repo", es.RepoFullName, "sha", es.CommitSHA, "bytes", es.SizeBytes)
	}

	if freed < need {
		m.logger.Warn("size budget still exceeded after eviction",
			"budget", m.budget, "short_by", need-freed)
	}
}

// PurgeIdle deletes entries whose last access is older than the threshold,
// regardless of size pressure. It returns the number of entries removed and
// the bytes freed.
func (m *Manager) PurgeIdle(ctx context.Context, s store.Store, threshold time.Duration) (int, int64, error) {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	cutoff := time.Now().UTC().Add(-threshold)

	sums, err := s.Entries(ctx)
	if err != nil {
		return 0, 0, err
	}

	removed := 0
	var freed int64
	for _, es := range sums {
		if !es.LastAccessedAt.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, es.Key); err != nil {
			m.logger.Warn("purge delete failed", "key", es.Key, "err", err)
			continue
		}
		removed++
		freed += es.SizeBytes
	}
	return removed, freed, nil
}

func (m *Manager) sizeOfKey(ctx context.Context, s store.Store, key string) (int64, bool, error) {
	sums, err := s.Entries(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, es := range sums {
		if es.Key == key {
			return es.SizeBytes, true, nil
		}
	}
	return 0, false, nil
}
