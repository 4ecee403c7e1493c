package fscache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/repopack-ai/repopack/pkg/models"
	"github.com/repopack-ai/repopack/pkg/store"
)

func newTestStore(t *testing.T, maxEntrySize int64) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "packs"), maxEntrySize)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testEntry(key, repo, sha string, output []byte) *models.CacheEntry {
	now := time.Now().UTC()
	return &models.CacheEntry{
		Key:            key,
		RepoFullName:   repo,
		Branch:         "main",
		CommitSHA:      sha,
		ConfigHash:     "cfg1",
		Output:         output,
		Stats:          models.PackStats{FileCount: 1, ApproxChars: int64(len(output)), ApproxTokens: int64(len(output)) / 4},
		CachedAt:       now,
		LastAccessedAt: now,
		SizeBytes:      int64(len(output)),
	}
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	key := "acme/widgets|main|abc123|cfg1"
	if err := s.Put(ctx, testEntry(key, "acme/widgets", "abc123", []byte("flattened tree"))); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got.Output) != "flattened tree" {
		t.Errorf("unexpected output: %s", got.Output)
	}

	_, ok, err = s.Get(ctx, "acme/widgets|main|zzz999|cfg1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected miss for unknown key")
	}
}

func TestGetBumpsLastAccessed(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	e := testEntry("k1", "acme/widgets", "abc123", []byte("data"))
	e.LastAccessedAt = time.Now().UTC().Add(-time.Hour)
	if err := s.Put(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if time.Since(got.LastAccessedAt) > time.Minute {
		t.Error("last accessed time not bumped on hit")
	}

	// The bump must be persisted.
	sums, err := s.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(sums[0].LastAccessedAt) > time.Minute {
		t.Error("persisted last accessed time not bumped")
	}
}

func TestPutRejectsOversized(t *testing.T) {
	s := newTestStore(t, 8)
	ctx := context.Background()

	err := s.Put(ctx, testEntry("k1", "acme/widgets", "abc123", []byte("definitely more than eight bytes")))
	if !errors.Is(err, store.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("oversized entry must never be stored")
	}
}

func TestPutIdempotent(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	e := testEntry("k1", "acme/widgets", "abc123", []byte("same"))
	if err := s.Put(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, e); err != nil {
		t.Fatal(err)
	}

	total, err := s.TotalSize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != e.SizeBytes {
		t.Errorf("total size double-counted: want %d, got %d", e.SizeBytes, total)
	}
}

func TestFindByRepoBranchConfig(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	older := testEntry("kA", "acme/widgets", "aaa111", []byte("old"))
	older.CachedAt = time.Now().UTC().Add(-48 * time.Hour)
	newer := testEntry("kB", "acme/widgets", "bbb222", []byte("new"))
	other := testEntry("kC", "acme/widgets", "ccc333", []byte("other config"))
	other.ConfigHash = "cfg2"

	for _, e := range []*models.CacheEntry{older, newer, other} {
		if err := s.Put(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.FindByRepoBranchConfig(ctx, "acme/widgets", "main", "cfg1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Key != "kB" {
		t.Errorf("expected most recently cached first, got %s", got[0].Key)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_ = s.Put(ctx, testEntry("k1", "acme/widgets", "abc123", []byte("one")))
	_ = s.Put(ctx, testEntry("k2", "acme/gadgets", "def456", []byte("two")))

	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("deleted entry still present")
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	sums, err := s.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 0 {
		t.Errorf("expected empty store after clear, got %d entries", len(sums))
	}
	// Base directory must survive a clear.
	if _, err := os.Stat(s.baseDir); err != nil {
		t.Errorf("base directory missing after clear: %v", err)
	}
}

func TestWalkSkipsForeignDirectories(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_ = s.Put(ctx, testEntry("k1", "acme/widgets", "abc123", []byte("one")))
	if err := os.MkdirAll(filepath.Join(s.baseDir, "not-an-entry"), 0o755); err != nil {
		t.Fatal(err)
	}

	sums, err := s.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 {
		t.Errorf("expected 1 entry, got %d", len(sums))
	}
}
