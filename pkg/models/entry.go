package models

import "time"

// PackStats summarizes a packed repository blob.
type PackStats struct {
	FileCount    int   `json:"file_count"`
	ApproxChars  int64 `json:"approx_chars"`
	ApproxTokens int64 `json:"approx_tokens"`
}

// CacheEntry stores one packed repository snapshot. The repo/branch/SHA/hash
// fields are redundant with Key but kept for indexed lookup without decoding
// the key.
type CacheEntry struct {
	Key            string    `json:"key"`
	RepoFullName   string    `json:"repo_full_name"`
	Branch         string    `json:"branch"`
	CommitSHA      string    `json:"commit_sha"`
	ConfigHash     string    `json:"config_hash"`
	Output         []byte    `json:"-"`
	Stats          PackStats `json:"stats"`
	CachedAt       time.Time `json:"cached_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	SizeBytes      int64     `json:"size_bytes"`
}

// Summary returns the metadata-only view of the entry.
func (e *CacheEntry) Summary() EntrySummary {
	return EntrySummary{
		Key:            e.Key,
		RepoFullName:   e.RepoFullName,
		Branch:         e.Branch,
		CommitSHA:      e.CommitSHA,
		ConfigHash:     e.ConfigHash,
		SizeBytes:      e.SizeBytes,
		CachedAt:       e.CachedAt,
		LastAccessedAt: e.LastAccessedAt,
	}
}

// EntrySummary is a CacheEntry without its payload, for stats and eviction
// scans.
type EntrySummary struct {
	Key            string    `json:"key"`
	RepoFullName   string    `json:"repo_full_name"`
	Branch         string    `json:"branch"`
	CommitSHA      string    `json:"commit_sha"`
	ConfigHash     string    `json:"config_hash"`
	SizeBytes      int64     `json:"size_bytes"`
	CachedAt       time.Time `json:"cached_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Age returns how long ago the entry was cached.
func (s EntrySummary) Age(now time.Time) time.Duration {
	return now.Sub(s.CachedAt)
}
