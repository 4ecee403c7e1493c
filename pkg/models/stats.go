package models

// CacheStats is the aggregate view of one store.
type CacheStats struct {
	Entries    int64          `json:"entries"`
	TotalBytes int64          `json:"total_bytes"`
	Hits       int64          `json:"hits"`
	Misses     int64          `json:"misses"`
	Summaries  []EntrySummary `json:"summaries"`
}
