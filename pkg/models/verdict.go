package models

// RepoRef identifies a repository branch to resolve or pack.
type RepoRef struct {
	FullName string `yaml:"full_name" json:"full_name"`
	Branch   string `yaml:"branch" json:"branch"`
}

// Freshness is the cache-resolution verdict for one repository.
type Freshness string

const (
	Fresh Freshness = "fresh"
	Stale Freshness = "stale"
	Miss  Freshness = "miss"
)

// Verdict is the resolution result for one (repo, branch) pair. Entry is set
// for fresh and stale verdicts; DaysBehind only for stale. SHA is the current
// commit SHA, empty when the upstream lookup failed (Err explains why, and
// the verdict is forced to miss).
type Verdict struct {
	Repo       RepoRef
	Status     Freshness
	SHA        string
	Entry      *CacheEntry
	DaysBehind int
	Err        error
}

// BatchStatus aggregates per-repo verdicts.
type BatchStatus string

const (
	AllFresh  BatchStatus = "all-fresh"
	SomeStale BatchStatus = "some-stale"
	AllMiss   BatchStatus = "all-miss"
)

// Aggregate computes the overall batch status. Only AllFresh permits
// assembling a combined result purely from cache.
func Aggregate(verdicts []Verdict) BatchStatus {
	if len(verdicts) == 0 {
		return AllMiss
	}
	fresh, hits := 0, 0
	for _, v := range verdicts {
		switch v.Status {
		case Fresh:
			fresh++
			hits++
		case Stale:
			hits++
		}
	}
	switch {
	case fresh == len(verdicts):
		return AllFresh
	case hits > 0:
		return SomeStale
	default:
		return AllMiss
	}
}
