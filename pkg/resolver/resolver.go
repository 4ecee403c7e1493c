// Package resolver decides whether cached packs are fresh, stale, or missing
// for a set of requested repositories.
package resolver

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/repopack-ai/repopack/pkg/cachekey"
	"github.com/repopack-ai/repopack/pkg/models"
	"github.com/repopack-ai/repopack/pkg/store"
)

// SHAResolver looks up the current commit SHA of a branch. It is called once
// per repo per resolution cycle; its result is the sole input determining
// freshness.
type SHAResolver interface {
	CurrentSHA(ctx context.Context, repoFullName, branch string) (string, error)
}

// StoreSelector picks the store holding a repo's packs (shared for
// allow-listed owners, local otherwise).
type StoreSelector func(repoFullName string) store.Store

// Resolver runs the fresh/stale/miss state machine. The cache is a strict
// optimization: store failures degrade to miss and are logged, never
// propagated.
type Resolver struct {
	shas   SHAResolver
	logger *log.Logger
}

// New creates a Resolver. A nil logger falls back to the default logger.
func New(shas SHAResolver, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{shas: shas, logger: logger}
}

// BatchResult aggregates per-repo verdicts. Only an AllFresh overall status
// permits assembling the combined output purely from cache.
type BatchResult struct {
	Verdicts []models.Verdict
	Overall  models.BatchStatus
}

// ResolveBatch resolves every requested repo in parallel and aggregates the
// verdicts. A failed SHA lookup yields a miss verdict carrying the error; it
// never fails the batch.
func (r *Resolver) ResolveBatch(ctx context.Context, selectStore StoreSelector, repos []models.RepoRef, cfg models.SliceConfig) BatchResult {
	verdicts := make([]models.Verdict, len(repos))

	g, ctx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		g.Go(func() error {
			sha, err := r.shas.CurrentSHA(ctx, repo.FullName, repo.Branch)
			if err != nil {
				r.logger.Warn("cannot determine freshness, treating as miss",
					"repo", repo.FullName, "branch", repo.Branch, "err", err)
				verdicts[i] = models.Verdict{Repo: repo, Status: models.Miss, Err: err}
				return nil
			}
			verdicts[i] = r.Resolve(ctx, selectStore(repo.FullName), repo, sha, cfg)
			return nil
		})
	}
	_ = g.Wait()

	return BatchResult{Verdicts: verdicts, Overall: models.Aggregate(verdicts)}
}

// Resolve runs the state machine for one repo against one store:
//
//  1. Exact-match lookup with the current SHA: fresh.
//  2. Entries sharing repo/branch/config under a different SHA: stale,
//     returning the most recently cached with its days-behind count.
//  3. Otherwise: miss.
func (r *Resolver) Resolve(ctx context.Context, s store.Store, repo models.RepoRef, sha string, cfg models.SliceConfig) models.Verdict {
	cfgHash := cachekey.Hash(cfg)
	key := cachekey.Build(repo.FullName, repo.Branch, sha, cfgHash)

	entry, ok, err := s.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache lookup failed, treating as miss",
			"repo", repo.FullName, "key", key, "err", err)
		return models.Verdict{Repo: repo, Status: models.Miss, SHA: sha}
	}
	if ok {
		return models.Verdict{Repo: repo, Status: models.Fresh, SHA: sha, Entry: entry}
	}

	candidates, err := s.FindByRepoBranchConfig(ctx, repo.FullName, repo.Branch, cfgHash)
	if err != nil {
		r.logger.Warn("stale lookup failed, treating as miss",
			"repo", repo.FullName, "branch", repo.Branch, "err", err)
		return models.Verdict{Repo: repo, Status: models.Miss, SHA: sha}
	}

	// Candidates arrive most recently cached first; the exact key missed, so
	// every candidate carries a different SHA.
	if len(candidates) == 0 {
		return models.Verdict{Repo: repo, Status: models.Miss, SHA: sha}
	}

	best := candidates[0]
	if err := s.Touch(ctx, best.Key); err != nil {
		r.logger.Warn("stale entry touch failed", "key", best.Key, "err", err)
	}
	days := int(time.Since(best.CachedAt).Hours() / 24)
	return models.Verdict{
		Repo:       repo,
		Status:     models.Stale,
		SHA:        sha,
		Entry:      &best,
		DaysBehind: days,
	}
}
