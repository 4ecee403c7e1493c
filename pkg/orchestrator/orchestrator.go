// Package orchestrator ties the cache subsystem together: it resolves
// freshness for a batch of repositories, invokes the external packer for
// whatever is not fresh, and writes results back through the store selected
// per repository owner.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/repopack-ai/repopack/pkg/cachekey"
	"github.com/repopack-ai/repopack/pkg/evict"
	"github.com/repopack-ai/repopack/pkg/gitsha"
	"github.com/repopack-ai/repopack/pkg/models"
	"github.com/repopack-ai/repopack/pkg/resolver"
	"github.com/repopack-ai/repopack/pkg/store"
)

// Packer is the external flattening operation, invoked only for repos that
// did not resolve fresh.
type Packer interface {
	Pack(ctx context.Context, repoFullName, branch string, cfg models.SliceConfig) (*models.PackResult, error)
}

// Options configures an Orchestrator. Local and SHAs are required; Shared is
// optional (nil disables the shared tier entirely).
type Options struct {
	Local         store.Store
	Shared        store.Store
	SHAs          resolver.SHAResolver
	Packer        Packer
	AllowedOwners []string
	LocalBudget   int64
	SharedBudget  int64
	IdleThreshold time.Duration
	Logger        *log.Logger
}

// Orchestrator is the surface the UI layer calls.
type Orchestrator struct {
	local       store.Store
	shared      store.Store
	allow       Allowlist
	res         *resolver.Resolver
	packer      Packer
	localEvict  *evict.Manager
	sharedEvict *evict.Manager
	idle        time.Duration
	logger      *log.Logger
}

// New wires an Orchestrator from its dependencies.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	idle := opts.IdleThreshold
	if idle <= 0 {
		idle = evict.DefaultIdleThreshold
	}
	return &Orchestrator{
		local:       opts.Local,
		shared:      opts.Shared,
		allow:       NewAllowlist(opts.AllowedOwners),
		res:         resolver.New(opts.SHAs, logger),
		packer:      opts.Packer,
		localEvict:  evict.New(opts.LocalBudget, logger),
		sharedEvict: evict.New(opts.SharedBudget, logger),
		idle:        idle,
		logger:      logger,
	}
}

// selectStore routes a repo to the shared store when its owner is
// allow-listed and a shared store is configured, and to the local store
// otherwise.
func (o *Orchestrator) selectStore(repoFullName string) store.Store {
	if o.shared != nil && o.allow.Contains(gitsha.Owner(repoFullName)) {
		return o.shared
	}
	return o.local
}

func (o *Orchestrator) evictorFor(s store.Store) *evict.Manager {
	if s == o.shared {
		return o.sharedEvict
	}
	return o.localEvict
}

// ResolveBatch resolves every requested repo and aggregates the verdicts.
func (o *Orchestrator) ResolveBatch(ctx context.Context, repos []models.RepoRef, cfg models.SliceConfig) resolver.BatchResult {
	return o.res.ResolveBatch(ctx, o.selectStore, repos, cfg)
}

// Commit writes a freshly packed result into the cache. Caching failures are
// logged and swallowed: the cache is an optimization, never a correctness
// dependency for the pack the caller already holds.
func (o *Orchestrator) Commit(ctx context.Context, repo models.RepoRef, sha string, cfg models.SliceConfig, result *models.PackResult) {
	cfgHash := cachekey.Hash(cfg)
	now := time.Now().UTC()
	entry := &models.CacheEntry{
		Key:            cachekey.Build(repo.FullName, repo.Branch, sha, cfgHash),
		RepoFullName:   repo.FullName,
		Branch:         repo.Branch,
		CommitSHA:      sha,
		ConfigHash:     cfgHash,
		Output:         result.Output,
		Stats:          result.Stats,
		CachedAt:       now,
		LastAccessedAt: now,
		SizeBytes:      int64(len(result.Output)),
	}

	s := o.selectStore(repo.FullName)
	o.evictorFor(s).EnsureCapacity(ctx, s, entry)

	if err := s.Put(ctx, entry); err != nil {
		switch {
		case errors.Is(err, store.ErrTooLarge):
			o.logger.Info("pack too large to cache, skipping",
				"repo", repo.FullName, "bytes", entry.SizeBytes)
		default:
			o.logger.Warn("cache write failed, proceeding uncached",
				"repo", repo.FullName, "err", err)
		}
	}
}

// RepoPack describes one repository's contribution to a combined pack.
type RepoPack struct {
	Repo      models.RepoRef
	Status    models.Freshness
	SHA       string
	Stats     models.PackStats
	FromCache bool
}

// CombinedResult is the assembled output of PackAll.
type CombinedResult struct {
	Output  []byte
	Repos   []RepoPack
	Overall models.BatchStatus
}

// PackAll is the end-to-end operation: resolve the batch, serve fresh repos
// from cache, pack the rest through the external packer, commit the new
// results, and return the concatenated output in request order. A packer
// failure fails the call; cache failures never do.
func (o *Orchestrator) PackAll(ctx context.Context, repos []models.RepoRef, cfg models.SliceConfig) (*CombinedResult, error) {
	batch := o.ResolveBatch(ctx, repos, cfg)

	var buf bytes.Buffer
	out := &CombinedResult{Overall: batch.Overall}

	for _, v := range batch.Verdicts {
		rp := RepoPack{Repo: v.Repo, Status: v.Status, SHA: v.SHA}

		if v.Status == models.Fresh {
			rp.FromCache = true
			rp.Stats = v.Entry.Stats
			buf.Write(v.Entry.Output)
			out.Repos = append(out.Repos, rp)
			continue
		}

		result, err := o.packer.Pack(ctx, v.Repo.FullName, v.Repo.Branch, cfg)
		if err != nil {
			return nil, fmt.Errorf("pack %s@%s: %w", v.Repo.FullName, v.Repo.Branch, err)
		}
		rp.Stats = result.Stats
		buf.Write(result.Output)
		out.Repos = append(out.Repos, rp)

		// A repo whose SHA lookup failed is excluded from caching this
		// cycle; there is no key to store it under.
		if v.SHA != "" {
			o.Commit(ctx, v.Repo, v.SHA, cfg, result)
		}
	}

	out.Output = buf.Bytes()
	return out, nil
}

// TierStats is the aggregate view of both cache tiers.
type TierStats struct {
	Local  models.CacheStats
	Shared *models.CacheStats // nil when no shared store is configured
}

// Stats reports both tiers. A failing tier reports empty stats rather than
// failing the call.
func (o *Orchestrator) Stats(ctx context.Context) TierStats {
	var ts TierStats
	var err error
	if ts.Local, err = o.local.Stats(ctx); err != nil {
		o.logger.Warn("local cache stats unavailable", "err", err)
	}
	if o.shared != nil {
		ss, err := o.shared.Stats(ctx)
		if err != nil {
			o.logger.Warn("shared cache stats unavailable", "err", err)
		}
		ts.Shared = &ss
	}
	return ts
}

// Clear empties both tiers.
func (o *Orchestrator) Clear(ctx context.Context) error {
	if err := o.local.Clear(ctx); err != nil {
		return fmt.Errorf("clear local cache: %w", err)
	}
	if o.shared != nil {
		if err := o.shared.Clear(ctx); err != nil {
			return fmt.Errorf("clear shared cache: %w", err)
		}
	}
	return nil
}

// PurgeIdle sweeps entries unaccessed beyond the configured threshold from
// both tiers, returning entries removed and bytes freed.
func (o *Orchestrator) PurgeIdle(ctx context.Context) (int, int64, error) {
	removed, freed, err := o.localEvict.PurgeIdle(ctx, o.local, o.idle)
	if err != nil {
		return removed, freed, fmt.Errorf("purge local cache: %w", err)
	}
	if o.shared != nil {
		r, f, err := o.sharedEvict.PurgeIdle(ctx, o.shared, o.idle)
		removed += r
		freed += f
		if err != nil {
			return removed, freed, fmt.Errorf("purge shared cache: %w", err)
		}
	}
	return removed, freed, nil
}
