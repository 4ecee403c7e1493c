package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/repopack-ai/repopack/pkg/config"
	"github.com/repopack-ai/repopack/pkg/gitsha"
	"github.com/repopack-ai/repopack/pkg/orchestrator"
	"github.com/repopack-ai/repopack/pkg/packer"
	"github.com/repopack-ai/repopack/pkg/store/fscache"
	"github.com/repopack-ai/repopack/pkg/store/sqlite"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "repopack",
		Short:   "Repopack — pack GitHub repositories into LLM-ready text, with a two-tier cache",
		Version: version,
	}

	root.AddCommand(
		newPackCmd(),
		newResolveCmd(),
		newCacheCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger configures the CLI logger. Verbose mode adds debug output with
// caller and timestamp reporting.
func newLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    verbose,
		ReportTimestamp: verbose,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

// newOrchestrator wires the cache subsystem from config. The returned
// cleanup closes both stores.
func newOrchestrator(cfg *config.Config, logger *log.Logger) (*orchestrator.Orchestrator, func(), error) {
	local, err := fscache.New(cfg.Cache.LocalDir, cfg.Cache.MaxEntryBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("open local cache: %w", err)
	}

	opts := orchestrator.Options{
		Local:         local,
		SHAs:          gitsha.NewGitHub(gitsha.WithToken(cfg.GitHub.Token)),
		Packer:        packer.NewGitHub(packer.WithToken(cfg.GitHub.Token), packer.WithLogger(logger)),
		AllowedOwners: cfg.Shared.AllowedOwners,
		LocalBudget:   cfg.Cache.LocalBudget,
		SharedBudget:  cfg.Shared.Budget,
		IdleThreshold: cfg.Cache.IdleThreshold,
		Logger:        logger,
	}

	cleanup := func() { _ = local.Close() }
	if cfg.Shared.DBPath != "" {
		shared, err := sqlite.New(cfg.Shared.DBPath, cfg.Cache.MaxEntryBytes)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open shared cache: %w", err)
		}
		opts.Shared = shared
		cleanup = func() {
			_ = local.Close()
			_ = shared.Close()
		}
	}

	return orchestrator.New(opts), cleanup, nil
}
