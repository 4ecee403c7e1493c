package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/repopack-ai/repopack/pkg/config"
	"github.com/repopack-ai/repopack/pkg/models"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the pack caches",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics for both tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			orch, cleanup, err := newOrchestrator(cfg, newLogger(false))
			if err != nil {
				return err
			}
			defer cleanup()

			ts := orch.Stats(context.Background())
			printTier("local", ts.Local)
			if ts.Shared != nil {
				fmt.Println()
				printTier("shared", *ts.Shared)
			}
			return nil
		},
	}

	var force bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached packs from both tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			if !force {
				var confirmed bool
				prompt := huh.NewConfirm().
					Title("Clear all cached packs?").
					Description("Both the local and shared tiers will be emptied.").
					Value(&confirmed)
				if err := prompt.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Aborted.")
					return nil
				}
			}

			orch, cleanup, err := newOrchestrator(cfg, newLogger(false))
			if err != nil {
				return err
			}
			defer cleanup()

			if err := orch.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("All cached packs cleared.")
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove packs unaccessed beyond the idle threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			orch, cleanup, err := newOrchestrator(cfg, newLogger(false))
			if err != nil {
				return err
			}
			defer cleanup()

			removed, freed, err := orch.PurgeIdle(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Purged %d entries, freed %s.\n", removed, humanize.Bytes(uint64(freed)))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "repopack.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd, purgeCmd)
	return cmd
}

func printTier(name string, stats models.CacheStats) {
	fmt.Printf("%s: %d entries, %s (hits %d, misses %d)\n",
		name, stats.Entries, humanize.Bytes(uint64(stats.TotalBytes)), stats.Hits, stats.Misses)
	if len(stats.Summaries) == 0 {
		return
	}

	now := time.Now().UTC()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPO\tBRANCH\tSHA\tAGE\tSIZE")
	for _, es := range stats.Summaries {
		sha := es.CommitSHA
		if len(sha) > 12 {
			sha = sha[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			es.RepoFullName, es.Branch, sha,
			humanize.RelTime(now.Add(-es.Age(now)), now, "ago", "from now"),
			humanize.Bytes(uint64(es.SizeBytes)))
	}
	_ = w.Flush()
}
