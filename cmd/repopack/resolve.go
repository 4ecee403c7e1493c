package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/repopack-ai/repopack/pkg/config"
	"github.com/repopack-ai/repopack/pkg/models"
)

func newResolveCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "resolve owner/repo[@branch]...",
		Short: "Show cache freshness for repositories without packing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, err := parseRepoRefs(args)
			if err != nil {
				return err
			}

			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			logger := newLogger(verbose)
			orch, cleanup, err := newOrchestrator(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			res := orch.ResolveBatch(context.Background(), repos, cfg.Slice)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REPO\tBRANCH\tSTATUS\tSHA\tBEHIND")
			for _, v := range res.Verdicts {
				behind := "-"
				if v.Status == models.Stale {
					behind = fmt.Sprintf("%dd", v.DaysBehind)
				}
				sha := v.SHA
				if len(sha) > 12 {
					sha = sha[:12]
				}
				if sha == "" {
					sha = "?"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Repo.FullName, v.Repo.Branch, v.Status, sha, behind)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("overall: %s\n", res.Overall)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "repopack.yaml", "path to config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}
