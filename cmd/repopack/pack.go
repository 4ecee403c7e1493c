package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/repopack-ai/repopack/pkg/config"
	"github.com/repopack-ai/repopack/pkg/models"
)

// parseRepoRefs parses owner/name[@branch] arguments. The branch defaults to
// main.
func parseRepoRefs(args []string) ([]models.RepoRef, error) {
	refs := make([]models.RepoRef, 0, len(args))
	for _, arg := range args {
		full, branch := arg, "main"
		if at := strings.LastIndex(arg, "@"); at >= 0 {
			full, branch = arg[:at], arg[at+1:]
		}
		if branch == "" || strings.Count(full, "/") != 1 {
			return nil, fmt.Errorf("invalid repo %q: expected owner/name[@branch]", arg)
		}
		refs = append(refs, models.RepoRef{FullName: full, Branch: branch})
	}
	return refs, nil
}

// sliceFromFlags layers CLI flags over the configured slice defaults.
func sliceFromFlags(base models.SliceConfig, include, ignore []string, stripComments, stripBlank bool) models.SliceConfig {
	out := base
	if len(include) > 0 {
		out.IncludeGlobs = include
	}
	if len(ignore) > 0 {
		out.IgnoreGlobs = append(out.IgnoreGlobs, ignore...)
	}
	if stripComments {
		out.StripComments = true
	}
	if stripBlank {
		out.StripBlankLines = true
	}
	return out
}

func newPackCmd() *cobra.Command {
	var (
		configPath    string
		outputPath    string
		include       []string
		ignore        []string
		stripComments bool
		stripBlank    bool
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "pack owner/repo[@branch]...",
		Short: "Pack repositories into a single text blob, using the cache where fresh",
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

			slice := sliceFromFlags(cfg.Slice, include, ignore, stripComments, stripBlank)
			result, err := orch.PackAll(context.Background(), repos, slice)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REPO\tBRANCH\tSOURCE\tFILES\tTOKENS")
			for _, rp := range result.Repos {
				source := "packed"
				if rp.FromCache {
					source = "cache"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
					rp.Repo.FullName, rp.Repo.Branch, source, rp.Stats.FileCount, rp.Stats.ApproxTokens)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "total %s (%s)\n",
				humanize.Bytes(uint64(len(result.Output))), result.Overall)

			if outputPath != "" {
				return os.WriteFile(outputPath, result.Output, 0o644)
			}
			_, err = os.Stdout.Write(result.Output)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "repopack.yaml", "path to config file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write packed output to a file instead of stdout")
	cmd.Flags().StringSliceVar(&include, "include", nil, "include globs (overrides config)")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "additional ignore globs")
	cmd.Flags().BoolVar(&stripComments, "strip-comments", false, "drop whole-line comments from packed files")
	cmd.Flags().BoolVar(&stripBlank, "strip-blank-lines", false, "drop blank lines from packed files")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}
