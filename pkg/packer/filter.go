package packer

import (
	"context"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/go-github/v67/github"

	"github.com/repopack-ai/repopack/pkg/models"
)

// filter decides which tree paths survive the slice config.
type filter struct {
	includes []glob.Glob
	ignores  []glob.Glob
}

// newFilter compiles the config's globs plus, when enabled, the built-in
// defaults and patterns read from the repo's ignore files.
func (p *GitHub) newFilter(ctx context.Context, owner, name string, tree *github.Tree, cfg models.SliceConfig) (*filter, error) {
	n := cfg.Normalized()
	f := &filter{}

	f.includes = p.compileAll(n.IncludeGlobs)

	ignorePatterns := append([]string{}, n.IgnoreGlobs...)
	if *n.UseDefaultPatterns {
		ignorePatterns = append(ignorePatterns, defaultIgnorePatterns...)
	}

	var ignoreFiles []string
	if *n.RespectGitignore {
		ignoreFiles = append(ignoreFiles, ".gitignore")
	}
	if *n.RespectAIIgnore {
		ignoreFiles = append(ignoreFiles, aiIgnoreFiles...)
	}
	for _, fname := range ignoreFiles {
		sha := blobSHA(tree, fname)
		if sha == "" {
			continue
		}
		raw, _, err := p.client.Git.GetBlobRaw(ctx, owner, name, sha)
		if err != nil {
			p.logger.Warn("cannot read ignore file, skipping", "file", fname, "err", err)
			continue
		}
		ignorePatterns = append(ignorePatterns, parseIgnoreFile(string(raw))...)
	}

	f.ignores = p.compileAll(ignorePatterns)
	return f, nil
}

// keep reports whether a path passes the include set and no ignore pattern.
func (f *filter) keep(path string) bool {
	if len(f.includes) > 0 {
		matched := false
		for _, g := range f.includes {
			if g.Match(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, g := range f.ignores {
		if g.Match(path) {
			return false
		}
	}
	return true
}

// compileAll compiles patterns with '/' as the separator, logging and
// skipping any that fail.
func (p *GitHub) compileAll(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pat := range patterns {
		g, err := glob.Compile(pat, '/')
		if err != nil {
			p.logger.Warn("invalid glob pattern, skipping", "pattern", pat, "err", err)
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

// parseIgnoreFile converts ignore-file lines into glob patterns. Comments
// and negations are skipped; directory entries match their whole subtree.
func parseIgnoreFile(content string) []string {
	var patterns []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		line = strings.TrimSuffix(line, "/")
		patterns = append(patterns, line, line+"/**", "**/"+line, "**/"+line+"/**")
	}
	return patterns
}

func blobSHA(tree *github.Tree, path string) string {
	for _, te := range tree.Entries {
		if te.GetPath() == path && te.GetType() == "blob" {
			return te.GetSHA()
		}
	}
	return ""
}
