// Package packer flattens a GitHub repository's source tree into a single
// LLM-ready text blob. It lists the branch head's git tree, filters paths
// against the slice config, and concatenates the surviving file contents.
package packer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v67/github"

	"github.com/repopack-ai/repopack/pkg/gitsha"
	"github.com/repopack-ai/repopack/pkg/models"
)

// defaultIgnorePatterns are pruned when the slice config enables built-in
// patterns. Matched with '/' as the glob separator.
var defaultIgnorePatterns = []string{
	".git/**",
	"**/node_modules/**",
	"node_modules/**",
	"**/vendor/**",
	"vendor/**",
	"**/*.min.js",
	"**/*.lock",
	"**/*.png",
	"**/*.jpg",
	"**/*.jpeg",
	"**/*.gif",
	"**/*.ico",
	"**/*.pdf",
	"**/*.zip",
	"**/*.gz",
	"**/*.woff",
	"**/*.woff2",
}

// aiIgnoreFiles are consulted when the config respects AI-ignore files.
var aiIgnoreFiles = []string{".aiignore", ".aiexclude", ".repopackignore"}

const fileSeparator = "================================================"

// GitHub packs repositories through the GitHub API.
type GitHub struct {
	client *github.Client
	logger *log.Logger
}

// Option configures the GitHub packer.
type Option func(*config)

type config struct {
	client *github.Client
	token  string
	logger *log.Logger
}

// WithToken authenticates API calls with a personal access token.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithClient supplies a fully configured go-github client, overriding
// WithToken.
func WithClient(client *github.Client) Option {
	return func(c *config) { c.client = client }
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// NewGitHub creates a GitHub packer.
func NewGitHub(opts ...Option) *GitHub {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.client == nil {
		cfg.client = github.NewClient(nil)
		if cfg.token != "" {
			cfg.client = cfg.client.WithAuthToken(cfg.token)
		}
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}
	return &GitHub{client: cfg.client, logger: cfg.logger}
}

// Pack flattens a repository branch into one text blob with summary stats.
func (p *GitHub) Pack(ctx context.Context, repoFullName, branch string, cfg models.SliceConfig) (*models.PackResult, error) {
	owner, name, err := gitsha.SplitFullName(repoFullName)
	if err != nil {
		return nil, err
	}

	br, _, err := p.client.Repositories.GetBranch(ctx, owner, name, branch, 0)
	if err != nil {
		return nil, fmt.Errorf("get branch %s@%s: %w", repoFullName, branch, err)
	}
	headSHA := br.GetCommit().GetSHA()

	tree, _, err := p.client.Git.GetTree(ctx, owner, name, headSHA, true)
	if err != nil {
		return nil, fmt.Errorf("get tree %s@%s: %w", repoFullName, headSHA, err)
	}
	if tree.GetTruncated() {
		p.logger.Warn("git tree truncated by API, pack will be partial",
			"repo", repoFullName, "branch", branch)
	}

	f, err := p.newFilter(ctx, owner, name, tree, cfg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\nRepository: %s (branch %s, commit %s)\n%s\n\n",
		fileSeparator, repoFullName, branch, headSHA, fileSeparator)

	n := cfg.Normalized()
	fileCount := 0
	for _, te := range tree.Entries {
		if te.GetType() != "blob" || !f.keep(te.GetPath()) {
			continue
		}

		raw, _, err := p.client.Git.GetBlobRaw(ctx, owner, name, te.GetSHA())
		if err != nil {
			return nil, fmt.Errorf("get blob %s: %w", te.GetPath(), err)
		}
		if bytes.ContainsRune(raw, 0) {
			continue // binary
		}

		content := string(raw)
		if n.StripComments {
			content = stripComments(content)
		}
		if n.StripBlankLines {
			content = stripBlankLines(content)
		}

		fmt.Fprintf(&buf, "%s\nFile: %s\n%s\n%s\n\n", fileSeparator, te.GetPath(), fileSeparator, content)
		fileCount++
	}

	output := buf.Bytes()
	chars := int64(len(output))
	return &models.PackResult{
		Output: output,
		Stats: models.PackStats{
			FileCount:   fileCount,
			ApproxChars: chars,
			// Rough LLM token estimate.
			ApproxTokens: chars / 4,
		},
	}, nil
}

func stripBlankLines(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// stripComments drops whole-line comments of the common // and # styles.
// It is a lossy text reduction, not a parser.
func stripComments(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "//") || strings.HasPrefix(t, "#") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
