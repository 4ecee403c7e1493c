// Package gitsha resolves the current commit SHA of repository branches
// through the GitHub API.
package gitsha

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v67/github"
)

// ErrInvalidRepo is returned when a repo identifier is not owner/name.
var ErrInvalidRepo = errors.New("repo must be in owner/name form")

// GitHub resolves branch SHAs with the go-github SDK.
type GitHub struct {
	client *github.Client
}

// Option configures the GitHub resolver.
type Option func(*config)

type config struct {
	client *github.Client
	token  string
}

// WithToken authenticates API calls with a personal access token. Anonymous
// access works for public repos but is heavily rate limited.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithClient supplies a fully configured go-github client, overriding
// WithToken. Used by tests to point at a fake API server.
func WithClient(client *github.Client) Option {
	return func(c *config) { c.client = client }
}

// NewGitHub creates a GitHub SHA resolver.
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
	return &GitHub{client: cfg.client}
}

// CurrentSHA returns the head commit SHA of a branch.
func (g *GitHub) CurrentSHA(ctx context.Context, repoFullName, branch string) (string, error) {
	owner, name, err := SplitFullName(repoFullName)
	if err != nil {
		return "", err
	}

	br, _, err := g.client.Repositories.GetBranch(ctx, owner, name, branch, 0)
	if err != nil {
		return "", fmt.Errorf("get branch %s@%s: %w", repoFullName, branch, err)
	}

	sha := br.GetCommit().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("branch %s@%s has no head commit", repoFullName, branch)
	}
	return sha, nil
}

// SplitFullName splits owner/name, rejecting anything else.
func SplitFullName(fullName string) (owner, name string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%q: %w", fullName, ErrInvalidRepo)
	}
	return parts[0], parts[1], nil
}

// Owner returns the owner segment of owner/name, or empty when malformed.
func Owner(fullName string) string {
	owner, _, err := SplitFullName(fullName)
	if err != nil {
		return ""
	}
	return owner
}
