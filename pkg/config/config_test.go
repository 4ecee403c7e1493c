package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Cache.MaxEntryBytes != 8<<20 {
		t.Errorf("expected 8 MiB max entry size, got %d", cfg.Cache.MaxEntryBytes)
	}
	if cfg.Cache.IdleThreshold != 30*24*time.Hour {
		t.Errorf("expected 30 day idle threshold, got %v", cfg.Cache.IdleThreshold)
	}
	if cfg.Shared.DBPath != "" {
		t.Error("shared tier should be disabled by default")
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_GH_TOKEN", "ghp-test-123")

	content := `
github:
  token: ${TEST_GH_TOKEN}
cache:
  local_dir: /tmp/packs
  max_entry_bytes: 1048576
  idle_threshold: 168h
shared:
  db_path: shared.db
  budget_bytes: 1073741824
  allowed_owners:
    - acme
    - BetaCorp
slice:
  ignore_globs:
    - "**/*.test.ts"
  respect_gitignore: false
`
	path := filepath.Join(t.TempDir(), "repopack.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.GitHub.Token != "ghp-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.GitHub.Token)
	}
	if cfg.Cache.LocalDir != "/tmp/packs" {
		t.Errorf("expected /tmp/packs, got %s", cfg.Cache.LocalDir)
	}
	if cfg.Cache.IdleThreshold != 7*24*time.Hour {
		t.Errorf("expected 168h idle threshold, got %v", cfg.Cache.IdleThreshold)
	}
	if diff := cmp.Diff([]string{"acme", "BetaCorp"}, cfg.Shared.AllowedOwners); diff != "" {
		t.Errorf("allowed owners mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"**/*.test.ts"}, cfg.Slice.IgnoreGlobs); diff != "" {
		t.Errorf("ignore globs mismatch (-want +got):\n%s", diff)
	}
	if cfg.Slice.RespectGitignore == nil || *cfg.Slice.RespectGitignore {
		t.Error("expected respect_gitignore explicitly false")
	}

	// Unset fields keep their defaults.
	if cfg.Cache.LocalBudget != 256<<20 {
		t.Errorf("expected default local budget, got %d", cfg.Cache.LocalBudget)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/repopack.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("expected defaults for absent file (-want +got):\n%s", diff)
	}
}
