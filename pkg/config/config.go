package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repopack-ai/repopack/pkg/models"
)

// Config holds all repopack configuration.
type Config struct {
	GitHub GitHubConfig       `yaml:"github"`
	Cache  CacheConfig        `yaml:"cache"`
	Shared SharedConfig       `yaml:"shared"`
	Slice  models.SliceConfig `yaml:"slice"`
}

// GitHubConfig holds API credentials.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// CacheConfig controls the local cache tier and the limits shared by both
// tiers.
type CacheConfig struct {
	LocalDir      string        `yaml:"local_dir"`
	MaxEntryBytes int64         `yaml:"max_entry_bytes"`
	LocalBudget   int64         `yaml:"local_budget_bytes"`
	IdleThreshold time.Duration `yaml:"idle_threshold"`
}

// SharedConfig controls the shared cache tier. An empty DBPath disables the
// tier; only repos owned by an allow-listed entity are stored there.
type SharedConfig struct {
	DBPath        string   `yaml:"db_path"`
	Budget        int64    `yaml:"budget_bytes"`
	AllowedOwners []string `yaml:"allowed_owners"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Cache: CacheConfig{
			LocalDir:      filepath.Join(home, ".repopack", "cache"),
			MaxEntryBytes: 8 << 20,   // 8 MiB per entry
			LocalBudget:   256 << 20, // 256 MiB
			IdleThreshold: 30 * 24 * time.Hour,
		},
		Shared: SharedConfig{
			Budget: 2 << 30, // 2 GiB
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config when the file exists and falls back to
// defaults otherwise, so the CLI works without a config file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
