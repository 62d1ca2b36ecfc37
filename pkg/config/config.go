package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding the config file
const EnvPrefix = "BACKFILL_"

// Managed-set checks
const (
	ManagedCheckGit        = "git"
	ManagedCheckFilesystem = "filesystem"
)

// Config represents the backfill configuration
type Config struct {
	GitHub   GitHubConfig   `yaml:"github" envPrefix:"GITHUB_"`
	Backfill BackfillConfig `yaml:"backfill"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

// GitHubConfig represents GitHub-specific configuration
type GitHubConfig struct {
	Token        string `yaml:"token,omitempty" env:"TOKEN"`
	Organization string `yaml:"organization" env:"ORGANIZATION"`
	// APIURL and GraphQLURL are only set for GitHub Enterprise
	APIURL     string `yaml:"api_url,omitempty" env:"API_URL"`
	GraphQLURL string `yaml:"graphql_url,omitempty" env:"GRAPHQL_URL"`
}

// BackfillConfig controls how access policy entries are generated
type BackfillConfig struct {
	RepoRoot           string   `yaml:"repo_root" env:"REPO_ROOT"`
	ActivityWindowDays int      `yaml:"activity_window_days" env:"ACTIVITY_WINDOW_DAYS"`
	PageSize           int      `yaml:"page_size" env:"PAGE_SIZE"`
	CommitPageSize     int      `yaml:"commit_page_size" env:"COMMIT_PAGE_SIZE"`
	MaxBranchRules     int      `yaml:"max_branch_rules" env:"MAX_BRANCH_RULES"`
	MaxPushAllowances  int      `yaml:"max_push_allowances" env:"MAX_PUSH_ALLOWANCES"`
	Concurrency        int      `yaml:"concurrency" env:"CONCURRENCY"`
	Exclude            []string `yaml:"exclude,omitempty" env:"EXCLUDE" envSeparator:","`
	ManagedCheck       string   `yaml:"managed_check" env:"MANAGED_CHECK"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Backfill: BackfillConfig{
			RepoRoot:           "repos",
			ActivityWindowDays: 180,
			PageSize:           100,
			CommitPageSize:     50,
			MaxBranchRules:     10,
			MaxPushAllowances:  100,
			Concurrency:        8,
			ManagedCheck:       ManagedCheckGit,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the default location
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadConfigFromPath(configPath)
}

// LoadConfigFromPath loads configuration from a specific path and applies
// environment overrides. Missing files yield the defaults.
func LoadConfigFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.ParseEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseEnv overrides configuration values from BACKFILL_* environment variables
func (c *Config) ParseEnv() error {
	if err := env.ParseWithOptions(c, env.Options{
		Prefix: EnvPrefix,
	}); err != nil {
		return fmt.Errorf("parse environment variables: %w", err)
	}
	return nil
}

// SaveConfigToPath saves configuration to a specific path
func (c *Config) SaveConfigToPath(path string) error {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".backfill", "config.yaml"), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHub.Organization == "" {
		return fmt.Errorf("GitHub organization is required")
	}

	if c.Backfill.RepoRoot == "" {
		return fmt.Errorf("repo root is required")
	}

	positive := map[string]int{
		"activity_window_days": c.Backfill.ActivityWindowDays,
		"page_size":            c.Backfill.PageSize,
		"commit_page_size":     c.Backfill.CommitPageSize,
		"max_branch_rules":     c.Backfill.MaxBranchRules,
		"max_push_allowances":  c.Backfill.MaxPushAllowances,
		"concurrency":          c.Backfill.Concurrency,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("backfill.%s must be positive, got %d", name, value)
		}
	}
	if c.Backfill.PageSize > 100 || c.Backfill.CommitPageSize > 100 {
		return fmt.Errorf("page sizes cannot exceed 100")
	}

	switch c.Backfill.ManagedCheck {
	case ManagedCheckGit, ManagedCheckFilesystem:
	default:
		return fmt.Errorf("unknown managed_check %q: use %s or %s", c.Backfill.ManagedCheck, ManagedCheckGit, ManagedCheckFilesystem)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}

// IsExcluded reports whether repo is listed in backfill.exclude
func (c *Config) IsExcluded(repo string) bool {
	return slices.Contains(c.Backfill.Exclude, repo)
}
