package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"backfill/pkg/backfill"
	"backfill/pkg/config"
	"backfill/pkg/github"
	pkglog "backfill/pkg/log"
	"backfill/pkg/policy"
)

func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	configPath, err := config.GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return configPath, nil
}

// loadConfig loads the config file, applies the organization override and validates the result
func loadConfig(org string) (*config.Config, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfigFromPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if org != "" {
		cfg.GitHub.Organization = org
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*log.Logger, error) {
	logger, err := pkglog.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}
	return logger, nil
}

// newClient authenticates and builds the API client used by the pipeline.
// The authenticated login is reported on status.
func newClient(ctx context.Context, cfg *config.Config, status io.Writer) (*github.Client, error) {
	authManager := github.NewAuthManager()
	tokenInfo, err := authManager.AuthenticateFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("GitHub authentication failed: %w\n\n%s", err, github.GetAuthInstructions())
	}
	fmt.Fprintf(status, "✓ Authenticated as %s\n", tokenInfo.User)

	token, err := authManager.GetToken(cfg)
	if err != nil {
		return nil, err
	}

	return github.NewClient(token, github.ClientOptions{
		PageSize:          cfg.Backfill.PageSize,
		CommitPageSize:    cfg.Backfill.CommitPageSize,
		MaxBranchRules:    cfg.Backfill.MaxBranchRules,
		MaxPushAllowances: cfg.Backfill.MaxPushAllowances,
		APIURL:            cfg.GitHub.APIURL,
		GraphQLURL:        cfg.GitHub.GraphQLURL,
	})
}

// newManagedSet returns the membership check configured by backfill.managed_check
func newManagedSet(cfg *config.Config) (policy.ManagedSet, error) {
	root := cfg.Backfill.RepoRoot
	if cfg.Backfill.ManagedCheck == config.ManagedCheckFilesystem {
		return policy.Filesystem{Root: root}, nil
	}

	// Nothing can be tracked under a root that does not exist yet
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return policy.Filesystem{Root: root}, nil
	}
	index, err := policy.NewGitIndex(root)
	if err != nil {
		return nil, err
	}
	// Entries written by an earlier run are not committed yet
	return policy.AnyOf{index, policy.Filesystem{Root: root}}, nil
}

// logRateLimit reports the API budget left after a run
func logRateLimit(logger *log.Logger, client *github.Client) {
	stats := client.RateLimitStats()
	logger.Debug("rate limit",
		"remaining", stats.RemainingRequests,
		"reset", stats.ResetTime.Format(time.TimeOnly),
		"waits", stats.TotalWaits,
		"delay", stats.TotalDelayTime)
}

func newPipeline(cfg *config.Config, client github.APIClient, managed policy.ManagedSet, logger *log.Logger) *backfill.Pipeline {
	return backfill.New(client, managed, logger, backfill.Options{
		Org:            cfg.GitHub.Organization,
		Concurrency:    cfg.Backfill.Concurrency,
		ActivityWindow: time.Duration(cfg.Backfill.ActivityWindowDays) * 24 * time.Hour,
		Exclude:        cfg.IsExcluded,
	})
}
