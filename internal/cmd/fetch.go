package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"backfill/pkg/backfill"
)

var (
	fetchOrg    string
	fetchOutput string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a snapshot of the organization's repository access state",
	Long: `Fetch the teams, collaborators, branch protection rules and App installations of every
repository in the organization and write them as a JSON snapshot.

The snapshot can be passed to 'backfill generate --from' to generate entries without
fetching the access state again. Repositories that cannot be fetched are logged and
left out of the snapshot.

Examples:
  backfill fetch --org myorg
  backfill fetch --org myorg -o repos.json
  backfill fetch --org myorg -o - > repos.json`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOrg, "org", "", "GitHub organization (overrides github.organization)")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "repos.json", "Snapshot file to write, or - for stdout")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(fetchOrg)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	// Keep stdout clean when it carries the snapshot
	out := cmd.OutOrStdout()
	status := out
	if fetchOutput == "-" {
		status = cmd.ErrOrStderr()
	}

	client, err := newClient(ctx, cfg, status)
	if err != nil {
		return err
	}

	fmt.Fprintf(status, "🔍 Fetching repositories of %s...\n", cfg.GitHub.Organization)

	pipeline := newPipeline(cfg, client, nil, logger)
	records, results, err := pipeline.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	logRateLimit(logger, client)

	if fetchOutput != "-" {
		f, err := os.Create(fetchOutput)
		if err != nil {
			return fmt.Errorf("failed to create snapshot file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}
	if err := backfill.WriteSnapshot(out, records); err != nil {
		return err
	}

	failed := len(results) - len(records)
	fmt.Fprintf(status, "✅ Fetched %d repositories", len(records))
	if failed > 0 {
		fmt.Fprintf(status, " (%d failed)", failed)
	}
	if fetchOutput != "-" {
		fmt.Fprintf(status, " into %s", fetchOutput)
	}
	fmt.Fprintln(status)

	return nil
}
