package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"backfill/pkg/backfill"
	"backfill/pkg/policy"
)

var (
	generateOrg      string
	generateFrom     string
	generateRepoRoot string
	generateDryRun   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate access policy entries for unmanaged active repositories",
	Long: `Generate one access policy entry per repository that is active, has at least one team
and has no entry under version control yet.

Repositories are considered active when their default branch has a commit inside the
activity window (backfill.activity_window_days). Entries are written to
<repo_root>/<org>/<name>.toml, most recently active repositories first. Existing
entries are never overwritten.

Examples:
  # Fetch and generate in one step
  backfill generate --org myorg

  # Generate from a snapshot written by 'backfill fetch'
  backfill generate --from repos.json

  # Print the entries instead of writing them
  backfill generate --org myorg --dry-run`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOrg, "org", "", "GitHub organization (overrides github.organization)")
	generateCmd.Flags().StringVar(&generateFrom, "from", "", "Read repositories from a snapshot written by 'backfill fetch'")
	generateCmd.Flags().StringVar(&generateRepoRoot, "repo-root", "", "Directory holding the policy entries (overrides backfill.repo_root)")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Print entries to stdout instead of writing them")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(generateOrg)
	if err != nil {
		return err
	}
	if generateRepoRoot != "" {
		cfg.Backfill.RepoRoot = generateRepoRoot
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	managed, err := newManagedSet(cfg)
	if err != nil {
		return fmt.Errorf("failed to read managed entries: %w", err)
	}
	client, err := newClient(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	pipeline := newPipeline(cfg, client, managed, logger)

	var report *backfill.Report
	if generateFrom != "" {
		records, err := backfill.ReadSnapshot(generateFrom)
		if err != nil {
			return err
		}
		fmt.Printf("📋 Loaded %d repositories from %s\n", len(records), generateFrom)
		report, err = pipeline.RunRecords(ctx, records)
		if err != nil {
			return err
		}
	} else {
		fmt.Printf("🔍 Fetching repositories of %s...\n", cfg.GitHub.Organization)
		report, err = pipeline.Run(ctx)
		if err != nil {
			return fmt.Errorf("generate failed: %w", err)
		}
	}

	logRateLimit(logger, client)

	var sink policy.Sink = policy.FileSink{Root: cfg.Backfill.RepoRoot}
	if generateDryRun {
		sink = &policy.WriterSink{W: os.Stdout}
	}

	emitted, emitErr := pipeline.Emit(report, sink)
	printSummary(report, emitted)

	if emitErr != nil {
		if errors.Is(emitErr, policy.ErrArtifactExists) {
			fmt.Println("⚠️  Some entries already existed and were left untouched")
		}
		return fmt.Errorf("failed to write some entries: %w", emitErr)
	}
	return nil
}

func printSummary(report *backfill.Report, emitted []policy.Emitted) {
	now := time.Now()
	written := 0
	for i, e := range emitted {
		if e.Err != nil {
			continue
		}
		written++
		last := report.Candidates[i].LastActivity
		fmt.Printf("  ✓ %s (last commit %s)\n", e.Path, humanize.RelTime(last, now, "ago", "from now"))
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Already managed: %d\n", report.Count(backfill.OutcomeManaged))
	fmt.Printf("   Inactive: %d\n", report.Count(backfill.OutcomeInactive))
	fmt.Printf("   Without teams: %d\n", report.Count(backfill.OutcomeNoTeams))
	fmt.Printf("   Archived: %d\n", report.Count(backfill.OutcomeArchived))
	fmt.Printf("   Excluded: %d\n", report.Count(backfill.OutcomeExcluded))
	if failed := report.Count(backfill.OutcomeFailed); failed > 0 {
		fmt.Printf("   ❌ Failed: %d\n", failed)
	}
	fmt.Printf("✅ Wrote %s\n", humanize.Comma(int64(written))+" entries")
}
