package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill access policy entries for GitHub organization repositories",
	Long: `Backfill reads the live access state of a GitHub organization (teams, collaborators,
branch protection rules and App installations) and writes one access policy entry per
active repository that is not yet under manual management. Existing entries are never
touched.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the configuration file (default ~/.backfill/config.yaml)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(generateCmd)
}
