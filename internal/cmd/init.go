package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"backfill/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize backfill configuration",
	Long:  "Create a default configuration file for backfill",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
}

func runInit(_ *cobra.Command, _ []string) error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Printf("⚠️  Configuration file already exists at: %s\n", configPath)
		fmt.Println("   Use --force to overwrite it.")
		return nil
	}

	defaultConfig := config.DefaultConfig()
	defaultConfig.GitHub.Organization = "your-org"

	if err := defaultConfig.SaveConfigToPath(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✅ Configuration file created at: %s\n", configPath)
	fmt.Println("📝 Please edit the file to set your organization and repository root.")

	return nil
}
