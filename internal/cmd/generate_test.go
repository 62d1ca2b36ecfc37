package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backfill/pkg/config"
	"backfill/pkg/policy"
)

func TestGenerateCommandFlags(t *testing.T) {
	for _, name := range []string{"org", "from", "repo-root", "dry-run"} {
		assert.NotNil(t, generateCmd.Flags().Lookup(name), "missing flag %s", name)
	}
	for _, name := range []string{"org", "output"} {
		assert.NotNil(t, fetchCmd.Flags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "repos.json", fetchCmd.Flags().Lookup("output").DefValue)
}

func TestLoadConfigRequiresOrganization(t *testing.T) {
	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { configFile = "" })

	_, err := loadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization")

	cfg, err := loadConfig("myorg")
	require.NoError(t, err)
	assert.Equal(t, "myorg", cfg.GitHub.Organization)
}

func TestNewManagedSet(t *testing.T) {
	tests := []struct {
		name     string
		check    string
		initRepo bool
		want     any
	}{
		{name: "filesystem", check: config.ManagedCheckFilesystem, want: policy.Filesystem{}},
		{name: "git without root", check: config.ManagedCheckGit, want: policy.Filesystem{}},
		{name: "git", check: config.ManagedCheckGit, initRepo: true, want: policy.AnyOf{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			root := filepath.Join(dir, "repos")
			if tt.initRepo {
				_, err := git.PlainInit(dir, false)
				require.NoError(t, err)
				require.NoError(t, os.MkdirAll(root, 0755))
			}

			cfg := config.DefaultConfig()
			cfg.Backfill.RepoRoot = root
			cfg.Backfill.ManagedCheck = tt.check

			managed, err := newManagedSet(cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.want, managed)
		})
	}
}
