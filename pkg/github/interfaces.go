package github

import (
	"context"
	"time"
)

// APIClient defines the read-only GitHub operations needed to assemble access records
type APIClient interface {
	// Organization operations
	ListRepositories(ctx context.Context, org string) ([]*Repository, error)
	ListInstallations(ctx context.Context, org string) ([]*AppInstallationRef, error)
	ListInstallationRepositories(ctx context.Context, installationID int64) ([]string, error)

	// Repository access operations
	ListTeams(ctx context.Context, owner, repo string) ([]TeamGrant, error)
	ListCollaborators(ctx context.Context, owner, repo string) ([]CollaboratorGrant, error)
	ListBranchProtectionRules(ctx context.Context, owner, repo string) ([]BranchProtectionRule, error)

	// LatestCommit returns the most recent commit on branch since the given time,
	// or nil when the branch has no commits in that window
	LatestCommit(ctx context.Context, owner, repo, branch string, since time.Time) (*Commit, error)
}
