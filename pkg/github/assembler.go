package github

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Assembler builds RepositoryRecords from independent per-repository fetches
type Assembler struct {
	client        APIClient
	installations InstallationMap
}

// NewAssembler creates an assembler sharing one installation map across repositories
func NewAssembler(client APIClient, installations InstallationMap) *Assembler {
	return &Assembler{
		client:        client,
		installations: installations,
	}
}

// Assemble fetches teams, collaborators and branch protection rules of repo concurrently.
// A failure in any of the three fetches fails the whole repository.
func (a *Assembler) Assemble(ctx context.Context, repo *Repository) (*RepositoryRecord, error) {
	var (
		teams         []TeamGrant
		collaborators []CollaboratorGrant
		protections   []BranchProtectionRule
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = a.client.ListTeams(gctx, repo.Owner, repo.Name)
		return err
	})
	g.Go(func() error {
		var err error
		collaborators, err = a.client.ListCollaborators(gctx, repo.Owner, repo.Name)
		return err
	})
	g.Go(func() error {
		var err error
		protections, err = a.client.ListBranchProtectionRules(gctx, repo.Owner, repo.Name)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble %s/%s: %w", repo.Owner, repo.Name, err)
	}

	if err := checkUniqueTeams(teams); err != nil {
		return nil, NewDecodeError(fmt.Sprintf("teams for %s/%s", repo.Owner, repo.Name), "%v", err)
	}

	return &RepositoryRecord{
		Name:              repo.Name,
		Org:               repo.Owner,
		DefaultBranch:     repo.DefaultBranch,
		Archived:          repo.Archived,
		Private:           repo.Private,
		Teams:             teams,
		Collaborators:     collaborators,
		BranchProtections: protections,
		Installations:     a.installations.For(repo.Name),
	}, nil
}

func checkUniqueTeams(teams []TeamGrant) error {
	seen := make(map[string]bool, len(teams))
	for _, t := range teams {
		if seen[t.Name] {
			return fmt.Errorf("duplicate team %s", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}
