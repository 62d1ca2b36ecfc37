package github

import (
	"context"
	"fmt"
)

// InstallationMap maps repository names to the App installations that can access them.
// It is built once per run and shared read-only by every repository task.
type InstallationMap struct {
	byRepo map[string][]*AppInstallationRef
}

// NewInstallationMap builds a map from explicit repository assignments
func NewInstallationMap(byRepo map[string][]*AppInstallationRef) InstallationMap {
	return InstallationMap{byRepo: byRepo}
}

// For returns the installations referencing repo. The returned slice must not be modified.
func (m InstallationMap) For(repo string) []*AppInstallationRef {
	return m.byRepo[repo]
}

// Len returns the number of repositories with at least one installation
func (m InstallationMap) Len() int {
	return len(m.byRepo)
}

// BuildInstallationMap lists every installation of org and the repositories each can access.
// Any failed installation fails the whole map; an incomplete map would understate access.
func BuildInstallationMap(ctx context.Context, client APIClient, org string) (InstallationMap, error) {
	installations, err := client.ListInstallations(ctx, org)
	if err != nil {
		return InstallationMap{}, fmt.Errorf("failed to list installations of %s: %w", org, err)
	}

	byRepo := make(map[string][]*AppInstallationRef)
	for _, inst := range installations {
		repos, err := client.ListInstallationRepositories(ctx, inst.ID)
		if err != nil {
			return InstallationMap{}, fmt.Errorf("failed to list repositories of installation %d (%s): %w", inst.ID, inst.AppSlug, err)
		}
		for _, name := range repos {
			byRepo[name] = appendUnique(byRepo[name], inst)
		}
	}

	return NewInstallationMap(byRepo), nil
}

func appendUnique(refs []*AppInstallationRef, ref *AppInstallationRef) []*AppInstallationRef {
	for _, r := range refs {
		if r.ID == ref.ID {
			return refs
		}
	}
	return append(refs, ref)
}
