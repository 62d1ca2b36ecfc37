package github

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// fakeClient is an in-memory APIClient keyed by repository name
type fakeClient struct {
	mu sync.Mutex

	repos         []*Repository
	installations []*AppInstallationRef
	installRepos  map[int64][]string
	teams         map[string][]TeamGrant
	collaborators map[string][]CollaboratorGrant
	protections   map[string][]BranchProtectionRule
	commits       map[string]*Commit
	errs          map[string]error

	calls map[string]int
}

func (f *fakeClient) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[call]++
	return f.errs[call]
}

func (f *fakeClient) ListRepositories(_ context.Context, _ string) ([]*Repository, error) {
	if err := f.record("repos"); err != nil {
		return nil, err
	}
	return f.repos, nil
}

func (f *fakeClient) ListInstallations(_ context.Context, _ string) ([]*AppInstallationRef, error) {
	if err := f.record("installations"); err != nil {
		return nil, err
	}
	return f.installations, nil
}

func (f *fakeClient) ListInstallationRepositories(_ context.Context, id int64) ([]string, error) {
	if err := f.record("installation:" + strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	return f.installRepos[id], nil
}

func (f *fakeClient) ListTeams(_ context.Context, _, repo string) ([]TeamGrant, error) {
	if err := f.record("teams:" + repo); err != nil {
		return nil, err
	}
	return f.teams[repo], nil
}

func (f *fakeClient) ListCollaborators(_ context.Context, _, repo string) ([]CollaboratorGrant, error) {
	if err := f.record("collaborators:" + repo); err != nil {
		return nil, err
	}
	return f.collaborators[repo], nil
}

func (f *fakeClient) ListBranchProtectionRules(_ context.Context, _, repo string) ([]BranchProtectionRule, error) {
	if err := f.record("protections:" + repo); err != nil {
		return nil, err
	}
	return f.protections[repo], nil
}

func (f *fakeClient) LatestCommit(_ context.Context, _, repo, _ string, _ time.Time) (*Commit, error) {
	if err := f.record("commits:" + repo); err != nil {
		return nil, err
	}
	return f.commits[repo], nil
}
