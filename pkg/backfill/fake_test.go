package backfill

import (
	"context"
	"strconv"
	"sync"
	"time"

	"backfill/pkg/github"
)

// fakeClient is an in-memory organization keyed by repository name
type fakeClient struct {
	mu sync.Mutex

	repos         []*github.Repository
	installations []*github.AppInstallationRef
	installRepos  map[int64][]string
	teams         map[string][]github.TeamGrant
	collaborators map[string][]github.CollaboratorGrant
	commits       map[string]*github.Commit
	errs          map[string]error

	calls   map[string]int
	since   map[string]time.Time
	branch  map[string]string
	running int
	peak    int
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

func (f *fakeClient) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

func (f *fakeClient) ListRepositories(_ context.Context, _ string) ([]*github.Repository, error) {
	if err := f.record("repos"); err != nil {
		return nil, err
	}
	return f.repos, nil
}

func (f *fakeClient) ListInstallations(_ context.Context, _ string) ([]*github.AppInstallationRef, error) {
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

func (f *fakeClient) ListTeams(_ context.Context, _, repo string) ([]github.TeamGrant, error) {
	f.enter()
	defer f.leave()
	if err := f.record("teams:" + repo); err != nil {
		return nil, err
	}
	return f.teams[repo], nil
}

func (f *fakeClient) ListCollaborators(_ context.Context, _, repo string) ([]github.CollaboratorGrant, error) {
	if err := f.record("collaborators:" + repo); err != nil {
		return nil, err
	}
	return f.collaborators[repo], nil
}

func (f *fakeClient) ListBranchProtectionRules(_ context.Context, _, repo string) ([]github.BranchProtectionRule, error) {
	if err := f.record("protections:" + repo); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeClient) LatestCommit(_ context.Context, _, repo, branch string, since time.Time) (*github.Commit, error) {
	if err := f.record("commits:" + repo); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.since == nil {
		f.since = make(map[string]time.Time)
		f.branch = make(map[string]string)
	}
	f.since[repo] = since
	f.branch[repo] = branch
	commit := f.commits[repo]
	if commit != nil && commit.AuthorDate.Before(since) {
		return nil, nil
	}
	return commit, nil
}

// enter and leave track the peak number of concurrent team fetches
func (f *fakeClient) enter() {
	f.mu.Lock()
	f.running++
	f.peak = max(f.peak, f.running)
	f.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
}

func (f *fakeClient) leave() {
	f.mu.Lock()
	f.running--
	f.mu.Unlock()
}
