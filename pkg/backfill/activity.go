package backfill

import (
	"context"
	"time"

	"backfill/pkg/github"
)

// DefaultBranch is assumed when a repository does not report one
const DefaultBranch = "master"

// DefaultActivityWindow is the trailing window in which a repository must have commits
const DefaultActivityWindow = 180 * 24 * time.Hour

// ActivityFilter decides whether a repository is eligible for generation
type ActivityFilter struct {
	client github.APIClient
	window time.Duration
	now    func() time.Time
}

// NewActivityFilter creates a filter using the given trailing window
func NewActivityFilter(client github.APIClient, window time.Duration, now func() time.Time) *ActivityFilter {
	if window <= 0 {
		window = DefaultActivityWindow
	}
	if now == nil {
		now = time.Now
	}
	return &ActivityFilter{
		client: client,
		window: window,
		now:    now,
	}
}

// Check classifies record. Eligible records also return the author date of the
// most recent commit on their default branch.
func (f *ActivityFilter) Check(ctx context.Context, record *github.RepositoryRecord) (Outcome, time.Time, error) {
	if record.Archived {
		return OutcomeArchived, time.Time{}, nil
	}

	branch := record.DefaultBranch
	if branch == "" {
		branch = DefaultBranch
	}

	since := f.now().Add(-f.window)
	commit, err := f.client.LatestCommit(ctx, record.Org, record.Name, branch, since)
	if err != nil {
		return OutcomeFailed, time.Time{}, err
	}
	if commit == nil {
		return OutcomeInactive, time.Time{}, nil
	}

	if !hasTeams(record) {
		return OutcomeNoTeams, commit.AuthorDate, nil
	}

	return OutcomeEligible, commit.AuthorDate, nil
}

func hasTeams(record *github.RepositoryRecord) bool {
	for _, team := range record.Teams {
		if team.Name != "" {
			return true
		}
	}
	return false
}
