// Package backfill generates access policy entries for active organization
// repositories that are not yet under manual management.
package backfill

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"backfill/pkg/github"
	"backfill/pkg/policy"
)

// Outcome tags what happened to one repository during a run
type Outcome string

const (
	OutcomeEligible Outcome = "eligible"
	OutcomeExcluded Outcome = "excluded"
	OutcomeManaged  Outcome = "managed"
	OutcomeArchived Outcome = "archived"
	OutcomeInactive Outcome = "inactive"
	OutcomeNoTeams  Outcome = "no_teams"
	OutcomeFailed   Outcome = "failed"
	// OutcomeFetched marks a repository assembled by Fetch without filtering
	OutcomeFetched Outcome = "fetched"
)

// Result is the outcome of processing one repository
type Result struct {
	Name         string
	Outcome      Outcome
	Record       *github.RepositoryRecord
	LastActivity time.Time
	Err          error
}

// Report summarizes a run
type Report struct {
	// Results holds one entry per repository, ordered by name
	Results []Result
	// Candidates holds the eligible repositories in emission order
	Candidates []policy.Candidate
}

// Count returns how many repositories ended with the given outcome
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed returns the repositories that could not be processed
func (r *Report) Failed() map[string]error {
	failed := make(map[string]error)
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			failed[res.Name] = res.Err
		}
	}
	return failed
}

// Options configures a Pipeline
type Options struct {
	Org            string
	Concurrency    int
	ActivityWindow time.Duration
	// Exclude reports repositories that must never be generated
	Exclude func(name string) bool
	Now     func() time.Time
}

// Pipeline fetches, filters and orders repositories of one organization
type Pipeline struct {
	client   github.APIClient
	managed  policy.ManagedSet
	activity *ActivityFilter
	logger   *log.Logger
	opts     Options
}

// New creates a pipeline. managed may be nil when nothing is managed yet.
func New(client github.APIClient, managed policy.ManagedSet, logger *log.Logger, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		client:   client,
		managed:  managed,
		activity: NewActivityFilter(client, opts.ActivityWindow, opts.Now),
		logger:   logger,
		opts:     opts,
	}
}

// Fetch assembles a record for every repository of the organization without
// filtering. Repositories that fail are logged and left out of the records.
func (p *Pipeline) Fetch(ctx context.Context) ([]*github.RepositoryRecord, []Result, error) {
	repos, assembler, err := p.prepare(ctx)
	if err != nil {
		return nil, nil, err
	}

	results := p.fanOut(ctx, len(repos), func(ctx context.Context, i int) Result {
		repo := repos[i]
		record, err := assembler.Assemble(ctx, repo)
		if err != nil {
			p.logger.Warn("cannot fetch repository", "repo", repo.Name, "err", err)
			return Result{Name: repo.Name, Outcome: OutcomeFailed, Err: err}
		}
		return Result{Name: repo.Name, Outcome: OutcomeFetched, Record: record}
	})

	records := make([]*github.RepositoryRecord, 0, len(results))
	for _, res := range results {
		if res.Record != nil {
			records = append(records, res.Record)
		}
	}
	return records, results, nil
}

// Run fetches the organization and returns the eligible repositories in emission order.
// It fails only when the installation map or the repository list cannot be built.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	repos, assembler, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}

	results := p.fanOut(ctx, len(repos), func(ctx context.Context, i int) Result {
		repo := repos[i]
		if res, done := p.gate(repo.Owner, repo.Name); done {
			return res
		}
		if repo.Archived {
			p.logger.Debug("skipping archived repository", "repo", repo.Name)
			return Result{Name: repo.Name, Outcome: OutcomeArchived}
		}

		record, err := assembler.Assemble(ctx, repo)
		if err != nil {
			p.logger.Warn("cannot fetch repository", "repo", repo.Name, "err", err)
			return Result{Name: repo.Name, Outcome: OutcomeFailed, Err: err}
		}
		return p.evaluate(ctx, record)
	})

	return p.report(results), nil
}

// RunRecords filters and orders previously fetched records
func (p *Pipeline) RunRecords(ctx context.Context, records []*github.RepositoryRecord) (*Report, error) {
	records = dedupeRecords(records)

	results := p.fanOut(ctx, len(records), func(ctx context.Context, i int) Result {
		record := records[i]
		if res, done := p.gate(record.Org, record.Name); done {
			return res
		}
		return p.evaluate(ctx, record)
	})

	return p.report(results), nil
}

// Emit writes the entries of the report's candidates in order
func (p *Pipeline) Emit(report *Report, sink policy.Sink) ([]policy.Emitted, error) {
	emitted, err := policy.Emit(sink, policy.Entries(report.Candidates))
	for i, e := range emitted {
		last := report.Candidates[i].LastActivity
		if e.Err != nil {
			p.logger.Error("cannot write entry", "repo", e.Entry.Name, "err", e.Err)
			continue
		}
		p.logger.Info("wrote entry", "repo", e.Entry.Name, "path", e.Path,
			"last_commit", last.Format(time.DateOnly), "age", humanize.RelTime(last, p.now(), "ago", "from now"))
	}
	return emitted, err
}

// prepare builds the shared installation map and lists the organization's repositories
func (p *Pipeline) prepare(ctx context.Context) ([]*github.Repository, *github.Assembler, error) {
	installations, err := github.BuildInstallationMap(ctx, p.client, p.opts.Org)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Debug("built installation map", "repos", installations.Len())

	repos, err := p.client.ListRepositories(ctx, p.opts.Org)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list repositories of %s: %w", p.opts.Org, err)
	}
	repos = dedupeRepos(repos)
	p.logger.Info("listed repositories", "org", p.opts.Org, "count", len(repos))

	return repos, github.NewAssembler(p.client, installations), nil
}

// fanOut runs task for indexes [0, n) on a bounded pool; each task owns one result slot
func (p *Pipeline) fanOut(ctx context.Context, n int, task func(ctx context.Context, i int) Result) []Result {
	results := make([]Result, n)

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i] = task(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// gate applies the exclusion list and the managed set
func (p *Pipeline) gate(org, name string) (Result, bool) {
	if p.opts.Exclude != nil && p.opts.Exclude(name) {
		p.logger.Debug("skipping excluded repository", "repo", name)
		return Result{Name: name, Outcome: OutcomeExcluded}, true
	}

	if p.managed == nil {
		return Result{}, false
	}
	managed, err := p.managed.IsManaged(org, name)
	if err != nil {
		p.logger.Warn("cannot check managed state", "repo", name, "err", err)
		return Result{Name: name, Outcome: OutcomeFailed, Err: err}, true
	}
	if managed {
		p.logger.Debug("repository is already managed", "repo", name)
		return Result{Name: name, Outcome: OutcomeManaged}, true
	}
	return Result{}, false
}

// evaluate runs the activity filter on an assembled record
func (p *Pipeline) evaluate(ctx context.Context, record *github.RepositoryRecord) Result {
	outcome, last, err := p.activity.Check(ctx, record)
	res := Result{Name: record.Name, Outcome: outcome, Record: record, LastActivity: last, Err: err}

	switch outcome {
	case OutcomeFailed:
		p.logger.Warn("cannot check activity", "repo", record.Name, "err", err)
	case OutcomeArchived:
		p.logger.Debug("skipping archived repository", "repo", record.Name)
	case OutcomeInactive:
		p.logger.Info(record.Name+" is inactive", "repo", record.Name)
	case OutcomeNoTeams:
		p.logger.Info(record.Name+" has no teams", "repo", record.Name)
	}
	return res
}

func (p *Pipeline) report(results []Result) *Report {
	report := &Report{Results: results}
	for _, res := range results {
		if res.Outcome == OutcomeEligible {
			report.Candidates = append(report.Candidates, policy.Candidate{
				Record:       res.Record,
				LastActivity: res.LastActivity,
			})
		}
	}
	policy.SortByActivity(report.Candidates)
	return report
}

func (p *Pipeline) now() time.Time {
	if p.opts.Now != nil {
		return p.opts.Now()
	}
	return time.Now()
}

// dedupeRepos sorts repositories by name and keeps the first of each name
func dedupeRepos(repos []*github.Repository) []*github.Repository {
	sorted := slices.Clone(repos)
	slices.SortStableFunc(sorted, func(a, b *github.Repository) int {
		return strings.Compare(a.Name, b.Name)
	})
	return slices.CompactFunc(sorted, func(a, b *github.Repository) bool {
		return a.Name == b.Name
	})
}

// dedupeRecords sorts records by name and keeps the first of each name
func dedupeRecords(records []*github.RepositoryRecord) []*github.RepositoryRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b *github.RepositoryRecord) int {
		return strings.Compare(a.Name, b.Name)
	})
	return slices.CompactFunc(sorted, func(a, b *github.RepositoryRecord) bool {
		return a.Name == b.Name
	})
}
