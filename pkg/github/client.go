package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// ClientOptions tunes page sizes, caps and endpoints of a Client
type ClientOptions struct {
	// PageSize is the page size of every paginated list request
	PageSize int
	// CommitPageSize is the size of the single commit page used for activity checks
	CommitPageSize int
	// MaxBranchRules caps the branch protection rules fetched per repository
	MaxBranchRules int
	// MaxPushAllowances caps the push allowances fetched per rule
	MaxPushAllowances int

	// APIURL and GraphQLURL point the client at GitHub Enterprise when set
	APIURL     string
	GraphQLURL string

	Retry       *RetryConfig
	RateLimiter RateLimiter
}

// DefaultClientOptions returns the options used when none are given
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		PageSize:          100,
		CommitPageSize:    50,
		MaxBranchRules:    10,
		MaxPushAllowances: 100,
	}
}

// Client implements the APIClient interface using the GitHub REST and GraphQL APIs
type Client struct {
	client  *github.Client
	graphql *githubv4.Client
	opts    ClientOptions
	limiter RateLimiter
}

var _ APIClient = (*Client)(nil)

// NewClient creates a new GitHub API client with the provided token
func NewClient(token string, opts ClientOptions) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return NewClientWithHTTPClient(oauth2.NewClient(context.Background(), ts), opts)
}

// NewClientWithHTTPClient creates a client on top of an already authenticated http.Client
func NewClientWithHTTPClient(httpClient *http.Client, opts ClientOptions) (*Client, error) {
	defaults := DefaultClientOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.CommitPageSize <= 0 {
		opts.CommitPageSize = defaults.CommitPageSize
	}
	if opts.MaxBranchRules <= 0 {
		opts.MaxBranchRules = defaults.MaxBranchRules
	}
	if opts.MaxPushAllowances <= 0 {
		opts.MaxPushAllowances = defaults.MaxPushAllowances
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = NewRateLimiter(nil)
	}

	rest := github.NewClient(httpClient)
	if opts.APIURL != "" {
		base := opts.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		var err error
		rest, err = rest.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.APIURL, err)
		}
	}

	v4 := githubv4.NewClient(httpClient)
	if opts.GraphQLURL != "" {
		v4 = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	return &Client{
		client:  rest,
		graphql: v4,
		opts:    opts,
		limiter: opts.RateLimiter,
	}, nil
}

// call paces a single request through the rate limiter and records the reported limits
func (c *Client) call(ctx context.Context, op func() (*github.Response, error)) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := op()
	if resp != nil && resp.Rate.Limit > 0 {
		c.limiter.UpdateLimits(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
	return err
}

// RateLimitStats returns the pacing statistics gathered so far
func (c *Client) RateLimitStats() RateLimiterStats {
	return c.limiter.GetStats()
}

// ListRepositories lists every repository of the organization
func (c *Client) ListRepositories(ctx context.Context, org string) ([]*Repository, error) {
	repos, err := CollectAll(ctx, fmt.Sprintf("repositories of %s", org), c.opts.PageSize, c.opts.Retry,
		func(ctx context.Context, opts github.ListOptions) ([]*github.Repository, int, error) {
			var page []*github.Repository
			var resp *github.Response
			err := c.call(ctx, func() (*github.Response, error) {
				var err error
				page, resp, err = c.client.Repositories.ListByOrg(ctx, org, &github.RepositoryListByOrgOptions{ListOptions: opts})
				return resp, err
			})
			if err != nil {
				return nil, 0, err
			}
			return page, resp.NextPage, nil
		})
	if err != nil {
		return nil, err
	}

	result := make([]*Repository, 0, len(repos))
	for _, repo := range repos {
		if repo.GetName() == "" {
			return nil, NewDecodeError(fmt.Sprintf("repositories of %s", org), "repository without a name")
		}
		owner := repo.GetOwner().GetLogin()
		if owner == "" {
			owner = org
		}
		result = append(result, &Repository{
			Name:          repo.GetName(),
			Owner:         owner,
			DefaultBranch: repo.GetDefaultBranch(),
			Archived:      repo.GetArchived(),
			Private:       repo.GetPrivate(),
		})
	}
	return result, nil
}

// ListInstallations lists the GitHub App installations of the organization
func (c *Client) ListInstallations(ctx context.Context, org string) ([]*AppInstallationRef, error) {
	resource := fmt.Sprintf("installations of %s", org)
	installations, err := CollectAll(ctx, resource, c.opts.PageSize, c.opts.Retry,
		func(ctx context.Context, opts github.ListOptions) ([]*github.Installation, int, error) {
			var page *github.OrganizationInstallations
			var resp *github.Response
			err := c.call(ctx, func() (*github.Response, error) {
				var err error
				page, resp, err = c.client.Organizations.ListInstallations(ctx, org, &opts)
				return resp, err
			})
			if err != nil {
				return nil, 0, err
			}
			return page.Installations, resp.NextPage, nil
		})
	if err != nil {
		return nil, err
	}

	result := make([]*AppInstallationRef, 0, len(installations))
	for _, inst := range installations {
		if inst.ID == nil {
			return nil, NewDecodeError(resource, "installation without an id")
		}
		result = append(result, &AppInstallationRef{
			ID:      inst.GetID(),
			AppID:   inst.GetAppID(),
			AppSlug: inst.GetAppSlug(),
		})
	}
	return result, nil
}

// ListInstallationRepositories lists the names of repositories an installation can access
func (c *Client) ListInstallationRepositories(ctx context.Context, installationID int64) ([]string, error) {
	resource := fmt.Sprintf("repositories of installation %d", installationID)
	repos, err := CollectAll(ctx, resource, c.opts.PageSize, c.opts.Retry,
		func(ctx context.Context, opts github.ListOptions) ([]*github.Repository, int, error) {
			var page *github.ListRepositories
			var resp *github.Response
			err := c.call(ctx, func() (*github.Response, error) {
				var err error
				page, resp, err = c.client.Apps.ListUserRepos(ctx, installationID, &opts)
				return resp, err
			})
			if err != nil {
				return nil, 0, err
			}
			return page.Repositories, resp.NextPage, nil
		})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(repos))
	for _, repo := range repos {
		if repo.GetName() == "" {
			return nil, NewDecodeError(resource, "repository without a name")
		}
		names = append(names, repo.GetName())
	}
	return names, nil
}

// ListTeams lists all team grants for a repository
func (c *Client) ListTeams(ctx context.Context, owner, repo string) ([]TeamGrant, error) {
	resource := fmt.Sprintf("teams for %s/%s", owner, repo)
	teams, err := CollectAll(ctx, resource, c.opts.PageSize, c.opts.Retry,
		func(ctx context.Context, opts github.ListOptions) ([]*github.Team, int, error) {
			var page []*github.Team
			var resp *github.Response
			err := c.call(ctx, func() (*github.Response, error) {
				var err error
				page, resp, err = c.client.Repositories.ListTeams(ctx, owner, repo, &opts)
				return resp, err
			})
			if err != nil {
				return nil, 0, err
			}
			return page, resp.NextPage, nil
		})
	if err != nil {
		return nil, err
	}

	grants := make([]TeamGrant, 0, len(teams))
	for _, team := range teams {
		grant, err := convertTeam(team)
		if err != nil {
			return nil, WrapGitHubError(err, resource)
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

// ListCollaborators lists all collaborators for a repository
func (c *Client) ListCollaborators(ctx context.Context, owner, repo string) ([]CollaboratorGrant, error) {
	resource := fmt.Sprintf("collaborators for %s/%s", owner, repo)
	users, err := CollectAll(ctx, resource, c.opts.PageSize, c.opts.Retry,
		func(ctx context.Context, opts github.ListOptions) ([]*github.User, int, error) {
			var page []*github.User
			var resp *github.Response
			err := c.call(ctx, func() (*github.Response, error) {
				var err error
				page, resp, err = c.client.Repositories.ListCollaborators(ctx, owner, repo,
					&github.ListCollaboratorsOptions{ListOptions: opts})
				return resp, err
			})
			if err != nil {
				return nil, 0, err
			}
			return page, resp.NextPage, nil
		})
	if err != nil {
		return nil, err
	}

	grants := make([]CollaboratorGrant, 0, len(users))
	for _, user := range users {
		if user.GetLogin() == "" {
			return nil, NewDecodeError(resource, "collaborator without a login")
		}
		grants = append(grants, CollaboratorGrant{
			Login: user.GetLogin(),
			Permissions: Permissions{
				Admin:    user.Permissions["admin"],
				Maintain: user.Permissions["maintain"],
				Push:     user.Permissions["push"],
				Triage:   user.Permissions["triage"],
				Pull:     user.Permissions["pull"],
			},
		})
	}
	return grants, nil
}

// LatestCommit fetches a single bounded page of commits on branch since the given time
func (c *Client) LatestCommit(ctx context.Context, owner, repo, branch string, since time.Time) (*Commit, error) {
	resource := fmt.Sprintf("commits for %s/%s:%s", owner, repo, branch)
	opts := &github.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		ListOptions: github.ListOptions{PerPage: c.opts.CommitPageSize},
	}

	var commits []*github.RepositoryCommit
	err := WithRetry(ctx, func() error {
		err := c.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			commits, resp, err = c.client.Repositories.ListCommits(ctx, owner, repo, opts)
			return resp, err
		})
		if err != nil {
			return WrapGitHubError(err, resource)
		}
		return nil
	}, c.opts.Retry)
	if err != nil {
		// GitHub answers 409 for repositories without any commit
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusConflict {
			return nil, nil
		}
		return nil, err
	}

	if len(commits) == 0 {
		return nil, nil
	}

	latest := commits[0]
	author := latest.GetCommit().GetAuthor()
	if author == nil || author.Date == nil {
		return nil, NewDecodeError(resource, "commit %s has no author date", latest.GetSHA())
	}
	return &Commit{
		SHA:        latest.GetSHA(),
		AuthorDate: author.Date.Time,
	}, nil
}

// convertTeam converts a GitHub API team into a TeamGrant, rejecting unknown permissions
func convertTeam(team *github.Team) (TeamGrant, error) {
	if team.GetName() == "" {
		return TeamGrant{}, NewDecodeError("", "team without a name")
	}
	permission := strings.ToLower(team.GetPermission())
	if !IsTeamPermission(permission) {
		return TeamGrant{}, NewDecodeError("", "team %s has unknown permission %q", team.GetName(), team.GetPermission())
	}
	return TeamGrant{
		Name:       team.GetName(),
		Permission: permission,
	}, nil
}
