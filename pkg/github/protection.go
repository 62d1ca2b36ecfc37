package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"
)

// Actor type names accepted as push allowances
const (
	actorUser = "User"
	actorTeam = "Team"
	actorApp  = "App"
)

// branchProtectionQuery fetches the branch protection rules of one repository
// together with their push allowances.
type branchProtectionQuery struct {
	Repository *struct {
		BranchProtectionRules struct {
			Edges []struct {
				Node *branchProtectionNode
			}
		} `graphql:"branchProtectionRules(first: $maxRules)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type branchProtectionNode struct {
	Pattern                      string
	DismissesStaleReviews        bool
	RequiresApprovingReviews     bool
	RequiredApprovingReviewCount *int
	RestrictsPushes              bool
	RequiredStatusChecks         []struct {
		Context string
	}
	PushAllowances struct {
		Nodes []struct {
			ID    string
			Actor *pushAllowanceActor
		}
	} `graphql:"pushAllowances(first: $maxAllowances)"`
}

type pushAllowanceActor struct {
	Typename string `graphql:"__typename"`
	User     struct {
		Login string
	} `graphql:"... on User"`
	Team struct {
		Name string
	} `graphql:"... on Team"`
	App struct {
		Slug string
	} `graphql:"... on App"`
}

// ListBranchProtectionRules fetches up to MaxBranchRules protection rules in a single query
func (c *Client) ListBranchProtectionRules(ctx context.Context, owner, repo string) ([]BranchProtectionRule, error) {
	resource := fmt.Sprintf("branch protection rules for %s/%s", owner, repo)
	variables := map[string]interface{}{
		"owner":         githubv4.String(owner),
		"name":          githubv4.String(repo),
		"maxRules":      githubv4.Int(c.opts.MaxBranchRules),
		"maxAllowances": githubv4.Int(c.opts.MaxPushAllowances),
	}

	var query branchProtectionQuery
	err := WithRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return WrapGitHubError(err, resource)
		}
		query = branchProtectionQuery{}
		if err := c.graphql.Query(ctx, &query, variables); err != nil {
			return WrapGitHubError(err, resource)
		}
		return nil
	}, c.opts.Retry)
	if err != nil {
		return nil, err
	}

	return decodeBranchProtections(resource, &query)
}

// decodeBranchProtections converts the query response into strict rules.
// Rules sharing a pattern are kept as separate entries.
func decodeBranchProtections(resource string, query *branchProtectionQuery) ([]BranchProtectionRule, error) {
	if query.Repository == nil {
		return nil, &GitHubError{Type: ErrorTypeNotFound, Message: "repository not returned by query", Resource: resource}
	}

	edges := query.Repository.BranchProtectionRules.Edges
	rules := make([]BranchProtectionRule, 0, len(edges))
	for i, edge := range edges {
		node := edge.Node
		if node == nil {
			return nil, NewDecodeError(resource, "rule %d has no node", i)
		}
		if node.Pattern == "" {
			return nil, NewDecodeError(resource, "rule %d has no pattern", i)
		}

		rule := BranchProtectionRule{
			Pattern:             node.Pattern,
			StatusChecks:        make([]string, 0, len(node.RequiredStatusChecks)),
			DismissStaleReviews: node.DismissesStaleReviews,
			ReviewRequired:      node.RequiresApprovingReviews,
			RestrictPushes:      node.RestrictsPushes,
			PushAllowances:      make([]string, 0, len(node.PushAllowances.Nodes)),
		}
		if node.RequiredApprovingReviewCount != nil {
			if *node.RequiredApprovingReviewCount < 0 {
				return nil, NewDecodeError(resource, "rule %s has negative approval count %d", node.Pattern, *node.RequiredApprovingReviewCount)
			}
			rule.RequiredApprovals = *node.RequiredApprovingReviewCount
		}
		for _, check := range node.RequiredStatusChecks {
			rule.StatusChecks = append(rule.StatusChecks, check.Context)
		}
		for _, allowance := range node.PushAllowances.Nodes {
			token, err := pushAllowanceToken(allowance.Actor)
			if err != nil {
				return nil, NewDecodeError(resource, "rule %s: %v", node.Pattern, err)
			}
			rule.PushAllowances = append(rule.PushAllowances, token)
		}

		rules = append(rules, rule)
	}
	return rules, nil
}

// pushAllowanceToken renders an actor as an opaque "<Type>:<identifier>" token
func pushAllowanceToken(actor *pushAllowanceActor) (string, error) {
	if actor == nil {
		return "", fmt.Errorf("push allowance without actor")
	}

	var id string
	switch actor.Typename {
	case actorUser:
		id = actor.User.Login
	case actorTeam:
		id = actor.Team.Name
	case actorApp:
		id = actor.App.Slug
	default:
		return "", fmt.Errorf("unexpected push allowance actor type %q", actor.Typename)
	}
	if id == "" {
		return "", fmt.Errorf("%s push allowance without identifier", actor.Typename)
	}
	return actor.Typename + ":" + id, nil
}
