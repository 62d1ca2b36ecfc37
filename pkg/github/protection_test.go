package github

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const protectionResponse = `{
  "data": {
    "repository": {
      "branchProtectionRules": {
        "edges": [
          {
            "node": {
              "pattern": "main",
              "dismissesStaleReviews": true,
              "requiresApprovingReviews": true,
              "requiredApprovingReviewCount": 2,
              "restrictsPushes": true,
              "requiredStatusChecks": [{"context": "ci/build"}, {"context": "ci/test"}],
              "pushAllowances": {
                "nodes": [
                  {"id": "PA_1", "actor": {"__typename": "User", "login": "alice"}},
                  {"id": "PA_2", "actor": {"__typename": "Team", "name": "release"}},
                  {"id": "PA_3", "actor": {"__typename": "App", "slug": "merge-bot"}}
                ]
              }
            }
          },
          {
            "node": {
              "pattern": "main",
              "dismissesStaleReviews": false,
              "requiresApprovingReviews": false,
              "requiredApprovingReviewCount": null,
              "restrictsPushes": false,
              "requiredStatusChecks": [],
              "pushAllowances": {"nodes": []}
            }
          }
        ]
      }
    }
  }
}`

func TestListBranchProtectionRules(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "branchProtectionRules(first: $maxRules)")
		assert.Contains(t, req.Query, "pushAllowances(first: $maxAllowances)")
		assert.Equal(t, "acme", req.Variables["owner"])
		assert.Equal(t, "widget", req.Variables["name"])
		assert.EqualValues(t, 5, req.Variables["maxRules"])
		assert.EqualValues(t, 3, req.Variables["maxAllowances"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(protectionResponse)) //nolint:errcheck
	})

	client := newTestClient(t, mux, ClientOptions{MaxBranchRules: 5, MaxPushAllowances: 3})
	rules, err := client.ListBranchProtectionRules(context.Background(), "acme", "widget")
	require.NoError(t, err)

	// rules sharing a pattern are not merged
	require.Len(t, rules, 2)
	assert.Equal(t, BranchProtectionRule{
		Pattern:             "main",
		StatusChecks:        []string{"ci/build", "ci/test"},
		DismissStaleReviews: true,
		ReviewRequired:      true,
		RequiredApprovals:   2,
		RestrictPushes:      true,
		PushAllowances:      []string{"User:alice", "Team:release", "App:merge-bot"},
	}, rules[0])
	assert.Equal(t, 0, rules[1].RequiredApprovals)
	assert.Empty(t, rules[1].PushAllowances)
}

func TestListBranchProtectionRules_MissingRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"repository": null}, "errors": [{"message": "Could not resolve to a Repository with the name 'acme/gone'."}]}`)) //nolint:errcheck
	})

	client := newTestClient(t, mux, ClientOptions{})
	_, err := client.ListBranchProtectionRules(context.Background(), "acme", "gone")
	assert.True(t, IsErrorType(err, ErrorTypeNotFound), "got %v", err)
}

func TestDecodeBranchProtections(t *testing.T) {
	node := func(pattern string, count *int, actors ...*pushAllowanceActor) *branchProtectionNode {
		n := &branchProtectionNode{Pattern: pattern, RequiredApprovingReviewCount: count}
		for _, actor := range actors {
			n.PushAllowances.Nodes = append(n.PushAllowances.Nodes, struct {
				ID    string
				Actor *pushAllowanceActor
			}{ID: "PA", Actor: actor})
		}
		return n
	}
	query := func(nodes ...*branchProtectionNode) *branchProtectionQuery {
		q := &branchProtectionQuery{}
		q.Repository = &struct {
			BranchProtectionRules struct {
				Edges []struct {
					Node *branchProtectionNode
				}
			} `graphql:"branchProtectionRules(first: $maxRules)"`
		}{}
		for _, n := range nodes {
			q.Repository.BranchProtectionRules.Edges = append(q.Repository.BranchProtectionRules.Edges, struct {
				Node *branchProtectionNode
			}{Node: n})
		}
		return q
	}
	negative := -1

	tests := []struct {
		name     string
		query    *branchProtectionQuery
		wantType ErrorType
	}{
		{name: "repository missing", query: &branchProtectionQuery{}, wantType: ErrorTypeNotFound},
		{name: "node missing", query: query(nil), wantType: ErrorTypeDecode},
		{name: "empty pattern", query: query(node("", nil)), wantType: ErrorTypeDecode},
		{name: "negative approvals", query: query(node("main", &negative)), wantType: ErrorTypeDecode},
		{name: "unknown actor", query: query(node("main", nil, &pushAllowanceActor{Typename: "Bot"})), wantType: ErrorTypeDecode},
		{name: "actor without identifier", query: query(node("main", nil, &pushAllowanceActor{Typename: "User"})), wantType: ErrorTypeDecode},
		{name: "missing actor", query: query(node("main", nil, nil)), wantType: ErrorTypeDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeBranchProtections("rules", tt.query)
			assert.True(t, IsErrorType(err, tt.wantType), "got %v", err)
		})
	}
}
