package policy

import (
	"slices"
	"strings"
	"time"

	"backfill/pkg/github"
)

// Candidate is a repository eligible for generation together with its last activity
type Candidate struct {
	Record       *github.RepositoryRecord
	LastActivity time.Time
}

// SortByActivity orders candidates by last activity, most recent first, then by name
func SortByActivity(candidates []Candidate) {
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		return strings.Compare(a.Record.Name, b.Record.Name)
	})
}

// Entries builds the policy entries of sorted candidates, preserving their order
func Entries(candidates []Candidate) []AccessPolicyEntry {
	entries := make([]AccessPolicyEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, NewEntry(c.Record))
	}
	return entries
}
