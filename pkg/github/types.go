package github

import "time"

// Repository is an organization repository as returned by the repository listing
type Repository struct {
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	DefaultBranch string `json:"default_branch"`
	Archived      bool   `json:"archived"`
	Private       bool   `json:"private"`
}

// Permission levels a team can hold on a repository
const (
	PermissionRead     = "read"
	PermissionPull     = "pull"
	PermissionTriage   = "triage"
	PermissionWrite    = "write"
	PermissionPush     = "push"
	PermissionMaintain = "maintain"
	PermissionAdmin    = "admin"
)

// teamPermissions is the fixed vocabulary accepted for team grants
var teamPermissions = map[string]bool{
	PermissionRead:     true,
	PermissionPull:     true,
	PermissionTriage:   true,
	PermissionWrite:    true,
	PermissionPush:     true,
	PermissionMaintain: true,
	PermissionAdmin:    true,
}

// IsTeamPermission reports whether p belongs to the team permission vocabulary
func IsTeamPermission(p string) bool {
	return teamPermissions[p]
}

// TeamGrant represents a team's access to a repository
type TeamGrant struct {
	Name       string `json:"name"`
	Permission string `json:"permission"`
}

// Permissions is the raw permission bit-set of a collaborator
type Permissions struct {
	Admin    bool `json:"admin"`
	Maintain bool `json:"maintain"`
	Push     bool `json:"push"`
	Triage   bool `json:"triage"`
	Pull     bool `json:"pull"`
}

// CollaboratorGrant represents an individual's access to a repository
type CollaboratorGrant struct {
	Login       string      `json:"login"`
	Permissions Permissions `json:"permissions"`
}

// BranchProtectionRule represents one branch protection rule of a repository.
// PushAllowances are opaque actor references and are never resolved.
type BranchProtectionRule struct {
	Pattern             string   `json:"pattern"`
	StatusChecks        []string `json:"status_checks"`
	DismissStaleReviews bool     `json:"dismiss_stale_reviews"`
	ReviewRequired      bool     `json:"review_required"`
	RequiredApprovals   int      `json:"required_approvals"`
	RestrictPushes      bool     `json:"restrict_pushes"`
	PushAllowances      []string `json:"push_allowances"`
}

// AppInstallationRef identifies a GitHub App installation in the organization
type AppInstallationRef struct {
	ID      int64  `json:"id"`
	AppID   int64  `json:"app_id"`
	AppSlug string `json:"app_slug"`
}

// RepositoryRecord is the assembled access state of one repository.
// It is built once per run and must not be modified afterwards.
type RepositoryRecord struct {
	Name              string                 `json:"name"`
	Org               string                 `json:"org"`
	DefaultBranch     string                 `json:"default_branch"`
	Archived          bool                   `json:"archived"`
	Private           bool                   `json:"private"`
	Teams             []TeamGrant            `json:"teams"`
	Collaborators     []CollaboratorGrant    `json:"collaborators"`
	BranchProtections []BranchProtectionRule `json:"branch_protections"`
	Installations     []*AppInstallationRef  `json:"installations"`
}

// Commit is the subset of commit data needed for activity checks
type Commit struct {
	SHA        string    `json:"sha"`
	AuthorDate time.Time `json:"author_date"`
}
