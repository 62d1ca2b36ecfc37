package policy

import "backfill/pkg/github"

// Normalized permission labels written to policy entries
const (
	Admin    = "admin"
	Maintain = "maintain"
	Write    = "write"
	Triage   = "triage"
)

// CollaboratorPermission collapses a collaborator's permission bit-set into one label.
// Flags are checked in the order admin, maintain, push, triage and the first set flag wins.
// The second result is false for pull-only or empty grants, which are not represented.
func CollaboratorPermission(p github.Permissions) (string, bool) {
	switch {
	case p.Admin:
		return Admin, true
	case p.Maintain:
		return Maintain, true
	case p.Push:
		return Write, true
	case p.Triage:
		return Triage, true
	default:
		return "", false
	}
}

// TeamPermission normalizes a raw team permission. Only the legacy "push"
// is renamed; every other value passes through unchanged.
func TeamPermission(raw string) string {
	if raw == github.PermissionPush {
		return Write
	}
	return raw
}
