package policy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// FileExtension is the extension of policy artifacts
const FileExtension = ".toml"

// ArtifactPath returns the location of a repository's artifact under root
func ArtifactPath(root, org, name string) string {
	return filepath.Join(root, org, name+FileExtension)
}

// ManagedSet answers whether a policy artifact already exists for a repository.
// Managed repositories are never regenerated.
type ManagedSet interface {
	IsManaged(org, name string) (bool, error)
}

// Filesystem treats any artifact present on disk as managed
type Filesystem struct {
	Root string
}

// IsManaged reports whether the artifact file exists
func (f Filesystem) IsManaged(org, name string) (bool, error) {
	_, err := os.Stat(ArtifactPath(f.Root, org, name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat artifact for %s/%s: %w", org, name, err)
	}
}

// AnyOf treats a repository as managed when any of its sets does
type AnyOf []ManagedSet

// IsManaged reports whether any set manages the repository
func (a AnyOf) IsManaged(org, name string) (bool, error) {
	for _, set := range a {
		managed, err := set.IsManaged(org, name)
		if err != nil {
			return false, err
		}
		if managed {
			return true, nil
		}
	}
	return false, nil
}

// GitIndex treats artifacts tracked in the git index as managed, the same
// membership `git ls-files --error-unmatch` reports.
type GitIndex struct {
	root     string
	worktree string
	tracked  map[string]bool
}

// NewGitIndex opens the git repository containing root and snapshots its index
func NewGitIndex(root string) (*GitIndex, error) {
	absRoot, err := absPath(root)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainOpenWithOptions(absRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository containing %s: %w", root, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	worktree, err := absPath(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("failed to read git index: %w", err)
	}

	tracked := make(map[string]bool, len(idx.Entries))
	for _, entry := range idx.Entries {
		tracked[entry.Name] = true
	}

	return &GitIndex{
		root:     absRoot,
		worktree: worktree,
		tracked:  tracked,
	}, nil
}

// IsManaged reports whether the artifact path is tracked
func (g *GitIndex) IsManaged(org, name string) (bool, error) {
	rel, err := filepath.Rel(g.worktree, ArtifactPath(g.root, org, name))
	if err != nil {
		return false, fmt.Errorf("artifact for %s/%s is outside the worktree: %w", org, name, err)
	}
	return g.tracked[filepath.ToSlash(rel)], nil
}

// absPath resolves path to an absolute path with symlinks evaluated where possible
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
