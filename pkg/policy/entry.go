package policy

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"backfill/pkg/github"
)

// AccessPolicyEntry is the generated policy artifact of one repository
type AccessPolicyEntry struct {
	Org         string   `toml:"org" json:"org"`
	Name        string   `toml:"name" json:"name"`
	Description string   `toml:"description" json:"description"`
	Bots        []string `toml:"bots" json:"bots"`
	Access      Access   `toml:"access" json:"access"`
}

// Access lists the normalized permissions of teams and individuals
type Access struct {
	Teams       map[string]string `toml:"teams" json:"teams"`
	Individuals map[string]string `toml:"individuals,omitempty" json:"individuals,omitempty"`
}

// NewEntry builds the policy entry of a record. Description and bots are left
// empty for manual curation.
func NewEntry(record *github.RepositoryRecord) AccessPolicyEntry {
	teams := make(map[string]string, len(record.Teams))
	for _, team := range record.Teams {
		teams[team.Name] = TeamPermission(team.Permission)
	}

	individuals := make(map[string]string)
	for _, collaborator := range record.Collaborators {
		if permission, ok := CollaboratorPermission(collaborator.Permissions); ok {
			individuals[collaborator.Login] = permission
		}
	}

	return AccessPolicyEntry{
		Org:         record.Org,
		Name:        record.Name,
		Description: "",
		Bots:        []string{},
		Access: Access{
			Teams:       teams,
			Individuals: individuals,
		},
	}
}

// Render encodes the entry in its on-disk TOML format
func (e AccessPolicyEntry) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode entry for %s/%s: %w", e.Org, e.Name, err)
	}
	return buf.Bytes(), nil
}
