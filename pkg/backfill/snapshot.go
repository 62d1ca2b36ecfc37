package backfill

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"backfill/pkg/github"
)

// WriteSnapshot encodes records as an indented JSON array
func WriteSnapshot(w io.Writer, records []*github.RepositoryRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes records previously written by WriteSnapshot
func ReadSnapshot(path string) ([]*github.RepositoryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var records []*github.RepositoryRecord
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	for i, record := range records {
		if record == nil || record.Name == "" || record.Org == "" {
			return nil, fmt.Errorf("snapshot %s: record %d has no name or org", path, i)
		}
		for _, team := range record.Teams {
			if !github.IsTeamPermission(team.Permission) {
				return nil, github.NewDecodeError(fmt.Sprintf("snapshot %s", path),
					"team %s of %s has unknown permission %q", team.Name, record.Name, team.Permission)
			}
		}
	}
	return records, nil
}
