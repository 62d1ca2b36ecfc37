package policy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ErrArtifactExists is returned when an artifact is already present at the target path
var ErrArtifactExists = errors.New("artifact already exists")

// Sink stores a rendered policy entry and returns where it went
type Sink interface {
	Write(entry AccessPolicyEntry) (string, error)
}

// FileSink writes each entry to <root>/<org>/<name>.toml and never overwrites
type FileSink struct {
	Root string
}

// Write renders entry to a temporary file and links it into place, so readers
// never observe a partially written artifact.
func (s FileSink) Write(entry AccessPolicyEntry) (string, error) {
	data, err := entry.Render()
	if err != nil {
		return "", err
	}

	path := ArtifactPath(s.Root, entry.Org, entry.Name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+entry.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for %s: %w", entry.Name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("failed to set mode of %s: %w", tmp.Name(), err)
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", path, ErrArtifactExists)
		}
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriterSink renders entries to a single writer, separated by a header comment
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

// Write appends the rendered entry to the writer
func (s *WriterSink) Write(entry AccessPolicyEntry) (string, error) {
	data, err := entry.Render()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := ArtifactPath("", entry.Org, entry.Name)
	if _, err := fmt.Fprintf(s.W, "# %s\n%s\n", path, data); err != nil {
		return "", fmt.Errorf("failed to print %s: %w", path, err)
	}
	return path, nil
}

// Emitted is the outcome of emitting one entry
type Emitted struct {
	Entry AccessPolicyEntry
	Path  string
	Err   error
}

// Emit writes every entry in order. A failure for one entry does not stop the
// others; all failures are returned together.
func Emit(sink Sink, entries []AccessPolicyEntry) ([]Emitted, error) {
	var errs *multierror.Error
	results := make([]Emitted, 0, len(entries))
	for _, entry := range entries {
		path, err := sink.Write(entry)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", entry.Name, err))
		}
		results = append(results, Emitted{Entry: entry, Path: path, Err: err})
	}
	return results, errs.ErrorOrNil()
}
