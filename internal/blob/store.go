// Package blob provides access to uploaded document files by reference.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("file not found")

// Store retrieves uploaded file contents by opaque reference.
// The reference format is owned by whoever performed the upload.
type Store interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// FSStore resolves references as paths relative to a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

// Get reads the file for the given reference.
// References must stay inside the root directory.
func (s *FSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("invalid file reference %q", ref)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("read file %s: %w", ref, err)
	}
	return data, nil
}
