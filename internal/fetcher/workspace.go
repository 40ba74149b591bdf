// Package fetcher materialises a GitHub repository's default branch into a
// private scratch directory. Two strategies exist: downloading the source
// archive (default) and a shallow git clone.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Fetcher turns a repository reference into a local Workspace.
type Fetcher interface {
	Fetch(ctx context.Context, owner, repo, token string) (*Workspace, error)
}

// Workspace is a fetched repository on disk. Callers must call Cleanup,
// usually via defer, once they are done with Dir.
type Workspace struct {
	Dir string
}

// Cleanup removes the workspace. It is safe to call more than once.
func (w *Workspace) Cleanup() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// newWorkspace creates a uniquely named directory under base so concurrent
// imports never share state on disk.
func newWorkspace(base string) (*Workspace, error) {
	if base == "" {
		base = filepath.Join(os.TempDir(), "repos")
	}
	dir := filepath.Join(base, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}
