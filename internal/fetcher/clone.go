package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog/log"
)

// CloneFetcher performs an authenticated clone of the default branch and
// strips the .git directory so only the working tree remains.
type CloneFetcher struct {
	baseDir string
	// BaseURL is the clone host, "https://github.com" unless overridden.
	BaseURL string
	// Depth limits history; 0 clones everything.
	Depth int
}

// NewCloneFetcher returns a shallow (depth 1) clone fetcher.
func NewCloneFetcher(baseDir string) *CloneFetcher {
	return &CloneFetcher{baseDir: baseDir, BaseURL: "https://github.com", Depth: 1}
}

func (f *CloneFetcher) Fetch(ctx context.Context, owner, repo, token string) (*Workspace, error) {
	ws, err := newWorkspace(f.baseDir)
	if err != nil {
		return nil, fetchErr("prepare", err)
	}

	opts := &git.CloneOptions{
		URL:          fmt.Sprintf("%s/%s/%s", f.BaseURL, owner, repo),
		Depth:        f.Depth,
		SingleBranch: true,
	}
	if token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: token}
	}

	if _, err := git.PlainCloneContext(ctx, ws.Dir, false, opts); err != nil {
		_ = ws.Cleanup()
		return nil, fetchErr("clone", err)
	}
	if err := os.RemoveAll(filepath.Join(ws.Dir, ".git")); err != nil {
		_ = ws.Cleanup()
		return nil, fetchErr("clone", err)
	}

	log.Info().Str("repo", owner+"/"+repo).Str("dir", ws.Dir).Msg("repository cloned")
	return ws, nil
}
