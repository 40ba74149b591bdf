package fetcher

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ArchiveDownloader streams the zip archive of a repository's default
// branch into w.
type ArchiveDownloader interface {
	DownloadArchive(ctx context.Context, owner, repo, token string, w io.Writer) error
}

// ArchiveFetcher downloads the HEAD zipball and unpacks it.
type ArchiveFetcher struct {
	downloader ArchiveDownloader
	baseDir    string
}

// NewArchiveFetcher builds an ArchiveFetcher that creates workspaces under
// baseDir.
func NewArchiveFetcher(d ArchiveDownloader, baseDir string) *ArchiveFetcher {
	return &ArchiveFetcher{downloader: d, baseDir: baseDir}
}

func (f *ArchiveFetcher) Fetch(ctx context.Context, owner, repo, token string) (*Workspace, error) {
	ws, err := newWorkspace(f.baseDir)
	if err != nil {
		return nil, fetchErr("prepare", err)
	}

	zipPath := ws.Dir + ".zip"
	defer os.Remove(zipPath)

	if err := f.download(ctx, owner, repo, token, zipPath); err != nil {
		_ = ws.Cleanup()
		return nil, fetchErr("download", err)
	}
	if err := extractZip(zipPath, ws.Dir); err != nil {
		_ = ws.Cleanup()
		return nil, fetchErr("extract", err)
	}

	log.Info().Str("repo", owner+"/"+repo).Str("dir", ws.Dir).Msg("repository archive extracted")
	return ws, nil
}

func (f *ArchiveFetcher) download(ctx context.Context, owner, repo, token, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := f.downloader.DownloadArchive(ctx, owner, repo, token, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// extractZip unpacks src into dst. When every entry lives under one
// top-level directory, as in host-generated archives, that directory is
// stripped so the repository root becomes dst.
func extractZip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	prefix := commonTopDir(r.File)
	root := filepath.Clean(dst) + string(os.PathSeparator)

	for _, zf := range r.File {
		name := strings.TrimPrefix(zf.Name, prefix)
		if name == "" {
			continue
		}
		target := filepath.Join(dst, filepath.FromSlash(name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry %q escapes workspace", zf.Name)
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !zf.Mode().IsRegular() {
			continue
		}
		if err := writeEntry(zf, target); err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
	}
	return nil
}

func writeEntry(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if zf.Modified.IsZero() {
		return nil
	}
	return os.Chtimes(target, zf.Modified, zf.Modified)
}

// commonTopDir returns "dir/" when all entries share that single top-level
// directory, otherwise "".
func commonTopDir(entries []*zip.File) string {
	top := ""
	for _, zf := range entries {
		name := path.Clean(strings.TrimPrefix(zf.Name, "/"))
		first, _, found := strings.Cut(name, "/")
		if !found && !zf.FileInfo().IsDir() {
			return ""
		}
		if top == "" {
			top = first
		} else if top != first {
			return ""
		}
	}
	if top == "" {
		return ""
	}
	return top + "/"
}
