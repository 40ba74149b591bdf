package files

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/ahmednasr/firstcommit/internal/models"
)

// Stats summarises one ProcessDirectory run.
type Stats struct {
	Found    int
	Included int
	Skipped  map[Reason]int
}

// SkippedTotal is the number of files left out for any reason.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

func (s *Stats) skip(r Reason) {
	if s.Skipped == nil {
		s.Skipped = make(map[Reason]int)
	}
	s.Skipped[r]++
}

// ProcessDirectory walks root and returns every file eligible for indexing,
// with paths relative to root using forward slashes. Problems with a single
// file are logged and the file is skipped; only a failure to walk root
// itself, or ctx cancellation, is returned as an error.
func ProcessDirectory(ctx context.Context, root string) ([]models.FileContent, Stats, error) {
	var (
		out   []models.FileContent
		stats Stats
	)
	logger := log.With().Str("component", "files").Str("root", root).Logger()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if IsSkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		stats.Found++

		info, infoErr := d.Info()
		if infoErr != nil {
			logger.Warn().Err(infoErr).Str("path", rel).Msg("skipping file")
			stats.skip(Unreadable)
			return nil
		}

		if reason := Classify(rel, info.Size()); reason != Included {
			logger.Debug().Str("path", rel).Int64("size", info.Size()).Str("reason", string(reason)).Msg("skipping file")
			stats.skip(reason)
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warn().Err(readErr).Str("path", rel).Msg("skipping file")
			stats.skip(Unreadable)
			return nil
		}
		if !utf8.Valid(data) {
			logger.Debug().Str("path", rel).Msg("skipping file with invalid UTF-8")
			stats.skip(Binary)
			return nil
		}
		content := string(data)
		if ExceedsLineCap(content) {
			logger.Debug().Str("path", rel).Msg("skipping file with too many lines")
			stats.skip(TooManyLines)
			return nil
		}
		// nothing to embed; a row without vectors would read as drift
		if strings.TrimSpace(content) == "" {
			logger.Debug().Str("path", rel).Msg("skipping blank file")
			stats.skip(Blank)
			return nil
		}

		out = append(out, models.FileContent{
			Path:         rel,
			Content:      content,
			Language:     LanguageOf(rel),
			SizeBytes:    info.Size(),
			LastModified: info.ModTime().UTC(),
		})
		stats.Included++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	logger.Info().
		Int("found", stats.Found).
		Int("included", stats.Included).
		Int("skipped", stats.SkippedTotal()).
		Msg("repository processing complete")
	return out, stats, nil
}
