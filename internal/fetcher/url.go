package fetcher

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ahmednasr/firstcommit/internal/models"
)

// ParseGitHubURL extracts owner and repository name from a GitHub web,
// clone or SSH URL. Extra path segments (tree/main/..., issues) are ignored.
func ParseGitHubURL(raw string) (owner, repo string, err error) {
	raw = strings.TrimSpace(raw)
	var path string

	switch {
	case strings.HasPrefix(raw, "git@github.com:"):
		path = strings.TrimPrefix(raw, "git@github.com:")
	default:
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", "", fmt.Errorf("%w: %v", models.ErrInvalidRepoURL, perr)
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if host != "github.com" || (u.Scheme != "https" && u.Scheme != "http") {
			return "", "", fmt.Errorf("%w: %q", models.ErrInvalidRepoURL, raw)
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %q", models.ErrInvalidRepoURL, raw)
	}
	owner = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("%w: %q", models.ErrInvalidRepoURL, raw)
	}
	return owner, repo, nil
}
