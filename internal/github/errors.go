package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v61/github"
)

var (
	// ErrCredentialExpired is returned when GitHub rejects the user's token.
	// Callers should ask the user to re-authenticate rather than retry.
	ErrCredentialExpired = errors.New("GITHUB_TOKEN_EXPIRED")

	// ErrNotFound is returned when the repository does not exist or the
	// token cannot see it.
	ErrNotFound = errors.New("github: not found")
)

// classify maps go-github errors onto the package sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("github: %s: %w", op, ErrCredentialExpired)
		case http.StatusNotFound:
			return fmt.Errorf("github: %s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("github: %s: %w", op, err)
}
