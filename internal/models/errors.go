package models

import (
	"errors"
	"regexp"
)

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by stores when an insert collides with a
	// unique key.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidRepoURL is returned for URLs that do not name a GitHub repository.
	ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

	// ErrImportInProgress is returned by a synchronous import when another
	// import of the same repository is already running in this process.
	ErrImportInProgress = errors.New("import already in progress")
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(https?://)[^/@\s]+@`),
	regexp.MustCompile(`\b(ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{10,}\b`),
	regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{10,}\b`),
	regexp.MustCompile(`(?i)(bearer|token)\s+[A-Za-z0-9._\-]{10,}`),
}

// SafeErrorMessage renders err for storage in a user-visible status record,
// redacting credentials that may have leaked into URLs or messages.
func SafeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = secretPatterns[0].ReplaceAllString(msg, "${1}***@")
	for _, re := range secretPatterns[1:] {
		msg = re.ReplaceAllString(msg, "***")
	}
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return msg
}
