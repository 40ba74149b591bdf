package models

import (
	"fmt"
	"time"
)

// RepoStatus is the lifecycle state of an imported repository.
type RepoStatus string

const (
	StatusQueued    RepoStatus = "queued"
	StatusImporting RepoStatus = "importing"
	StatusAnalyzing RepoStatus = "analyzing"
	StatusReady     RepoStatus = "ready"
	StatusError     RepoStatus = "error"
)

// Terminal reports whether no import is expected to move the status further.
func (s RepoStatus) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Repository is one row per distinct GitHub repository, shared by every user
// that imported it. Rows are deduplicated on GitHubID, never on URL.
type Repository struct {
	ID            string     `bson:"_id"            json:"id"`
	GitHubID      int64      `bson:"github_id"      json:"github_id"`
	Owner         string     `bson:"owner"          json:"owner"`
	Name          string     `bson:"name"           json:"name"`
	FullName      string     `bson:"full_name"      json:"full_name"`
	Description   string     `bson:"description"    json:"description"`
	DefaultBranch string     `bson:"default_branch" json:"default_branch"`
	IsPrivate     bool       `bson:"is_private"     json:"is_private"`
	StarsCount    int        `bson:"stars_count"    json:"stars_count"`
	Status        RepoStatus `bson:"status"         json:"status"`
	CurrentStage  string     `bson:"current_stage"  json:"current_stage"`
	ErrorMessage  string     `bson:"error_message"  json:"error_message,omitempty"`
	LastAnalyzed  *time.Time `bson:"last_analyzed"  json:"last_analyzed"`
	CreatedAt     time.Time  `bson:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"     json:"updated_at"`
}

// StatusReport is the progress record polled by the UI while an import runs.
func (r Repository) StatusReport() StatusReport {
	stage := r.CurrentStage
	if stage == "" {
		stage = "Processing"
	}
	return StatusReport{
		ID:           r.ID,
		Status:       r.Status,
		CurrentStage: stage,
		ErrorMessage: r.ErrorMessage,
		LastAnalyzed: r.LastAnalyzed,
	}
}

// StatusReport is the sole progress contract exposed to callers.
type StatusReport struct {
	ID           string     `json:"id"`
	Status       RepoStatus `json:"status"`
	CurrentStage string     `json:"currentStage"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	LastAnalyzed *time.Time `json:"lastAnalyzed"`
}

// RepoMetadata is what the remote host tells us about a repository before
// anything is stored.
type RepoMetadata struct {
	GitHubID      int64  `json:"github_id"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	IsPrivate     bool   `json:"is_private"`
	StarsCount    int    `json:"stars_count"`
}

// UserRepository links a user to a shared Repository. Unique on
// (UserID, RepositoryID).
type UserRepository struct {
	ID           string     `bson:"_id"           json:"id"`
	UserID       string     `bson:"user_id"       json:"user_id"`
	RepositoryID string     `bson:"repository_id" json:"repository_id"`
	IsFavorite   bool       `bson:"is_favorite"   json:"is_favorite"`
	LastAccessed *time.Time `bson:"last_accessed" json:"last_accessed"`
	Notes        string     `bson:"notes"         json:"notes"`
	CreatedAt    time.Time  `bson:"created_at"    json:"created_at"`
}

// FileRecord describes one ingested source file. Rows are dropped and
// recreated on every import of the repository.
type FileRecord struct {
	ID           string    `bson:"_id"           json:"id"`
	RepositoryID string    `bson:"repository_id" json:"repository_id"`
	Path         string    `bson:"path"          json:"path"`
	Language     string    `bson:"language"      json:"language,omitempty"`
	SizeBytes    int64     `bson:"size_bytes"    json:"size_bytes"`
	LastModified time.Time `bson:"last_modified" json:"last_modified"`
	CollectionID string    `bson:"collection_id" json:"collection_id"`
}

// FileContent is a classified file read from a workspace, ready for indexing.
type FileContent struct {
	Path         string
	Content      string
	Language     string
	SizeBytes    int64
	LastModified time.Time
}

// CodeCollection is the vector collection holding a repository's files.
func CodeCollection(repositoryID string) string {
	return fmt.Sprintf("repo_%s_code", repositoryID)
}

// DiscussionsCollection is the vector collection holding a repository's
// issues, pull requests and discussions.
func DiscussionsCollection(repositoryID string) string {
	return fmt.Sprintf("repo_%s_discussions", repositoryID)
}
