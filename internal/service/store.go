package service

import (
	"context"
	"time"

	"github.com/ahmednasr/firstcommit/internal/models"
)

// ---- Repository contract ---------------------------------------------------

// MetadataStore persists repositories, user links and the per-file and
// per-discussion metadata rows. Lookups of missing rows return
// models.ErrNotFound. Implementations live in internal/repository.
type MetadataStore interface {
	FindRepositoryByGitHubID(ctx context.Context, githubID int64) (*models.Repository, error)
	GetRepository(ctx context.Context, id string) (*models.Repository, error)
	CreateRepository(ctx context.Context, repo *models.Repository) error
	// UpdateRepositoryStatus sets status and stage, clearing any previous
	// error message.
	UpdateRepositoryStatus(ctx context.Context, id string, status models.RepoStatus, stage string) error
	MarkReady(ctx context.Context, id string, at time.Time) error
	MarkError(ctx context.Context, id, message string) error
	DeleteRepository(ctx context.Context, id string) error

	FindUserLink(ctx context.Context, userID, repositoryID string) (*models.UserRepository, error)
	LinkUser(ctx context.Context, link *models.UserRepository) error
	DeleteUserLinks(ctx context.Context, repositoryID string) error

	DeleteFiles(ctx context.Context, repositoryID string) error
	InsertFiles(ctx context.Context, files []models.FileRecord) error
	CountFiles(ctx context.Context, repositoryID string) (int, error)

	DeleteDiscussions(ctx context.Context, repositoryID string) error
	InsertDiscussions(ctx context.Context, records []models.DiscussionRecord) error
	CountDiscussions(ctx context.Context, repositoryID string) (int, error)
}

// RepoHost is the remote source-code host the pipeline imports from.
type RepoHost interface {
	GetMetadata(ctx context.Context, owner, repo, token string) (models.RepoMetadata, error)
	FetchDiscussions(ctx context.Context, owner, repo, token string) ([]models.Discussion, error)
}
