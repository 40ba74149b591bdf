// Package repository holds the MongoDB implementation of the metadata store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ahmednasr/firstcommit/internal/models"
)

// Collection names.
const (
	RepositoriesCollection     = "repositories"
	UserRepositoriesCollection = "user_repositories"
	FilesCollection            = "repository_files"
	DiscussionsCollection      = "repository_discussions"
)

// MongoStore persists repositories, user links and file/discussion rows.
//
// Expected schema:
//
//	repositories            { _id, github_id (unique), owner, name, status, current_stage, ... }
//	user_repositories       { _id, user_id, repository_id }  unique (user_id, repository_id)
//	repository_files        { _id, repository_id, path, language, size_bytes, ... }
//	repository_discussions  { _id, repository_id, external_id, kind, number, ... }
type MongoStore struct {
	repos       *mongo.Collection
	links       *mongo.Collection
	files       *mongo.Collection
	discussions *mongo.Collection
}

// NewMongoStore wires the collections.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		repos:       db.Collection(RepositoriesCollection),
		links:       db.Collection(UserRepositoriesCollection),
		files:       db.Collection(FilesCollection),
		discussions: db.Collection(DiscussionsCollection),
	}
}

// EnsureIndexes creates the indexes the store relies on. The unique indexes
// back the deduplication guarantees: one row per GitHub repository and one
// link per user and repository.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		col   *mongo.Collection
		model mongo.IndexModel
	}{
		{s.repos, mongo.IndexModel{
			Keys:    bson.D{{Key: "github_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.links, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "repository_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.links, mongo.IndexModel{Keys: bson.D{{Key: "repository_id", Value: 1}}}},
		{s.files, mongo.IndexModel{Keys: bson.D{{Key: "repository_id", Value: 1}}}},
		{s.discussions, mongo.IndexModel{Keys: bson.D{{Key: "repository_id", Value: 1}}}},
	}
	for _, spec := range specs {
		if _, err := spec.col.Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.col.Name(), err)
		}
	}
	return nil
}

// -------------------------- repositories ------------------------------------

func (s *MongoStore) FindRepositoryByGitHubID(ctx context.Context, githubID int64) (*models.Repository, error) {
	return findOne[models.Repository](ctx, s.repos, bson.M{"github_id": githubID})
}

func (s *MongoStore) GetRepository(ctx context.Context, id string) (*models.Repository, error) {
	return findOne[models.Repository](ctx, s.repos, bson.M{"_id": id})
}

func (s *MongoStore) CreateRepository(ctx context.Context, repo *models.Repository) error {
	if _, err := s.repos.InsertOne(ctx, repo); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert repository %d: %w", repo.GitHubID, models.ErrAlreadyExists)
		}
		return fmt.Errorf("insert repository: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateRepositoryStatus(ctx context.Context, id string, status models.RepoStatus, stage string) error {
	return s.setRepository(ctx, id, bson.M{
		"status":        status,
		"current_stage": stage,
		"error_message": "",
	})
}

func (s *MongoStore) MarkReady(ctx context.Context, id string, at time.Time) error {
	return s.setRepository(ctx, id, bson.M{
		"status":        models.StatusReady,
		"current_stage": "Analysis complete",
		"error_message": "",
		"last_analyzed": at,
	})
}

func (s *MongoStore) MarkError(ctx context.Context, id, message string) error {
	return s.setRepository(ctx, id, bson.M{
		"status":        models.StatusError,
		"current_stage": "Error: " + message,
		"error_message": message,
	})
}

func (s *MongoStore) setRepository(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.repos.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update repository %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteRepository(ctx context.Context, id string) error {
	_, err := s.repos.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// -------------------------- user links --------------------------------------

func (s *MongoStore) FindUserLink(ctx context.Context, userID, repositoryID string) (*models.UserRepository, error) {
	return findOne[models.UserRepository](ctx, s.links, bson.M{"user_id": userID, "repository_id": repositoryID})
}

// LinkUser inserts the link unless the user is already linked; an existing
// link is left untouched.
func (s *MongoStore) LinkUser(ctx context.Context, link *models.UserRepository) error {
	_, err := s.links.UpdateOne(ctx,
		bson.M{"user_id": link.UserID, "repository_id": link.RepositoryID},
		bson.M{"$setOnInsert": link},
		options.Update().SetUpsert(true),
	)
	// two concurrent upserts of the same pair can both miss and race on
	// the unique index; the loser finds the link already there
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("link user: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteUserLinks(ctx context.Context, repositoryID string) error {
	_, err := s.links.DeleteMany(ctx, bson.M{"repository_id": repositoryID})
	return err
}

// -------------------------- files -------------------------------------------

func (s *MongoStore) DeleteFiles(ctx context.Context, repositoryID string) error {
	_, err := s.files.DeleteMany(ctx, bson.M{"repository_id": repositoryID})
	return err
}

func (s *MongoStore) InsertFiles(ctx context.Context, files []models.FileRecord) error {
	return insertMany(ctx, s.files, files)
}

func (s *MongoStore) CountFiles(ctx context.Context, repositoryID string) (int, error) {
	n, err := s.files.CountDocuments(ctx, bson.M{"repository_id": repositoryID})
	return int(n), err
}

// -------------------------- discussions -------------------------------------

func (s *MongoStore) DeleteDiscussions(ctx context.Context, repositoryID string) error {
	_, err := s.discussions.DeleteMany(ctx, bson.M{"repository_id": repositoryID})
	return err
}

func (s *MongoStore) InsertDiscussions(ctx context.Context, records []models.DiscussionRecord) error {
	return insertMany(ctx, s.discussions, records)
}

func (s *MongoStore) CountDiscussions(ctx context.Context, repositoryID string) (int, error) {
	n, err := s.discussions.CountDocuments(ctx, bson.M{"repository_id": repositoryID})
	return int(n), err
}

// -------------------------- helpers -----------------------------------------

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	err := col.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", col.Name(), err)
	}
	return &out, nil
}

func insertMany[T any](ctx context.Context, col *mongo.Collection, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]any, len(rows))
	for i := range rows {
		docs[i] = rows[i]
	}
	if _, err := col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert into %s: %w", col.Name(), err)
	}
	return nil
}
