// Package memstore is an in-memory metadata store. It backs the tests and
// the operator CLI's --in-memory imports; it is not durable.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ahmednasr/firstcommit/internal/models"
)

// ErrInjected is returned by operations armed with FailNext.
var ErrInjected = errors.New("memstore: injected failure")

// MemoryStore keeps every table in a map guarded by one lock.
type MemoryStore struct {
	mu sync.RWMutex

	repos       map[string]*models.Repository
	links       map[string]*models.UserRepository
	files       map[string][]models.FileRecord
	discussions map[string][]models.DiscussionRecord

	failures map[string]int
}

// New creates an empty store.
func New() *MemoryStore {
	return &MemoryStore{
		repos:       make(map[string]*models.Repository),
		links:       make(map[string]*models.UserRepository),
		files:       make(map[string][]models.FileRecord),
		discussions: make(map[string][]models.DiscussionRecord),
		failures:    make(map[string]int),
	}
}

// --- Test helpers ---

// FailNext makes the next n calls of the named method return ErrInjected.
func (m *MemoryStore) FailNext(method string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = n
}

// RepositoryCount returns the number of repository rows.
func (m *MemoryStore) RepositoryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.repos)
}

// LinkCount returns the number of user links.
func (m *MemoryStore) LinkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

// Files returns the file rows of a repository.
func (m *MemoryStore) Files(repositoryID string) []models.FileRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.FileRecord(nil), m.files[repositoryID]...)
}

// Discussions returns the discussion rows of a repository.
func (m *MemoryStore) Discussions(repositoryID string) []models.DiscussionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.DiscussionRecord(nil), m.discussions[repositoryID]...)
}

// fail must be called with the write lock held.
func (m *MemoryStore) fail(method string) error {
	if m.failures[method] > 0 {
		m.failures[method]--
		return ErrInjected
	}
	return nil
}

func linkKey(userID, repositoryID string) string {
	return userID + "\x00" + repositoryID
}

// --- Repositories ---

func (m *MemoryStore) FindRepositoryByGitHubID(_ context.Context, githubID int64) (*models.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindRepositoryByGitHubID"); err != nil {
		return nil, err
	}
	for _, r := range m.repos {
		if r.GitHubID == githubID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MemoryStore) GetRepository(_ context.Context, id string) (*models.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetRepository"); err != nil {
		return nil, err
	}
	r, ok := m.repos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) CreateRepository(_ context.Context, repo *models.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateRepository"); err != nil {
		return err
	}
	for _, r := range m.repos {
		if r.GitHubID == repo.GitHubID {
			return fmt.Errorf("memstore: duplicate github_id %d: %w", repo.GitHubID, models.ErrAlreadyExists)
		}
	}
	cp := *repo
	m.repos[repo.ID] = &cp
	return nil
}

func (m *MemoryStore) update(method, id string, fn func(r *models.Repository)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return err
	}
	r, ok := m.repos[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(r)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) UpdateRepositoryStatus(_ context.Context, id string, status models.RepoStatus, stage string) error {
	return m.update("UpdateRepositoryStatus", id, func(r *models.Repository) {
		r.Status = status
		r.CurrentStage = stage
		r.ErrorMessage = ""
	})
}

func (m *MemoryStore) MarkReady(_ context.Context, id string, at time.Time) error {
	return m.update("MarkReady", id, func(r *models.Repository) {
		r.Status = models.StatusReady
		r.CurrentStage = "Analysis complete"
		r.ErrorMessage = ""
		r.LastAnalyzed = &at
	})
}

func (m *MemoryStore) MarkError(_ context.Context, id, message string) error {
	return m.update("MarkError", id, func(r *models.Repository) {
		r.Status = models.StatusError
		r.CurrentStage = "Error: " + message
		r.ErrorMessage = message
	})
}

func (m *MemoryStore) DeleteRepository(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteRepository"); err != nil {
		return err
	}
	delete(m.repos, id)
	return nil
}

// --- User links ---

func (m *MemoryStore) FindUserLink(_ context.Context, userID, repositoryID string) (*models.UserRepository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindUserLink"); err != nil {
		return nil, err
	}
	l, ok := m.links[linkKey(userID, repositoryID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *MemoryStore) LinkUser(_ context.Context, link *models.UserRepository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LinkUser"); err != nil {
		return err
	}
	key := linkKey(link.UserID, link.RepositoryID)
	if _, ok := m.links[key]; ok {
		return nil
	}
	cp := *link
	m.links[key] = &cp
	return nil
}

func (m *MemoryStore) DeleteUserLinks(_ context.Context, repositoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteUserLinks"); err != nil {
		return err
	}
	for k, l := range m.links {
		if l.RepositoryID == repositoryID {
			delete(m.links, k)
		}
	}
	return nil
}

// --- Files ---

func (m *MemoryStore) DeleteFiles(_ context.Context, repositoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteFiles"); err != nil {
		return err
	}
	delete(m.files, repositoryID)
	return nil
}

func (m *MemoryStore) InsertFiles(_ context.Context, files []models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertFiles"); err != nil {
		return err
	}
	for _, f := range files {
		m.files[f.RepositoryID] = append(m.files[f.RepositoryID], f)
	}
	return nil
}

func (m *MemoryStore) CountFiles(_ context.Context, repositoryID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountFiles"); err != nil {
		return 0, err
	}
	return len(m.files[repositoryID]), nil
}

// --- Discussions ---

func (m *MemoryStore) DeleteDiscussions(_ context.Context, repositoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteDiscussions"); err != nil {
		return err
	}
	delete(m.discussions, repositoryID)
	return nil
}

func (m *MemoryStore) InsertDiscussions(_ context.Context, records []models.DiscussionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertDiscussions"); err != nil {
		return err
	}
	for _, d := range records {
		m.discussions[d.RepositoryID] = append(m.discussions[d.RepositoryID], d)
	}
	return nil
}

func (m *MemoryStore) CountDiscussions(_ context.Context, repositoryID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountDiscussions"); err != nil {
		return 0, err
	}
	return len(m.discussions[repositoryID]), nil
}
