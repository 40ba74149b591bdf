package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/ahmednasr/firstcommit/internal/fetcher"
	"github.com/ahmednasr/firstcommit/internal/files"
	"github.com/ahmednasr/firstcommit/internal/metrics"
	"github.com/ahmednasr/firstcommit/internal/models"
)

// Mode selects whether Import waits for the pipeline to finish.
type Mode int

const (
	// ModeDetached queues the run in the background and returns at once.
	ModeDetached Mode = iota
	// ModeSync runs the whole pipeline before returning.
	ModeSync
)

// ReimportPolicy decides what importing an already ready repository does.
type ReimportPolicy string

const (
	// ReimportSkipReady returns ready repositories unchanged.
	ReimportSkipReady ReimportPolicy = "skip-ready"
	// ReimportAlways processes a ready repository again when a new user
	// imports it.
	ReimportAlways ReimportPolicy = "always"
)

// ImportRequest carries everything needed to import one repository on
// behalf of one user.
type ImportRequest struct {
	RepoURL string
	Token   string
	UserID  string
	Mode    Mode
}

// ImportService drives the ingestion state machine:
// queued -> importing -> analyzing -> ready, or error from any state.
type ImportService interface {
	Import(ctx context.Context, req ImportRequest) (*models.Repository, error)
	Status(ctx context.Context, repositoryID string) (models.StatusReport, error)
	// Delete removes a repository with all of its metadata and vectors.
	// Only a user linked to the repository may delete it.
	Delete(ctx context.Context, userID, repositoryID string) error
	// Wait blocks until every detached run has finished.
	Wait()
}

// ImportConfig tunes the orchestrator. Zero values take the defaults.
type ImportConfig struct {
	Policy          ReimportPolicy
	PersistAttempts uint          // default 3
	PersistDelay    time.Duration // default 500ms
}

type importService struct {
	store   MetadataStore
	host    RepoHost
	fetcher fetcher.Fetcher
	indexer VectorIndexer
	guard   ImportGuard
	cfg     ImportConfig
	now     func() time.Time

	runs conc.WaitGroup
}

// NewImportService wires the collaborators of the pipeline.
func NewImportService(
	store MetadataStore,
	host RepoHost,
	f fetcher.Fetcher,
	indexer VectorIndexer,
	guard ImportGuard,
	cfg ImportConfig,
) ImportService {
	if cfg.Policy == "" {
		cfg.Policy = ReimportSkipReady
	}
	if cfg.PersistAttempts == 0 {
		cfg.PersistAttempts = 3
	}
	if cfg.PersistDelay <= 0 {
		cfg.PersistDelay = 500 * time.Millisecond
	}
	return &importService{
		store:   store,
		host:    host,
		fetcher: f,
		indexer: indexer,
		guard:   guard,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *importService) Import(ctx context.Context, req ImportRequest) (*models.Repository, error) {
	owner, name, err := fetcher.ParseGitHubURL(req.RepoURL)
	if err != nil {
		return nil, err
	}
	meta, err := s.host.GetMetadata(ctx, owner, name, req.Token)
	if err != nil {
		return nil, &fetcher.FetchError{Op: "metadata", Err: err}
	}
	// the host may have canonicalised the name (renames, casing)
	if meta.Owner != "" && meta.Name != "" {
		owner, name = meta.Owner, meta.Name
	}

	repo, proceed, err := s.resolve(ctx, req.UserID, meta)
	if err != nil {
		return nil, err
	}
	if !proceed {
		return repo, nil
	}

	logger := log.With().Str("repository_id", repo.ID).Str("repo", owner+"/"+name).Logger()

	if req.Mode == ModeSync {
		if !s.guard.TryAcquire(repo.ID) {
			return nil, models.ErrImportInProgress
		}
		defer s.guard.Release(repo.ID)
		return s.run(ctx, logger, repo.ID, owner, name, req.Token)
	}

	if !s.guard.TryAcquire(repo.ID) {
		logger.Info().Msg("import already running, trigger dropped")
		metrics.ImportSkipped("in_progress")
		return repo, nil
	}
	if repo.Status != models.StatusImporting {
		err := s.persist(ctx, "queue repository", func() error {
			return s.store.UpdateRepositoryStatus(ctx, repo.ID, models.StatusQueued, "Waiting in import queue")
		})
		if err != nil {
			s.guard.Release(repo.ID)
			return nil, err
		}
		repo.Status = models.StatusQueued
		repo.CurrentStage = "Waiting in import queue"
		repo.ErrorMessage = ""
	}

	// the run outlives the request that queued it
	bg := context.WithoutCancel(ctx)
	s.runs.Go(func() {
		defer s.guard.Release(repo.ID)
		if _, err := s.run(bg, logger, repo.ID, owner, name, req.Token); err != nil {
			logger.Error().Err(err).Msg("background import failed")
		}
	})
	return repo, nil
}

// resolve finds or creates the Repository row for meta and links the user
// to it. proceed is false when the request needs no processing.
func (s *importService) resolve(ctx context.Context, userID string, meta models.RepoMetadata) (repo *models.Repository, proceed bool, err error) {
	repo, err = s.store.FindRepositoryByGitHubID(ctx, meta.GitHubID)
	if errors.Is(err, models.ErrNotFound) {
		repo, err = s.create(ctx, userID, meta)
		switch {
		case err == nil:
			return repo, true, nil
		case !errors.Is(err, models.ErrAlreadyExists):
			return nil, false, err
		}
		// a concurrent import created the row between find and create
		repo, err = s.store.FindRepositoryByGitHubID(ctx, meta.GitHubID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("find repository: %w", err)
	}

	_, err = s.store.FindUserLink(ctx, userID, repo.ID)
	switch {
	case err == nil:
		// already linked: a no-op, unless the policy retries failed imports
		if repo.Status != models.StatusError || s.cfg.Policy != ReimportAlways {
			metrics.ImportSkipped("linked")
			return repo, false, nil
		}
	case errors.Is(err, models.ErrNotFound):
		if err := s.link(ctx, userID, repo.ID); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, fmt.Errorf("find user link: %w", err)
	}

	if repo.Status == models.StatusReady && s.cfg.Policy == ReimportSkipReady {
		metrics.ImportSkipped("ready")
		return repo, false, nil
	}
	return repo, true, nil
}

// create inserts a new Repository row for meta and links the user to it.
func (s *importService) create(ctx context.Context, userID string, meta models.RepoMetadata) (*models.Repository, error) {
	now := s.now().UTC()
	repo := &models.Repository{
		ID:            uuid.NewString(),
		GitHubID:      meta.GitHubID,
		Owner:         meta.Owner,
		Name:          meta.Name,
		FullName:      meta.FullName,
		Description:   meta.Description,
		DefaultBranch: meta.DefaultBranch,
		IsPrivate:     meta.IsPrivate,
		StarsCount:    meta.StarsCount,
		Status:        models.StatusImporting,
		CurrentStage:  "Initializing repository",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.persist(ctx, "create repository", func() error { return s.store.CreateRepository(ctx, repo) }); err != nil {
		return nil, err
	}
	if err := s.link(ctx, userID, repo.ID); err != nil {
		return nil, err
	}
	return repo, nil
}

func (s *importService) link(ctx context.Context, userID, repositoryID string) error {
	l := &models.UserRepository{
		ID:           uuid.NewString(),
		UserID:       userID,
		RepositoryID: repositoryID,
		CreatedAt:    s.now().UTC(),
	}
	return s.persist(ctx, "link user", func() error { return s.store.LinkUser(ctx, l) })
}

// run executes the pipeline and records the outcome on the repository.
func (s *importService) run(ctx context.Context, logger zerolog.Logger, id, owner, name, token string) (*models.Repository, error) {
	start := s.now()
	metrics.ImportStarted()
	logger.Info().Msg("import started")

	err := s.process(ctx, logger, id, owner, name, token)
	metrics.ImportFinished(start, err)
	if err != nil {
		msg := models.SafeErrorMessage(err)
		// the failure is recorded even when the caller has gone away
		markCtx := context.WithoutCancel(ctx)
		if markErr := s.persist(markCtx, "mark error", func() error { return s.store.MarkError(markCtx, id, msg) }); markErr != nil {
			logger.Error().Err(markErr).Msg("failed to record import error")
		}
		logger.Error().Str("error", msg).Dur("took", s.now().Sub(start)).Msg("import failed")
		return nil, err
	}

	logger.Info().Dur("took", s.now().Sub(start)).Msg("import completed")
	return s.store.GetRepository(ctx, id)
}

func (s *importService) process(ctx context.Context, logger zerolog.Logger, id, owner, name, token string) error {
	stage := func(status models.RepoStatus, text string) error {
		logger.Debug().Str("status", string(status)).Msg(text)
		return s.persist(ctx, "update stage", func() error {
			return s.store.UpdateRepositoryStatus(ctx, id, status, text)
		})
	}

	if err := stage(models.StatusImporting, "Cloning repository"); err != nil {
		return err
	}
	ws, err := s.fetcher.Fetch(ctx, owner, name, token)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			logger.Warn().Err(cerr).Str("dir", ws.Dir).Msg("workspace cleanup failed")
		}
	}()

	// code
	if err := stage(models.StatusAnalyzing, "Processing repository files"); err != nil {
		return err
	}
	contents, stats, err := files.ProcessDirectory(ctx, ws.Dir)
	if err != nil {
		return fmt.Errorf("process repository files: %w", err)
	}
	metrics.FilesIncluded(stats.Included)
	for reason, n := range stats.Skipped {
		metrics.FilesSkipped(string(reason), n)
	}

	if err := stage(models.StatusAnalyzing, fmt.Sprintf("Creating vector embeddings for %d files", len(contents))); err != nil {
		return err
	}
	codeCollection := models.CodeCollection(id)
	items := make([]models.IndexItem, len(contents))
	for i, f := range contents {
		items[i] = models.IndexItem{RepositoryID: id, Path: f.Path, Content: f.Content, Language: f.Language}
	}
	if _, err := s.indexer.Upsert(ctx, codeCollection, items); err != nil {
		return fmt.Errorf("index code: %w", err)
	}

	if err := stage(models.StatusAnalyzing, "Storing file metadata"); err != nil {
		return err
	}
	records := make([]models.FileRecord, len(contents))
	for i, f := range contents {
		records[i] = models.FileRecord{
			ID:           uuid.NewString(),
			RepositoryID: id,
			Path:         f.Path,
			Language:     f.Language,
			SizeBytes:    f.SizeBytes,
			LastModified: f.LastModified,
			CollectionID: codeCollection,
		}
	}
	if err := s.persist(ctx, "delete files", func() error { return s.store.DeleteFiles(ctx, id) }); err != nil {
		return err
	}
	if err := s.persist(ctx, "insert files", func() error { return s.store.InsertFiles(ctx, records) }); err != nil {
		return err
	}

	// discussions
	if err := stage(models.StatusAnalyzing, "Fetching repository discussions and PRs"); err != nil {
		return err
	}
	discussions, err := s.host.FetchDiscussions(ctx, owner, name, token)
	if err != nil {
		return &fetcher.FetchError{Op: "discussions", Err: err}
	}

	if err := stage(models.StatusAnalyzing, fmt.Sprintf("Creating vector embeddings for %d discussions", len(discussions))); err != nil {
		return err
	}
	discussionCollection := models.DiscussionsCollection(id)
	ditems := make([]models.IndexItem, len(discussions))
	for i, d := range discussions {
		ditems[i] = models.IndexItem{
			RepositoryID: id,
			Path:         d.Path(),
			Content:      d.Content(),
			Language:     "markdown",
			Extra:        map[string]any{"kind": string(d.Kind), "url": d.URL},
		}
	}
	if _, err := s.indexer.Upsert(ctx, discussionCollection, ditems); err != nil {
		return fmt.Errorf("index discussions: %w", err)
	}

	if err := stage(models.StatusAnalyzing, "Storing discussion metadata"); err != nil {
		return err
	}
	drecords := make([]models.DiscussionRecord, len(discussions))
	for i, d := range discussions {
		drecords[i] = models.DiscussionRecord{
			ID:           uuid.NewString(),
			RepositoryID: id,
			ExternalID:   d.ID,
			Title:        d.Title,
			Kind:         d.Kind,
			Number:       d.Number,
			URL:          d.URL,
			Author:       d.Author,
			CreatedAt:    d.CreatedAt,
			CollectionID: discussionCollection,
		}
	}
	if err := s.persist(ctx, "delete discussions", func() error { return s.store.DeleteDiscussions(ctx, id) }); err != nil {
		return err
	}
	if err := s.persist(ctx, "insert discussions", func() error { return s.store.InsertDiscussions(ctx, drecords) }); err != nil {
		return err
	}

	if err := stage(models.StatusAnalyzing, "Completing analysis"); err != nil {
		return err
	}
	return s.persist(ctx, "mark ready", func() error { return s.store.MarkReady(ctx, id, s.now().UTC()) })
}

// persist retries a metadata store write before giving up on it. Missing
// rows and unique-key collisions are not retried.
func (s *importService) persist(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(s.cfg.PersistAttempts),
		retry.Delay(s.cfg.PersistDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrAlreadyExists)
		}),
		retry.OnRetry(func(n uint, err error) {
			metrics.PersistRetry()
			log.Warn().Err(err).Uint("attempt", n+1).Str("op", op).Msg("metadata write failed, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *importService) Status(ctx context.Context, repositoryID string) (models.StatusReport, error) {
	repo, err := s.store.GetRepository(ctx, repositoryID)
	if err != nil {
		return models.StatusReport{}, err
	}
	return repo.StatusReport(), nil
}

func (s *importService) Delete(ctx context.Context, userID, repositoryID string) error {
	if _, err := s.store.GetRepository(ctx, repositoryID); err != nil {
		return err
	}
	if _, err := s.store.FindUserLink(ctx, userID, repositoryID); err != nil {
		return err
	}
	if !s.guard.TryAcquire(repositoryID) {
		return models.ErrImportInProgress
	}
	defer s.guard.Release(repositoryID)

	steps := []struct {
		op string
		fn func() error
	}{
		{"delete files", func() error { return s.store.DeleteFiles(ctx, repositoryID) }},
		{"delete discussions", func() error { return s.store.DeleteDiscussions(ctx, repositoryID) }},
		{"delete user links", func() error { return s.store.DeleteUserLinks(ctx, repositoryID) }},
		{"delete repository", func() error { return s.store.DeleteRepository(ctx, repositoryID) }},
	}
	for _, st := range steps {
		if err := s.persist(ctx, st.op, st.fn); err != nil {
			return err
		}
	}

	for _, col := range []string{models.CodeCollection(repositoryID), models.DiscussionsCollection(repositoryID)} {
		if err := s.indexer.DeleteCollection(ctx, col); err != nil {
			log.Warn().Err(err).Str("collection", col).Msg("failed to delete vector collection")
		}
	}
	log.Info().Str("repository_id", repositoryID).Msg("repository deleted")
	return nil
}

func (s *importService) Wait() {
	s.runs.Wait()
}
