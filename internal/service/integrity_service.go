package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/ahmednasr/firstcommit/internal/models"
)

// IntegrityService compares what the metadata store believes was ingested
// with what the vector collections actually hold.
type IntegrityService interface {
	// Check never fails: every problem degrades into counts of zero or a
	// missing collection in the report.
	Check(ctx context.Context, repositoryID string) models.IntegrityReport
}

type integrityService struct {
	store   MetadataStore
	indexer VectorIndexer
	now     func() time.Time
}

// NewIntegrityService wires the store and indexer.
func NewIntegrityService(store MetadataStore, indexer VectorIndexer) IntegrityService {
	return &integrityService{store: store, indexer: indexer, now: time.Now}
}

func (s *integrityService) Check(ctx context.Context, repositoryID string) models.IntegrityReport {
	var code, discussions models.CollectionIntegrity

	var wg conc.WaitGroup
	wg.Go(func() {
		code = s.checkCollection(ctx, models.CodeCollection(repositoryID), func() (int, error) {
			return s.store.CountFiles(ctx, repositoryID)
		})
	})
	wg.Go(func() {
		discussions = s.checkCollection(ctx, models.DiscussionsCollection(repositoryID), func() (int, error) {
			return s.store.CountDiscussions(ctx, repositoryID)
		})
	})
	wg.Wait()

	return models.IntegrityReport{
		RepositoryID:     repositoryID,
		Code:             code,
		Discussions:      discussions,
		OverallIntegrity: code.IsIntact && discussions.IsIntact,
		Timestamp:        s.now().UTC(),
	}
}

func (s *integrityService) checkCollection(ctx context.Context, collection string, countMetadata func() (int, error)) models.CollectionIntegrity {
	logger := log.With().Str("collection", collection).Logger()

	metadataCount, err := countMetadata()
	if err != nil {
		logger.Warn().Err(err).Msg("metadata count unavailable, using 0")
		metadataCount = 0
	}

	exists, err := s.indexer.CollectionExists(ctx, collection)
	if err != nil {
		logger.Warn().Err(err).Msg("collection lookup failed")
	}
	if !exists {
		return models.NewCollectionIntegrity(metadataCount, 0, 0, false)
	}

	vectorCount, err := s.indexer.Count(ctx, collection)
	if err != nil {
		logger.Warn().Err(err).Msg("vector count failed")
		vectorCount = 0
	}
	paths, err := s.indexer.ListUniquePaths(ctx, collection)
	if err != nil {
		logger.Warn().Err(err).Msg("listing vector paths failed")
	}
	return models.NewCollectionIntegrity(metadataCount, vectorCount, len(paths), true)
}
