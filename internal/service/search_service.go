package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/ahmednasr/firstcommit/internal/models"
)

// SearchService is the retrieval surface consumed by the chat layer.
type SearchService interface {
	// QueryRepository searches both the code and the discussions collection
	// of a repository and returns the hits merged by ascending distance.
	QueryRepository(ctx context.Context, repositoryID, text string, topK int) ([]models.QueryResult, error)
}

type searchService struct {
	store       MetadataStore
	indexer     VectorIndexer
	defaultTopK int
}

// NewSearchService wires the store and indexer. defaultTopK applies when a
// caller passes topK <= 0.
func NewSearchService(store MetadataStore, indexer VectorIndexer, defaultTopK int) SearchService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &searchService{store: store, indexer: indexer, defaultTopK: defaultTopK}
}

func (s *searchService) QueryRepository(ctx context.Context, repositoryID, text string, topK int) ([]models.QueryResult, error) {
	if _, err := s.store.GetRepository(ctx, repositoryID); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	code, err := s.indexer.Query(ctx, models.CodeCollection(repositoryID), text, topK)
	if err != nil {
		return nil, fmt.Errorf("query code: %w", err)
	}
	discussions, err := s.indexer.Query(ctx, models.DiscussionsCollection(repositoryID), text, topK)
	if err != nil {
		return nil, fmt.Errorf("query discussions: %w", err)
	}

	merged := MergeResults(code, discussions)
	log.Debug().
		Str("repository_id", repositoryID).
		Int("code", len(code)).
		Int("discussions", len(discussions)).
		Msg("repository query completed")
	return merged, nil
}

// MergeResults concatenates result lists and stable-sorts them by ascending
// distance, so ties keep code hits ahead of discussion hits.
func MergeResults(lists ...[]models.QueryResult) []models.QueryResult {
	var out []models.QueryResult
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.SortStableFunc(out, func(a, b models.QueryResult) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if out == nil {
		out = []models.QueryResult{}
	}
	return out
}
