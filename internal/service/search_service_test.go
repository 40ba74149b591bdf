package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/firstcommit/internal/models"
)

func TestMergeResults(t *testing.T) {
	code := []models.QueryResult{
		{ID: "c1", Distance: 0.2, Type: models.KindCode},
		{ID: "c2", Distance: 0.9, Type: models.KindCode},
	}
	disc := []models.QueryResult{
		{ID: "d1", Distance: 0.1, Type: models.KindDiscussion},
		{ID: "d2", Distance: 0.2, Type: models.KindDiscussion},
	}

	merged := MergeResults(code, disc)
	ids := make([]string, len(merged))
	for i, r := range merged {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"d1", "c1", "d2", "c2"}, ids)

	assert.NotNil(t, MergeResults())
	assert.Empty(t, MergeResults(nil, nil))
}

func TestQueryRepository(t *testing.T) {
	h := newHarness(t, ReimportSkipReady)
	ctx := context.Background()

	repo, err := h.importSync(t, "u1")
	require.NoError(t, err)

	search := NewSearchService(h.store, h.indexer, 2)
	res, err := search.QueryRepository(ctx, repo.ID, "how does main work", 0)
	require.NoError(t, err)
	require.Len(t, res, 4, "default topK applies to each collection")

	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
	}
	// ties keep code ahead of discussions
	assert.Equal(t, models.KindCode, res[0].Type)
	assert.Equal(t, models.KindDiscussion, res[1].Type)

	res, err = search.QueryRepository(ctx, repo.ID, "q", 10)
	require.NoError(t, err)
	assert.Len(t, res, 5)
}

func TestQueryRepositoryErrors(t *testing.T) {
	h := newHarness(t, ReimportSkipReady)
	ctx := context.Background()
	search := NewSearchService(h.store, h.indexer, 0)

	_, err := search.QueryRepository(ctx, "missing", "q", 5)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// a repository whose collections were never created yields no hits
	require.NoError(t, h.store.CreateRepository(ctx, &models.Repository{ID: "r-new", GitHubID: 9}))
	res, err := search.QueryRepository(ctx, "r-new", "q", 5)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	assert.True(t, g.TryAcquire("r1"))
	assert.False(t, g.TryAcquire("r1"))
	assert.True(t, g.TryAcquire("r2"))
	g.Release("r1")
	assert.True(t, g.TryAcquire("r1"))
}
