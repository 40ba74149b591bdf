package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/firstcommit/internal/chroma"
	"github.com/ahmednasr/firstcommit/internal/models"
)

func TestExpandSmallItem(t *testing.T) {
	recs := expand(models.IndexItem{RepositoryID: "r1", Path: "a.go", Content: "package a"}, 100)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1_a.go", recs[0].id)
	assert.Equal(t, "package a", recs[0].document)
	assert.Equal(t, map[string]any{
		"repositoryId": "r1",
		"path":         "a.go",
		"language":     "unknown",
		"isChunk":      false,
	}, recs[0].metadata)
}

func TestExpandChunksOversizedItem(t *testing.T) {
	content := strings.Repeat("word ", 10) + "\n\n" + strings.Repeat("more ", 10)
	item := models.IndexItem{
		RepositoryID: "r1",
		Path:         "doc.md",
		Content:      content,
		Language:     "Markdown",
		Extra:        map[string]any{"kind": "issue"},
	}

	recs := expand(item, 60)
	require.Len(t, recs, 2)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("r1_doc.md_%d", i), r.id)
		assert.LessOrEqual(t, len(r.document), 60)
		assert.Equal(t, true, r.metadata["isChunk"])
		assert.Equal(t, i, r.metadata["chunkIndex"])
		assert.Equal(t, 2, r.metadata["totalChunks"])
		assert.Equal(t, "issue", r.metadata["kind"])
		assert.Equal(t, "Markdown", r.metadata["language"])
	}

	assert.Equal(t, recs, expand(item, 60), "expansion is deterministic")
}

func TestExpandWhitespaceOnlyItemKeepsOneRecord(t *testing.T) {
	recs := expand(models.IndexItem{RepositoryID: "r1", Path: "blank.txt", Content: strings.Repeat("\n", 4100)}, 4000)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1_blank.txt_0", recs[0].id)
	assert.Len(t, recs[0].document, 4000)
	assert.Equal(t, 1, recs[0].metadata["totalChunks"])
	assert.Equal(t, "blank.txt", recs[0].metadata["path"])
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "ab", truncate("ab", 5))
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "aé", truncate("aéz", 3))
}

func TestUpsertBatchesItems(t *testing.T) {
	db := newFakeVectorDB()
	idx := NewChromaIndexer(db, nil, IndexerConfig{BatchSize: 50})

	items := make([]models.IndexItem, 120)
	for i := range items {
		items[i] = models.IndexItem{RepositoryID: "r1", Path: fmt.Sprintf("f%03d.go", i), Content: "x"}
	}
	report, err := idx.Upsert(context.Background(), "repo_r1_code", items)
	require.NoError(t, err)

	assert.Equal(t, IndexReport{Collection: "repo_r1_code", Items: 120, Vectors: 120, Batches: 3}, report)
	require.Len(t, db.upserts, 3)
	assert.Len(t, db.upserts[0].IDs, 50)
	assert.Len(t, db.upserts[2].IDs, 20)
	assert.Nil(t, db.upserts[0].Embeddings, "server-side embedding sends no vectors")
}

func TestUpsertContinuesAfterFailedBatch(t *testing.T) {
	db := newFakeVectorDB()
	db.stall = func(req chroma.UpsertRequest) bool { return req.IDs[0] == "r1_b.go" }
	idx := NewChromaIndexer(db, nil, IndexerConfig{BatchSize: 1, UpsertTimeout: 20 * time.Millisecond})

	items := []models.IndexItem{
		{RepositoryID: "r1", Path: "a.go", Content: "a"},
		{RepositoryID: "r1", Path: "b.go", Content: "b"},
		{RepositoryID: "r1", Path: "c.go", Content: "c"},
	}
	report, err := idx.Upsert(context.Background(), "repo_r1_code", items)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 1, report.FailedBatches)
	assert.Equal(t, 1, report.FailedVectors)

	n, err := idx.Count(context.Background(), "repo_r1_code")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpsertEmptyItemsStillCreatesCollection(t *testing.T) {
	db := newFakeVectorDB()
	idx := NewChromaIndexer(db, nil, IndexerConfig{})

	report, err := idx.Upsert(context.Background(), "repo_r1_discussions", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Batches)
	assert.True(t, db.has("repo_r1_discussions"))
}

func TestIndexerWithClientSideEmbeddings(t *testing.T) {
	db := newFakeVectorDB()
	emb := &fakeEmbedder{}
	idx := NewChromaIndexer(db, emb, IndexerConfig{})
	ctx := context.Background()

	_, err := idx.Upsert(ctx, "repo_r1_code", []models.IndexItem{{RepositoryID: "r1", Path: "a.go", Content: "abc"}})
	require.NoError(t, err)
	require.Len(t, db.upserts, 1)
	assert.Equal(t, [][]float32{{3, 1}}, db.upserts[0].Embeddings)

	_, err = idx.Query(ctx, "repo_r1_code", "find abc", 5)
	require.NoError(t, err)
	require.Len(t, db.queries, 1)
	assert.Empty(t, db.queries[0].QueryTexts)
	assert.Equal(t, [][]float32{{8, 1}}, db.queries[0].QueryEmbeddings)
	assert.Equal(t, []EmbedTask{TaskDocument, TaskQuery}, emb.tasks)
}

func TestQuery(t *testing.T) {
	db := newFakeVectorDB()
	idx := NewChromaIndexer(db, nil, IndexerConfig{})
	ctx := context.Background()

	res, err := idx.Query(ctx, "repo_missing_code", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.False(t, db.has("repo_missing_code"), "query never creates a collection")

	_, err = idx.Upsert(ctx, "repo_r1_discussions", []models.IndexItem{
		{RepositoryID: "r1", Path: "issue/1", Content: "one"},
		{RepositoryID: "r1", Path: "issue/2", Content: "two"},
	})
	require.NoError(t, err)

	res, err = idx.Query(ctx, "repo_r1_discussions", "text", 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "r1_issue/1", res[0].ID)
	assert.Equal(t, "one", res[0].Content)
	assert.Equal(t, "issue/1", res[0].Path())
	assert.Equal(t, models.KindDiscussion, res[0].Type)
	assert.InDelta(t, 0.5, res[1].Distance, 1e-9)
	assert.Equal(t, []string{"text"}, db.queries[0].QueryTexts)
}

// nullDistanceDB answers every query with hits lacking distances.
type nullDistanceDB struct{ *fakeVectorDB }

func (n nullDistanceDB) Query(_ context.Context, _ string, _ chroma.QueryRequest) (*chroma.QueryResponse, error) {
	a, b := "a", "b"
	return &chroma.QueryResponse{
		IDs:       [][]string{{"x", "y"}},
		Documents: [][]*string{{&a, &b}},
		Distances: [][]*float64{{nil, nil}},
	}, nil
}

func TestQueryFallsBackToRankDistance(t *testing.T) {
	db := nullDistanceDB{newFakeVectorDB()}
	_, err := db.GetOrCreateCollection(context.Background(), "repo_r1_code")
	require.NoError(t, err)
	idx := NewChromaIndexer(db, nil, IndexerConfig{})

	res, err := idx.Query(context.Background(), "repo_r1_code", "q", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Zero(t, res[0].Distance)
	assert.InDelta(t, 0.1, res[1].Distance, 1e-9)
	assert.Equal(t, models.KindCode, res[1].Type)
	assert.NotNil(t, res[0].Metadata)
}

func TestListUniquePathsAcrossChunks(t *testing.T) {
	db := newFakeVectorDB()
	idx := NewChromaIndexer(db, nil, IndexerConfig{ChunkSize: 10})
	ctx := context.Background()

	_, err := idx.Upsert(ctx, "repo_r1_code", []models.IndexItem{
		{RepositoryID: "r1", Path: "big.txt", Content: strings.Repeat("abcdefgh\n\n", 5)},
		{RepositoryID: "r1", Path: "small.txt", Content: "tiny"},
	})
	require.NoError(t, err)

	n, err := idx.Count(ctx, "repo_r1_code")
	require.NoError(t, err)
	assert.Greater(t, n, 2)

	paths, err := idx.ListUniquePaths(ctx, "repo_r1_code")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"big.txt": {}, "small.txt": {}}, paths)

	exists, err := idx.CollectionExists(ctx, "repo_r1_code")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = idx.CollectionExists(ctx, "repo_r2_code")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "code", kindOf(models.CodeCollection("r")))
	assert.Equal(t, "discussion", kindOf(models.DiscussionsCollection("r")))
}
