package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/ahmednasr/firstcommit/internal/chroma"
	"github.com/ahmednasr/firstcommit/internal/chunker"
	"github.com/ahmednasr/firstcommit/internal/metrics"
	"github.com/ahmednasr/firstcommit/internal/models"
)

// ---- Vector database contract ----------------------------------------------

// VectorDB is the subset of the Chroma API the indexer relies on.
// *chroma.Client satisfies it.
type VectorDB interface {
	GetOrCreateCollection(ctx context.Context, name string) (*chroma.Collection, error)
	GetCollection(ctx context.Context, name string) (*chroma.Collection, error)
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collectionID string, req chroma.UpsertRequest) error
	Query(ctx context.Context, collectionID string, req chroma.QueryRequest) (*chroma.QueryResponse, error)
	Count(ctx context.Context, collectionID string) (int, error)
	Get(ctx context.Context, collectionID string, req chroma.GetRequest) (*chroma.GetResponse, error)
}

// ---- Service interface + implementation ------------------------------------

// IndexReport summarises one Upsert call. Failed batches are not errors:
// they show up here and, later, as reduced counts in the integrity report.
type IndexReport struct {
	Collection    string `json:"collection"`
	Items         int    `json:"items"`
	Vectors       int    `json:"vectors"`
	Batches       int    `json:"batches"`
	FailedBatches int    `json:"failedBatches"`
	FailedVectors int    `json:"failedVectors"`
}

// VectorIndexer stores and searches repository content in named vector
// collections.
type VectorIndexer interface {
	// Upsert writes items in fixed-size batches, splitting oversized items
	// into chunks. Only a failure to open the collection is returned as an
	// error.
	Upsert(ctx context.Context, collection string, items []models.IndexItem) (IndexReport, error)
	Query(ctx context.Context, collection, text string, topK int) ([]models.QueryResult, error)
	Count(ctx context.Context, collection string) (int, error)
	ListUniquePaths(ctx context.Context, collection string) (map[string]struct{}, error)
	CollectionExists(ctx context.Context, collection string) (bool, error)
	DeleteCollection(ctx context.Context, collection string) error
}

// IndexerConfig tunes batching. Zero values take the defaults.
type IndexerConfig struct {
	BatchSize     int           // logical items per upsert call, default 50
	ChunkSize     int           // max bytes per vector document, default 4000
	UpsertTimeout time.Duration // per batch, default 30s
}

func (c IndexerConfig) withDefaults() IndexerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 4000
	}
	if c.UpsertTimeout <= 0 {
		c.UpsertTimeout = 30 * time.Second
	}
	return c
}

const listPageSize = 1000

type chromaIndexer struct {
	db       VectorDB
	embedder Embedder
	cfg      IndexerConfig
}

// NewChromaIndexer wires the vector database. embedder may be nil, in which
// case the database embeds documents and queries server-side.
func NewChromaIndexer(db VectorDB, embedder Embedder, cfg IndexerConfig) VectorIndexer {
	return &chromaIndexer{db: db, embedder: embedder, cfg: cfg.withDefaults()}
}

// vectorRecord is one document as sent to the vector database.
type vectorRecord struct {
	id       string
	document string
	metadata map[string]any
}

// expand turns one item into its vector records. IDs depend only on the
// repository, the path and the chunk position, so re-indexing unchanged
// content overwrites the previous records.
func expand(item models.IndexItem, chunkSize int) []vectorRecord {
	base := func() map[string]any {
		language := item.Language
		if language == "" {
			language = "unknown"
		}
		md := map[string]any{
			"repositoryId": item.RepositoryID,
			"path":         item.Path,
			"language":     language,
			"isChunk":      false,
		}
		for k, v := range item.Extra {
			md[k] = v
		}
		return md
	}

	if len(item.Content) <= chunkSize {
		return []vectorRecord{{
			id:       fmt.Sprintf("%s_%s", item.RepositoryID, item.Path),
			document: item.Content,
			metadata: base(),
		}}
	}

	chunks := chunker.Split(item.Content, chunkSize)
	if len(chunks) == 0 {
		// whitespace only: keep one record so the path stays visible
		chunks = []string{truncate(item.Content, chunkSize)}
	}
	out := make([]vectorRecord, 0, len(chunks))
	for i, c := range chunks {
		md := base()
		md["isChunk"] = true
		md["chunkIndex"] = i
		md["totalChunks"] = len(chunks)
		out = append(out, vectorRecord{
			id:       fmt.Sprintf("%s_%s_%d", item.RepositoryID, item.Path, i),
			document: c,
			metadata: md,
		})
	}
	return out
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (x *chromaIndexer) Upsert(ctx context.Context, collection string, items []models.IndexItem) (IndexReport, error) {
	report := IndexReport{Collection: collection, Items: len(items)}

	col, err := x.db.GetOrCreateCollection(ctx, collection)
	if err != nil {
		return report, fmt.Errorf("open collection %s: %w", collection, err)
	}
	logger := log.With().Str("collection", collection).Logger()

	for start := 0; start < len(items); start += x.cfg.BatchSize {
		end := min(start+x.cfg.BatchSize, len(items))

		var records []vectorRecord
		for _, item := range items[start:end] {
			records = append(records, expand(item, x.cfg.ChunkSize)...)
		}
		if len(records) == 0 {
			continue
		}

		report.Batches++
		report.Vectors += len(records)

		began := time.Now()
		err := x.upsertBatch(ctx, col.ID, records)
		metrics.BatchDone(kindOf(collection), len(records), time.Since(began), err)
		if err != nil {
			report.FailedBatches++
			report.FailedVectors += len(records)
			logger.Error().Err(err).
				Int("batch", report.Batches).
				Str("first_id", records[0].id).
				Interface("first_metadata", records[0].metadata).
				Msg("upsert batch failed, continuing")
			continue
		}
		logger.Debug().Int("batch", report.Batches).Int("vectors", len(records)).Msg("upsert batch stored")
	}

	logger.Info().
		Int("items", report.Items).
		Int("vectors", report.Vectors).
		Int("failed_batches", report.FailedBatches).
		Msg("collection indexed")
	return report, nil
}

// upsertBatch sends one batch under its own timeout. Embedding, when done
// client-side, counts against the same deadline.
func (x *chromaIndexer) upsertBatch(ctx context.Context, collectionID string, records []vectorRecord) error {
	ctx, cancel := context.WithTimeout(ctx, x.cfg.UpsertTimeout)
	defer cancel()

	req := chroma.UpsertRequest{
		IDs:       make([]string, len(records)),
		Documents: make([]string, len(records)),
		Metadatas: make([]map[string]any, len(records)),
	}
	for i, r := range records {
		req.IDs[i] = r.id
		req.Documents[i] = r.document
		req.Metadatas[i] = r.metadata
	}

	if x.embedder != nil {
		vecs, err := x.embedder.Embed(ctx, req.Documents, TaskDocument)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		req.Embeddings = vecs
	}
	return x.db.Upsert(ctx, collectionID, req)
}

func (x *chromaIndexer) Query(ctx context.Context, collection, text string, topK int) ([]models.QueryResult, error) {
	col, err := x.db.GetCollection(ctx, collection)
	if errors.Is(err, chroma.ErrCollectionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	req := chroma.QueryRequest{
		NResults: topK,
		Include:  []string{"documents", "metadatas", "distances"},
	}
	if x.embedder != nil {
		vecs, err := x.embedder.Embed(ctx, []string{text}, TaskQuery)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		req.QueryEmbeddings = vecs
	} else {
		req.QueryTexts = []string{text}
	}

	res, err := x.db.Query(ctx, col.ID, req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	if len(res.IDs) == 0 {
		return nil, nil
	}

	kind := models.ContentKind(kindOf(collection))
	out := make([]models.QueryResult, 0, len(res.IDs[0]))
	for i, id := range res.IDs[0] {
		r := models.QueryResult{ID: id, Type: kind, Metadata: map[string]any{}}
		if len(res.Documents) > 0 && i < len(res.Documents[0]) && res.Documents[0][i] != nil {
			r.Content = *res.Documents[0][i]
		}
		if len(res.Metadatas) > 0 && i < len(res.Metadatas[0]) && res.Metadatas[0][i] != nil {
			r.Metadata = res.Metadatas[0][i]
		}
		if len(res.Distances) > 0 && i < len(res.Distances[0]) && res.Distances[0][i] != nil {
			r.Distance = *res.Distances[0][i]
		} else {
			// rank-based fallback keeps ordering total when distances are missing
			r.Distance = float64(i) * 0.1
		}
		out = append(out, r)
	}
	return out, nil
}

func (x *chromaIndexer) Count(ctx context.Context, collection string) (int, error) {
	col, err := x.db.GetCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	return x.db.Count(ctx, col.ID)
}

func (x *chromaIndexer) ListUniquePaths(ctx context.Context, collection string) (map[string]struct{}, error) {
	col, err := x.db.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]struct{})
	for offset := 0; ; offset += listPageSize {
		page, err := x.db.Get(ctx, col.ID, chroma.GetRequest{
			Include: []string{"metadatas"},
			Limit:   listPageSize,
			Offset:  offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		for _, md := range page.Metadatas {
			if p, ok := md["path"].(string); ok {
				paths[p] = struct{}{}
			}
		}
		if len(page.IDs) < listPageSize {
			return paths, nil
		}
	}
}

func (x *chromaIndexer) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := x.db.GetCollection(ctx, collection)
	if errors.Is(err, chroma.ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (x *chromaIndexer) DeleteCollection(ctx context.Context, collection string) error {
	return x.db.DeleteCollection(ctx, collection)
}

// kindOf derives the content kind label from a collection name.
func kindOf(collection string) string {
	if strings.HasSuffix(collection, "_discussions") {
		return string(models.KindDiscussion)
	}
	return string(models.KindCode)
}
