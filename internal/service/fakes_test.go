package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmednasr/firstcommit/internal/chroma"
	"github.com/ahmednasr/firstcommit/internal/fetcher"
	"github.com/ahmednasr/firstcommit/internal/models"
	"github.com/ahmednasr/firstcommit/internal/repository/memstore"
)

var (
	_ MetadataStore = (*memstore.MemoryStore)(nil)
	_ VectorDB      = (*chroma.Client)(nil)
	_ VectorDB      = (*fakeVectorDB)(nil)
)

// ---- Vector database -------------------------------------------------------

type fakeRecord struct {
	document string
	metadata map[string]any
}

type fakeCollection struct {
	id      string
	records map[string]fakeRecord
}

func (c *fakeCollection) sortedIDs() []string {
	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// fakeVectorDB keeps collections in memory. Hits are returned in ID order
// with distances rising by 0.5 per rank.
type fakeVectorDB struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection // by name
	nextID      int

	// stall, when set, makes Upsert block until its context expires for
	// requests it matches.
	stall func(req chroma.UpsertRequest) bool

	upserts []chroma.UpsertRequest
	queries []chroma.QueryRequest
}

func newFakeVectorDB() *fakeVectorDB {
	return &fakeVectorDB{collections: make(map[string]*fakeCollection)}
}

func (f *fakeVectorDB) byID(id string) *fakeCollection {
	for _, c := range f.collections {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (f *fakeVectorDB) GetOrCreateCollection(_ context.Context, name string) (*chroma.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[name]
	if !ok {
		f.nextID++
		c = &fakeCollection{id: fmt.Sprintf("col-%d", f.nextID), records: map[string]fakeRecord{}}
		f.collections[name] = c
	}
	return &chroma.Collection{ID: c.id, Name: name}, nil
}

func (f *fakeVectorDB) GetCollection(_ context.Context, name string) (*chroma.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[name]
	if !ok {
		return nil, chroma.ErrCollectionNotFound
	}
	return &chroma.Collection{ID: c.id, Name: name}, nil
}

func (f *fakeVectorDB) DeleteCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; !ok {
		return chroma.ErrCollectionNotFound
	}
	delete(f.collections, name)
	return nil
}

func (f *fakeVectorDB) Upsert(ctx context.Context, collectionID string, req chroma.UpsertRequest) error {
	f.mu.Lock()
	stall := f.stall != nil && f.stall(req)
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, req)
	c := f.byID(collectionID)
	if c == nil {
		return chroma.ErrCollectionNotFound
	}
	for i, id := range req.IDs {
		c.records[id] = fakeRecord{document: req.Documents[i], metadata: req.Metadatas[i]}
	}
	return nil
}

func (f *fakeVectorDB) Query(_ context.Context, collectionID string, req chroma.QueryRequest) (*chroma.QueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req)
	c := f.byID(collectionID)
	if c == nil {
		return nil, chroma.ErrCollectionNotFound
	}

	res := &chroma.QueryResponse{
		IDs:       [][]string{{}},
		Documents: [][]*string{{}},
		Metadatas: [][]map[string]any{{}},
		Distances: [][]*float64{{}},
	}
	for i, id := range c.sortedIDs() {
		if i == req.NResults {
			break
		}
		doc := c.records[id].document
		dist := float64(i) * 0.5
		res.IDs[0] = append(res.IDs[0], id)
		res.Documents[0] = append(res.Documents[0], &doc)
		res.Metadatas[0] = append(res.Metadatas[0], c.records[id].metadata)
		res.Distances[0] = append(res.Distances[0], &dist)
	}
	return res, nil
}

func (f *fakeVectorDB) Count(_ context.Context, collectionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.byID(collectionID)
	if c == nil {
		return 0, chroma.ErrCollectionNotFound
	}
	return len(c.records), nil
}

func (f *fakeVectorDB) Get(_ context.Context, collectionID string, req chroma.GetRequest) (*chroma.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.byID(collectionID)
	if c == nil {
		return nil, chroma.ErrCollectionNotFound
	}
	ids := c.sortedIDs()
	start := min(req.Offset, len(ids))
	end := len(ids)
	if req.Limit > 0 {
		end = min(start+req.Limit, len(ids))
	}
	res := &chroma.GetResponse{}
	for _, id := range ids[start:end] {
		res.IDs = append(res.IDs, id)
		res.Metadatas = append(res.Metadatas, c.records[id].metadata)
	}
	return res, nil
}

func (f *fakeVectorDB) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[name]
	return ok
}

// ---- Embedder --------------------------------------------------------------

type fakeEmbedder struct {
	tasks []EmbedTask
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string, task EmbedTask) ([][]float32, error) {
	e.tasks = append(e.tasks, task)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

// ---- Repository host -------------------------------------------------------

type fakeHost struct {
	meta           models.RepoMetadata
	metaErr        error
	discussions    []models.Discussion
	discussionsErr error
}

func (h *fakeHost) GetMetadata(_ context.Context, _, _, _ string) (models.RepoMetadata, error) {
	return h.meta, h.metaErr
}

func (h *fakeHost) FetchDiscussions(_ context.Context, _, _, _ string) ([]models.Discussion, error) {
	return h.discussions, h.discussionsErr
}

// ---- Fetcher ---------------------------------------------------------------

// fakeFetcher writes files into a fresh directory on every Fetch.
type fakeFetcher struct {
	base  string
	files map[string][]byte
	err   error
	gate  chan struct{} // when non-nil, Fetch waits for it to close
	hook  func()        // when non-nil, runs at the start of Fetch

	calls atomic.Int32
	mu    sync.Mutex
	dirs  []string
}

func newFakeFetcher(t *testing.T, files map[string][]byte) *fakeFetcher {
	return &fakeFetcher{base: t.TempDir(), files: files}
}

func (f *fakeFetcher) Fetch(ctx context.Context, _, _, _ string) (*fetcher.Workspace, error) {
	n := f.calls.Add(1)
	if f.hook != nil {
		f.hook()
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	dir := filepath.Join(f.base, fmt.Sprintf("ws-%d", n))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for rel, data := range f.files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	f.dirs = append(f.dirs, dir)
	f.mu.Unlock()
	return &fetcher.Workspace{Dir: dir}, nil
}

func (f *fakeFetcher) workspaces() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.dirs)
}

// ---- Fixtures --------------------------------------------------------------

func sampleMeta() models.RepoMetadata {
	return models.RepoMetadata{
		GitHubID:      1001,
		Owner:         "octo",
		Name:          "hello",
		FullName:      "octo/hello",
		DefaultBranch: "main",
		StarsCount:    3,
	}
}

// sampleFiles has three indexable files and two binaries.
func sampleFiles() map[string][]byte {
	return map[string][]byte{
		"main.go":      []byte("package main\n\nfunc main() {}\n"),
		"lib/util.go":  []byte("package lib\n\nfunc Util() int { return 1 }\n"),
		"README.md":    []byte("# hello\n\nA tiny demo.\n"),
		"logo.png":     {0x89, 'P', 'N', 'G'},
		"fonts/a.woff": {0, 1, 2, 3},
	}
}

func sampleDiscussions() []models.Discussion {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return []models.Discussion{
		{
			ID: "issue_11", Kind: models.DiscussionIssue, Number: 1,
			Title: "Crash", Body: "It crashes", Author: "alice", CreatedAt: at,
			URL: "https://github.com/octo/hello/issues/1",
			Comments: []models.Comment{
				{ID: "comment_1", Body: "me too", Author: "bob", CreatedAt: at},
				{ID: "comment_2", Body: "fixed?", Author: "carol", CreatedAt: at},
				{ID: "comment_3", Body: "yes", Author: "alice", CreatedAt: at},
			},
		},
		{
			ID: "issue_12", Kind: models.DiscussionIssue, Number: 2,
			Title: "Docs", Body: "Typo", Author: "dave", CreatedAt: at,
			URL: "https://github.com/octo/hello/issues/2",
		},
	}
}

type harness struct {
	store   *memstore.MemoryStore
	db      *fakeVectorDB
	host    *fakeHost
	fetcher *fakeFetcher
	guard   ImportGuard
	indexer VectorIndexer
	svc     ImportService
}

func newHarness(t *testing.T, policy ReimportPolicy) *harness {
	t.Helper()
	h := &harness{
		store:   memstore.New(),
		db:      newFakeVectorDB(),
		host:    &fakeHost{meta: sampleMeta(), discussions: sampleDiscussions()},
		fetcher: newFakeFetcher(t, sampleFiles()),
		guard:   NewMemoryGuard(),
	}
	h.indexer = NewChromaIndexer(h.db, nil, IndexerConfig{BatchSize: 1, UpsertTimeout: 200 * time.Millisecond})
	h.svc = NewImportService(h.store, h.host, h.fetcher, h.indexer, h.guard, ImportConfig{
		Policy:          policy,
		PersistAttempts: 3,
		PersistDelay:    time.Millisecond,
	})
	return h
}

func (h *harness) importSync(t *testing.T, user string) (*models.Repository, error) {
	t.Helper()
	return h.svc.Import(context.Background(), ImportRequest{
		RepoURL: "https://github.com/octo/hello",
		Token:   "tok",
		UserID:  user,
		Mode:    ModeSync,
	})
}
