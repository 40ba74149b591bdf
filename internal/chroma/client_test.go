package chroma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRoundTrip(t *testing.T) {
	var upserted UpsertRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nanosecond heartbeat": 1}`))
	})
	mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["get_or_create"])
		_, _ = w.Write([]byte(`{"id":"c-1","name":"` + body["name"].(string) + `"}`))
	})
	mux.HandleFunc("GET /api/v1/collections/repo_x_code", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"c-1","name":"repo_x_code"}`))
	})
	mux.HandleFunc("GET /api/v1/collections/repo_y_code", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Collection repo_y_code does not exist."}`))
	})
	mux.HandleFunc("POST /api/v1/collections/c-1/upsert", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
		_, _ = w.Write([]byte(`true`))
	})
	mux.HandleFunc("GET /api/v1/collections/c-1/count", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`3`))
	})
	mux.HandleFunc("POST /api/v1/collections/c-1/query", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ids":[["a","b"]],"documents":[["doc a",null]],"metadatas":[[{"path":"a.go"},{"path":"b.go"}]],"distances":[[0.1,null]]}`))
	})
	mux.HandleFunc("POST /api/v1/collections/c-1/get", func(w http.ResponseWriter, r *http.Request) {
		var req GetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"metadatas"}, req.Include)
		_, _ = w.Write([]byte(`{"ids":["a"],"metadatas":[{"path":"a.go"}]}`))
	})
	mux.HandleFunc("DELETE /api/v1/collections/repo_x_code", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL+"/", 0)

	require.NoError(t, c.Heartbeat(ctx))

	col, err := c.GetOrCreateCollection(ctx, "repo_x_code")
	require.NoError(t, err)
	assert.Equal(t, "c-1", col.ID)

	col, err = c.GetCollection(ctx, "repo_x_code")
	require.NoError(t, err)
	assert.Equal(t, "repo_x_code", col.Name)

	_, err = c.GetCollection(ctx, "repo_y_code")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	err = c.Upsert(ctx, "c-1", UpsertRequest{
		IDs:       []string{"x_a.go"},
		Documents: []string{"package a"},
		Metadatas: []map[string]any{{"path": "a.go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x_a.go"}, upserted.IDs)
	assert.Nil(t, upserted.Embeddings)

	n, err := c.Count(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := c.Query(ctx, "c-1", QueryRequest{QueryTexts: []string{"q"}, NResults: 2})
	require.NoError(t, err)
	require.Len(t, res.IDs, 1)
	assert.Equal(t, []string{"a", "b"}, res.IDs[0])
	assert.Nil(t, res.Distances[0][1])
	assert.Nil(t, res.Documents[0][1])

	page, err := c.Get(ctx, "c-1", GetRequest{Include: []string{"metadatas"}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "a.go", page.Metadatas[0]["path"])

	require.NoError(t, c.DeleteCollection(ctx, "repo_x_code"))
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad metadata"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	err := c.Upsert(context.Background(), "c-1", UpsertRequest{IDs: []string{"a"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad metadata")
}
