// Package chroma is a small client for the Chroma vector database REST API
// (v1). Only the calls used by the indexer are implemented.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ahmednasr/firstcommit/internal/httpclient"
)

// ErrCollectionNotFound is returned when a named collection does not exist.
var ErrCollectionNotFound = errors.New("chroma: collection not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chroma: status %d: %s", e.StatusCode, e.Body)
}

// Collection identifies a server-side collection.
type Collection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UpsertRequest adds or replaces records by ID. Embeddings may be omitted,
// in which case the collection's embedding function computes them from
// Documents.
type UpsertRequest struct {
	IDs        []string         `json:"ids"`
	Documents  []string         `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas"`
	Embeddings [][]float32      `json:"embeddings,omitempty"`
}

// QueryRequest asks for the nearest neighbours of each query.
type QueryRequest struct {
	QueryTexts      []string    `json:"query_texts,omitempty"`
	QueryEmbeddings [][]float32 `json:"query_embeddings,omitempty"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include,omitempty"`
}

// QueryResponse holds one result list per query. Distances and documents
// can be null for individual hits.
type QueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]*string        `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]*float64       `json:"distances"`
}

// GetRequest pages through records of a collection.
type GetRequest struct {
	Include []string `json:"include,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Offset  int      `json:"offset,omitempty"`
}

// GetResponse is one page of records.
type GetResponse struct {
	IDs       []string         `json:"ids"`
	Metadatas []map[string]any `json:"metadatas"`
	Documents []*string        `json:"documents"`
}

// Client talks to a single Chroma server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient returns a client for the server at baseURL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string, retryMax int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    httpclient.NewRetryClient(retryMax),
	}
}

// Heartbeat checks that the server is reachable.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/heartbeat", nil, nil)
}

// GetOrCreateCollection returns the named collection, creating it if needed.
func (c *Client) GetOrCreateCollection(ctx context.Context, name string) (*Collection, error) {
	var col Collection
	body := map[string]any{"name": name, "get_or_create": true}
	if err := c.do(ctx, http.MethodPost, "/collections", body, &col); err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", name, err)
	}
	return &col, nil
}

// GetCollection returns the named collection without creating it.
func (c *Client) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var col Collection
	if err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name), nil, &col); err != nil {
		if isNotFound(err) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return &col, nil
}

// DeleteCollection drops the named collection and all of its records.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(name), nil, nil); err != nil {
		if isNotFound(err) {
			return ErrCollectionNotFound
		}
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes records into the collection with the given ID.
func (c *Client) Upsert(ctx context.Context, collectionID string, req UpsertRequest) error {
	return c.do(ctx, http.MethodPost, "/collections/"+collectionID+"/upsert", req, nil)
}

// Query runs a nearest-neighbour search.
func (c *Client) Query(ctx context.Context, collectionID string, req QueryRequest) (*QueryResponse, error) {
	var res QueryResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+collectionID+"/query", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Count returns the number of records in the collection.
func (c *Client) Count(ctx context.Context, collectionID string) (int, error) {
	var n int
	if err := c.do(ctx, http.MethodGet, "/collections/"+collectionID+"/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Get returns one page of records.
func (c *Client) Get(ctx context.Context, collectionID string, req GetRequest) (*GetResponse, error) {
	var res GetResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+collectionID+"/get", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("chroma: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("chroma: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chroma: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chroma: decode %s response: %w", path, err)
	}
	return nil
}

// isNotFound recognises both the 404 of newer servers and the ValueError
// older servers report for a missing collection.
func isNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound ||
		strings.Contains(apiErr.Body, "does not exist")
}
