package models

// ImportRequest is the payload for POST /repositories/import.
type ImportRequest struct {
	RepoURL string `json:"repoUrl"` // https://github.com/owner/name
	Wait    bool   `json:"wait"`    // block until the import finishes
}

// SearchRequest is the payload for POST /repositories/:id/search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"` // optional; default handled in service
}

// ContentKind distinguishes the two vector collections of a repository.
type ContentKind string

const (
	KindCode       ContentKind = "code"
	KindDiscussion ContentKind = "discussion"
)

// IndexItem is one document handed to the vector indexer. Oversized items
// are split into chunks by the indexer itself.
type IndexItem struct {
	RepositoryID string
	Path         string
	Content      string
	Language     string
	Extra        map[string]any // merged into the vector metadata
}

// QueryResult is a single ranked hit from a vector collection.
type QueryResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
	Type     ContentKind    `json:"type"`
}

// Path returns the path metadata of the hit, or "" when absent.
func (r QueryResult) Path() string {
	p, _ := r.Metadata["path"].(string)
	return p
}
