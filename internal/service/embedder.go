package service

import "context"

// EmbedTask tells the model whether it is embedding stored documents or
// search queries; retrieval models embed the two differently.
type EmbedTask string

const (
	TaskDocument EmbedTask = "RETRIEVAL_DOCUMENT"
	TaskQuery    EmbedTask = "RETRIEVAL_QUERY"
)

// Embedder converts texts into vectors. When the indexer has no Embedder,
// the vector database embeds documents and queries itself.
type Embedder interface {
	Embed(ctx context.Context, texts []string, task EmbedTask) ([][]float32, error)
}
