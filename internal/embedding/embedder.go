// Package embedding provides text embedding via an external
// OpenAI-compatible endpoint, plus a deterministic mock and an LRU cache
// for query vectors.
package embedding

import "context"

// InputType distinguishes document chunks from queries for asymmetric
// retrieval models.
type InputType string

const (
	InputPassage InputType = "passage"
	InputQuery   InputType = "query"
)

// Embedder produces vector embeddings for text. Implementations return
// unit-normalized vectors so cosine similarity reduces to a dot product.
type Embedder interface {
	Embed(ctx context.Context, text string, input InputType) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, input InputType) ([][]float32, error)
	Dimensions() int
	Close() error
}
