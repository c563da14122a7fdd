// Package vector provides an exact, in-memory similarity index over
// document chunk embeddings.
package vector

import "context"

// Result is one similarity hit.
type Result struct {
	Key   string
	Score float64
}

// Index is the similarity index contract. Search is exact (no
// approximation); callers may rely on the ordering contract and tie-break
// rule, not on exact score stability.
type Index interface {
	// Upsert inserts or replaces vectors by key. Replacing a key keeps its
	// original insertion position so tie-breaks stay stable.
	Upsert(ctx context.Context, keys []string, vectors [][]float32) error
	// Search returns the top-k keys by cosine similarity. Ties are broken
	// by insertion order: the earlier-inserted key wins.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Size() int
	Save(path string) error
	Load(path string) error
	Close() error
}
