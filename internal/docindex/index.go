// Package docindex provides the embedding-backed document index: chunk
// ingestion and exact top-k similarity search with source diversity.
package docindex

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/forgeline/linesight/internal/embedding"
	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/internal/storage"
	"github.com/forgeline/linesight/internal/vector"
)

// Index ties chunk persistence, the embedding service, and the vector
// index together.
type Index struct {
	store    storage.Store
	embedder embedding.Embedder
	vectors  vector.Index
	// batchSize bounds how many chunks are embedded and committed at a
	// time. A failed batch leaves earlier batches searchable; re-ingesting
	// the failed batch replaces rather than duplicates.
	batchSize int
	// minUniqueSources is the number of distinct source documents search
	// tries to represent before filling by raw score.
	minUniqueSources int
	logger           *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a logger for ingestion progress.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Index) { idx.logger = l }
}

// WithBatchSize bounds the per-request embedding batch.
func WithBatchSize(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithMinUniqueSources sets the source-diversity floor for search.
func WithMinUniqueSources(n int) Option {
	return func(idx *Index) {
		if n >= 0 {
			idx.minUniqueSources = n
		}
	}
}

// New creates a document index.
func New(store storage.Store, embedder embedding.Embedder, vectors vector.Index, opts ...Option) *Index {
	idx := &Index{
		store:            store,
		embedder:         embedder,
		vectors:          vectors,
		batchSize:        10,
		minUniqueSources: 3,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest embeds and indexes chunks in bounded batches. Each batch is
// committed before the next starts, so an embedding failure loses only the
// failed batch; everything already committed stays searchable and the
// failed batch can be retried without duplication.
func (idx *Index) Ingest(ctx context.Context, chunks []*models.DocumentChunk) error {
	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vecs, err := idx.embedder.EmbedBatch(ctx, texts, embedding.InputPassage)
		if err != nil {
			return fmt.Errorf("embed batch starting at chunk %d: %w", start, err)
		}

		keys := make([]string, len(batch))
		for i, c := range batch {
			c.Embedding = vecs[i]
			keys[i] = c.Key()
		}
		if err := idx.store.UpsertChunks(ctx, batch); err != nil {
			return fmt.Errorf("persist batch starting at chunk %d: %w", start, err)
		}
		if err := idx.vectors.Upsert(ctx, keys, vecs); err != nil {
			return fmt.Errorf("index batch starting at chunk %d: %w", start, err)
		}
		idx.logger.Debug("ingested chunk batch",
			zap.Int("from", start),
			zap.Int("count", len(batch)),
		)
	}
	return nil
}

// Search returns the k most similar chunks to the query text, exact over
// the full index. Returns NoRelevantDocsError only when the index is
// empty; low scores are returned for the language model to judge.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]*models.ScoredChunk, error) {
	if idx.vectors.Size() == 0 {
		return nil, &models.NoRelevantDocsError{}
	}
	if k <= 0 {
		k = 4
	}
	queryVec, err := idx.embedder.Embed(ctx, query, embedding.InputQuery)
	if err != nil {
		return nil, err
	}

	// Over-fetch so the diversity pass has candidates from more than one
	// source document to choose from.
	fetchK := k * 3
	if fetchK > idx.vectors.Size() {
		fetchK = idx.vectors.Size()
	}
	hits, err := idx.vectors.Search(ctx, queryVec, fetchK)
	if err != nil {
		return nil, err
	}

	candidates := make([]*models.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := idx.store.GetChunkByKey(ctx, hit.Key)
		if err != nil {
			return nil, fmt.Errorf("resolve chunk %s: %w", hit.Key, err)
		}
		candidates = append(candidates, &models.ScoredChunk{Chunk: *chunk, Score: hit.Score})
	}
	return diversify(candidates, k, idx.minUniqueSources), nil
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	return idx.vectors.Size()
}

// diversify selects up to k candidates, guaranteeing chunks from up to
// minSources distinct source documents before filling the rest by score.
// Candidates arrive ordered best-first; the output preserves that order.
func diversify(candidates []*models.ScoredChunk, k, minSources int) []*models.ScoredChunk {
	if len(candidates) == 0 {
		return nil
	}

	selected := make([]*models.ScoredChunk, 0, k)
	used := make(map[string]bool)
	seenSource := make(map[string]bool)

	// First pass: best chunk from each distinct source, in score order.
	for _, c := range candidates {
		if len(selected) >= minSources || len(selected) >= k {
			break
		}
		if seenSource[c.Chunk.SourceDocument] {
			continue
		}
		seenSource[c.Chunk.SourceDocument] = true
		used[c.Chunk.Key()] = true
		selected = append(selected, c)
	}

	// Second pass: fill remaining slots with the top-scoring leftovers.
	for _, c := range candidates {
		if len(selected) >= k {
			break
		}
		if used[c.Chunk.Key()] {
			continue
		}
		used[c.Chunk.Key()] = true
		selected = append(selected, c)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Score > selected[j].Score
	})
	return selected
}
