package models

import "strconv"

// DocumentChunk is a bounded span of a source document's text, the unit of
// embedding and retrieval. Chunks are immutable once ingested; a document
// maps to many chunks and insertion order is preserved so citations stay
// stable.
type DocumentChunk struct {
	SourceDocument string    `json:"source_document"`
	ChunkIndex     int       `json:"chunk_index"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"-"`
}

// Key returns the identity of the chunk inside the index. Re-ingesting a
// chunk with the same key replaces its vector rather than duplicating it.
func (c *DocumentChunk) Key() string {
	return ChunkKey(c.SourceDocument, c.ChunkIndex)
}

// ChunkKey builds the index key for a (source document, chunk index) pair.
func ChunkKey(source string, index int) string {
	return source + "#" + strconv.Itoa(index)
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}
