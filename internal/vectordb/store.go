package vectordb

import (
	"context"

	"github.com/studystack/campusrag/internal/rag"
)

// Filter narrows a search to chunks whose metadata matches every key/value
// pair. Keys are the rag.Meta* constants plus any Extra keys set at
// ingestion.
type Filter map[string]string

// Store persists chunk vectors and serves similarity search over them.
// Implementations apply filters before ranking, so a filtered search
// considers the full matching set rather than post-filtering a truncated
// one.
type Store interface {
	// Upsert writes one chunk and its vector, replacing any existing entry
	// with the same chunk ID.
	Upsert(ctx context.Context, chunk rag.Chunk, vector []float32) error

	// UpsertBatch writes chunks and their vectors pairwise. Every vector is
	// validated against the store dimension before anything is written.
	UpsertBatch(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error

	// DeleteByDocument removes every chunk of the given document. Deleting
	// an absent document is a no-op.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Search returns up to k chunks ranked by similarity to the query
	// vector, scored in [0,1] descending. An empty store yields no results
	// and no error.
	Search(ctx context.Context, queryVector []float32, k int, filter Filter) ([]rag.SearchResult, error)

	// Count reports the number of stored chunks.
	Count() int
}
