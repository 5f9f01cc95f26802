package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/studystack/campusrag/internal/embeddings"
	"github.com/studystack/campusrag/internal/rag"
	"github.com/studystack/campusrag/internal/vectordb"
)

// Options configure how queries are answered.
type Options struct {
	// TopK is the maximum number of results returned.
	TopK int
	// ScoreThreshold drops results scoring below it, in [0, 1].
	ScoreThreshold float64
	// SourceDiversityCap limits how many chunks of one document may
	// appear in the results.
	SourceDiversityCap int
	// OverfetchFactor widens the store query to TopK*OverfetchFactor
	// candidates so threshold and diversity filtering still leave
	// enough to fill TopK.
	OverfetchFactor int
}

// DefaultOptions returns the standard retrieval settings.
func DefaultOptions() Options {
	return Options{
		TopK:               5,
		ScoreThreshold:     0.35,
		SourceDiversityCap: 3,
		OverfetchFactor:    3,
	}
}

func (o Options) validate() error {
	if o.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", rag.ErrInvalidConfig, o.TopK)
	}
	if o.ScoreThreshold < 0 || o.ScoreThreshold > 1 {
		return fmt.Errorf("%w: score_threshold must be in [0, 1], got %v", rag.ErrInvalidConfig, o.ScoreThreshold)
	}
	if o.SourceDiversityCap < 1 {
		return fmt.Errorf("%w: source_diversity_cap must be at least 1, got %d", rag.ErrInvalidConfig, o.SourceDiversityCap)
	}
	if o.OverfetchFactor < 1 {
		return fmt.Errorf("%w: overfetch_factor must be at least 1, got %d", rag.ErrInvalidConfig, o.OverfetchFactor)
	}
	return nil
}

// Reranker reorders thresholded candidates before the diversity cap and
// final truncation. Implementations typically overwrite Score; the final
// ordering always follows Score, so a reranker that keeps scores
// unchanged has no effect on order.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []rag.SearchResult) ([]rag.SearchResult, error)
}

// CallOption overrides retrieval settings for a single Retrieve call.
type CallOption func(*callConfig)

type callConfig struct {
	opts     Options
	filter   vectordb.Filter
	reranker Reranker
}

// WithTopK overrides the number of results for one call.
func WithTopK(k int) CallOption {
	return func(c *callConfig) { c.opts.TopK = k }
}

// WithScoreThreshold overrides the minimum score for one call.
func WithScoreThreshold(threshold float64) CallOption {
	return func(c *callConfig) { c.opts.ScoreThreshold = threshold }
}

// WithFilter restricts one call to chunks whose metadata matches every
// key in the filter.
func WithFilter(filter vectordb.Filter) CallOption {
	return func(c *callConfig) { c.filter = filter }
}

// WithCategory restricts one call to a single document category.
func WithCategory(category string) CallOption {
	return func(c *callConfig) {
		if c.filter == nil {
			c.filter = vectordb.Filter{}
		}
		c.filter[rag.MetaCategory] = category
	}
}

// WithReranker applies a reranking stage for one call.
func WithReranker(r Reranker) CallOption {
	return func(c *callConfig) { c.reranker = r }
}

// Retriever answers natural-language queries against the vector store.
type Retriever struct {
	embedder embeddings.Embedder
	store    vectordb.Store
	opts     Options
}

// New creates a retriever. Options are validated here; per-call overrides
// are re-validated on every Retrieve.
func New(embedder embeddings.Embedder, store vectordb.Store, opts Options) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", rag.ErrInvalidConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: vector store is required", rag.ErrInvalidConfig)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Retriever{embedder: embedder, store: store, opts: opts}, nil
}

// Options returns the retriever's default settings.
func (r *Retriever) Options() Options {
	return r.opts
}

// Retrieve embeds the query, searches the store and returns the ranked
// results. An empty result set is a valid answer for an on-topic corpus
// miss; an unreachable store is always a returned error, never an empty
// set.
func (r *Retriever) Retrieve(ctx context.Context, query string, calls ...CallOption) ([]rag.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", rag.ErrInvalidConfig)
	}

	cfg := callConfig{opts: r.opts}
	for _, call := range calls {
		call(&cfg)
	}
	if err := cfg.opts.validate(); err != nil {
		return nil, err
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	fetch := cfg.opts.TopK * cfg.opts.OverfetchFactor
	candidates, err := r.store.Search(ctx, vec, fetch, cfg.filter)
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	var kept []rag.SearchResult
	for _, c := range candidates {
		if c.Score >= cfg.opts.ScoreThreshold {
			kept = append(kept, c)
		}
	}

	if cfg.reranker != nil && len(kept) > 0 {
		kept, err = cfg.reranker.Rerank(ctx, query, kept)
		if err != nil {
			return nil, fmt.Errorf("reranking: %w", err)
		}
	}

	sortResults(kept)
	kept = capPerDocument(kept, cfg.opts.SourceDiversityCap)
	if len(kept) > cfg.opts.TopK {
		kept = kept[:cfg.opts.TopK]
	}
	for i := range kept {
		kept[i].Rank = i + 1
	}
	return kept, nil
}

// sortResults orders by score descending, then chunk index ascending,
// then document ID ascending, so equal-score results always come back in
// the same order.
func sortResults(results []rag.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.Index != results[j].Chunk.Index {
			return results[i].Chunk.Index < results[j].Chunk.Index
		}
		return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
	})
}

// capPerDocument keeps at most limit chunks per document. The input must
// already be sorted by score, so the kept chunks are the highest-scoring
// ones.
func capPerDocument(results []rag.SearchResult, limit int) []rag.SearchResult {
	perDoc := make(map[string]int, len(results))
	kept := results[:0]
	for _, res := range results {
		if perDoc[res.Chunk.DocumentID] >= limit {
			continue
		}
		perDoc[res.Chunk.DocumentID]++
		kept = append(kept, res)
	}
	return kept
}
