package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/studystack/campusrag/internal/embeddings"
	"github.com/studystack/campusrag/internal/rag"
)

const (
	collectionName = "campus_docs"
	metaFile       = "store_meta.json"
)

// Metadata keys private to the store layer.
const (
	metaCharStart = "char_start"
	metaCharEnd   = "char_end"
)

// storeMeta records which model built a persistent index so reopening with a
// different model is refused instead of silently mixing vector spaces.
type storeMeta struct {
	Model     string `json:"embedding_model"`
	Dimension int    `json:"dimension"`
}

// ChromemStore implements Store on chromem-go. With a directory it runs in
// persistent mode, where every write lands on disk before returning; with an
// empty directory it stays in memory, which is what tests use.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dims       int
}

// NewChromemStore opens or creates the vector store. dims is the expected
// vector length; every upsert and query is checked against it.
func NewChromemStore(dir string, dims int, embedder embeddings.Embedder) (*ChromemStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", rag.ErrInvalidConfig, dims)
	}

	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		if err := checkMeta(dir, embedder.Name(), dims); err != nil {
			return nil, err
		}
		var err error
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("%w: open vector store at %s: %v", rag.ErrStoreUnavailable, dir, err)
		}
		if err := writeMetaIfAbsent(dir, embedder.Name(), dims); err != nil {
			return nil, err
		}
	}

	col, err := db.GetOrCreateCollection(collectionName, map[string]string{
		"embedding_model": embedder.Name(),
		"dimension":       strconv.Itoa(dims),
	}, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("%w: create collection: %v", rag.ErrStoreUnavailable, err)
	}

	return &ChromemStore{db: db, collection: col, dims: dims}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, chunk rag.Chunk, vector []float32) error {
	if len(vector) != s.dims {
		return fmt.Errorf("%w: chunk %s has %d dimensions, store expects %d",
			rag.ErrDimensionMismatch, chunk.ID, len(vector), s.dims)
	}

	doc := chromem.Document{
		ID:        chunk.ID,
		Content:   chunk.Content,
		Metadata:  chunkMetadata(chunk),
		Embedding: vector,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: upsert chunk %s: %v", rag.ErrStoreUnavailable, chunk.ID, err)
	}
	return nil
}

func (s *ChromemStore) UpsertBatch(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%d chunks paired with %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	// Validate every vector first so a mismatch writes nothing.
	for i, vec := range vectors {
		if len(vec) != s.dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, store expects %d",
				rag.ErrDimensionMismatch, chunks[i].ID, len(vec), s.dims)
		}
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Metadata:  chunkMetadata(chunk),
			Embedding: vectors[i],
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("%w: upsert %d chunks: %v", rag.ErrStoreUnavailable, len(docs), err)
	}
	return nil
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{rag.MetaDocumentID: documentID}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("%w: delete document %s: %v", rag.ErrStoreUnavailable, documentID, err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, queryVector []float32, k int, filter Filter) ([]rag.SearchResult, error) {
	if len(queryVector) != s.dims {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store expects %d",
			rag.ErrDimensionMismatch, len(queryVector), s.dims)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: search limit must be positive, got %d", rag.ErrInvalidConfig, k)
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, queryVector, k, map[string]string(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", rag.ErrStoreUnavailable, err)
	}

	out := make([]rag.SearchResult, len(results))
	for i, r := range results {
		out[i] = rag.SearchResult{
			Chunk: chunkFromEntry(r.ID, r.Content, r.Metadata),
			Score: clampScore(float64(r.Similarity)),
		}
	}
	return out, nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// chunkMetadata flattens a chunk into the string map chromem stores. Extra
// keys are written first so the reserved keys win on collision.
func chunkMetadata(chunk rag.Chunk) map[string]string {
	md := make(map[string]string, len(chunk.Meta.Extra)+6)
	for k, v := range chunk.Meta.Extra {
		md[k] = v
	}
	md[rag.MetaSourcePath] = chunk.Meta.SourcePath
	md[rag.MetaCategory] = chunk.Meta.Category
	md[rag.MetaDocumentID] = chunk.DocumentID
	md[rag.MetaChunkIndex] = strconv.Itoa(chunk.Index)
	md[metaCharStart] = strconv.Itoa(chunk.CharStart)
	md[metaCharEnd] = strconv.Itoa(chunk.CharEnd)
	return md
}

// chunkFromEntry rebuilds a chunk from a stored entry.
func chunkFromEntry(id, content string, md map[string]string) rag.Chunk {
	index, _ := strconv.Atoi(md[rag.MetaChunkIndex])
	charStart, _ := strconv.Atoi(md[metaCharStart])
	charEnd, _ := strconv.Atoi(md[metaCharEnd])

	var extra map[string]string
	for k, v := range md {
		switch k {
		case rag.MetaSourcePath, rag.MetaCategory, rag.MetaDocumentID, rag.MetaChunkIndex, metaCharStart, metaCharEnd:
		default:
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[k] = v
		}
	}

	return rag.Chunk{
		ID:         id,
		DocumentID: md[rag.MetaDocumentID],
		Content:    content,
		Index:      index,
		CharStart:  charStart,
		CharEnd:    charEnd,
		Meta: rag.DocumentMeta{
			SourcePath: md[rag.MetaSourcePath],
			Category:   md[rag.MetaCategory],
			Extra:      extra,
		},
	}
}

// clampScore maps cosine similarity into [0,1]. Opposed vectors can go
// slightly negative, and anything below zero carries no retrieval signal.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func checkMeta(dir, model string, dims int) error {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read store metadata: %v", rag.ErrStoreUnavailable, err)
	}

	var meta storeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("%w: parse store metadata: %v", rag.ErrStoreUnavailable, err)
	}
	if meta.Model != model || meta.Dimension != dims {
		return fmt.Errorf("%w: index at %s was built with %s (%d dimensions), configured embedder is %s (%d dimensions)",
			rag.ErrDimensionMismatch, dir, meta.Model, meta.Dimension, model, dims)
	}
	return nil
}

func writeMetaIfAbsent(dir, model string, dims int) error {
	path := filepath.Join(dir, metaFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := json.MarshalIndent(storeMeta{Model: model, Dimension: dims}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write store metadata: %v", rag.ErrStoreUnavailable, err)
	}
	return nil
}
