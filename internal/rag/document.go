package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Metadata keys stored on every chunk. Search filters and API responses use
// the same keys, so they are defined once here.
const (
	MetaSourcePath = "source_path"
	MetaCategory   = "category"
	MetaDocumentID = "document_id"
	MetaChunkIndex = "chunk_index"
)

// DefaultCategory is assigned when an input carries no category of its own.
const DefaultCategory = "general"

// DocumentMeta is the metadata envelope attached to a document and inherited
// by its chunks. SourcePath and Category are always present; Extra holds
// optional string-valued fields (course code, semester, uploader) that are
// stored and filterable but never interpreted by the engine.
type DocumentMeta struct {
	SourcePath string
	Category   string
	Extra      map[string]string
}

// Document is a normalized unit of ingested content.
type Document struct {
	ID       string
	Content  string
	Meta     DocumentMeta
	LoadedAt time.Time
}

// Chunk is a contiguous piece of a document sized for embedding. CharStart
// and CharEnd are byte offsets into the normalized document content; the
// chunk text may additionally carry overlap from its predecessor.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Index      int
	CharStart  int
	CharEnd    int
	Meta       DocumentMeta
}

// SearchResult pairs a retrieved chunk with its similarity score and final
// position. Score is cosine similarity mapped to [0,1]; Rank starts at 1.
type SearchResult struct {
	Chunk Chunk
	Score float64
	Rank  int
}

// RawInput is content handed to the engine before normalization.
type RawInput struct {
	Text       string
	SourcePath string
	Category   string
	Extra      map[string]string
}

// NewDocumentID derives the stable identifier for a source path. The same
// path always yields the same ID, which is what turns re-indexing into an
// upsert instead of an append.
func NewDocumentID(sourcePath string) string {
	sum := sha256.Sum256([]byte(sourcePath))
	return hex.EncodeToString(sum[:])[:16]
}

// NewChunkID derives the stable identifier for a chunk from its document and
// position within it.
func NewChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// ContentHash fingerprints normalized content for change detection.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
