package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/studystack/campusrag/internal/rag"
)

// defaultSeparators in order of preference, most to least specific. The
// splitter falls back to fixed character windows when none of them occur.
var defaultSeparators = []string{
	"\n\n\n", // major sections
	"\n\n",   // paragraphs
	"\n",
	". ",
	"? ",
	"! ",
	"; ",
	", ",
	" ",
}

// probeLen bounds the prefix used to locate a chunk inside the source text
// when assigning character offsets.
const probeLen = 100

// Splitter cuts normalized documents into overlapping chunks. Splitting is
// deterministic: the same content always yields the same chunks in the same
// order. Sizes are measured in bytes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New validates the size parameters and returns a ready splitter. Overlap
// must be smaller than the chunk size or every chunk would restate its
// predecessor.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", rag.ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", rag.ErrInvalidConfig, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", rag.ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// ChunkSize reports the configured maximum chunk size in bytes.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap reports the configured overlap in bytes.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split cuts a document into chunks with stable IDs and byte offsets into
// the document content. Whitespace-only documents yield no chunks; content
// at or under the chunk size yields exactly one.
func (s *Splitter) Split(doc rag.Document) []rag.Chunk {
	text := doc.Content
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.recursiveSplit(text, s.separators)
	chunks := make([]rag.Chunk, 0, len(pieces))
	pos := 0
	for i, content := range pieces {
		probe := content
		if len(probe) > probeLen {
			probe = probe[:probeLen]
		}
		start := pos
		if idx := strings.Index(text[pos:], probe); idx >= 0 {
			start = pos + idx
		}
		end := start + len(content)
		if end > len(text) {
			end = len(text)
		}

		chunks = append(chunks, rag.Chunk{
			ID:         rag.NewChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    content,
			Index:      i,
			CharStart:  start,
			CharEnd:    end,
			Meta:       doc.Meta,
		})

		// Next search starts before the overlap so the following chunk,
		// which repeats up to chunkOverlap bytes, can still be located.
		pos = end - s.chunkOverlap
		if pos < 0 {
			pos = 0
		}
	}
	return chunks
}

// recursiveSplit tries each separator in order, merges the resulting pieces
// into chunks of at most chunkSize, and re-splits any merged chunk that is
// still too large with the remaining separators.
func (s *Splitter) recursiveSplit(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	for i, sep := range seps {
		parts := strings.Split(text, sep)
		if len(parts) <= 1 {
			continue
		}
		merged := s.mergeParts(parts, sep)
		var out []string
		for _, chunk := range merged {
			if len(chunk) > s.chunkSize && i < len(seps)-1 {
				out = append(out, s.recursiveSplit(chunk, seps[i+1:])...)
			} else if strings.TrimSpace(chunk) != "" {
				out = append(out, chunk)
			}
		}
		return out
	}

	return s.charWindows(text)
}

// mergeParts greedily packs separator-delimited parts into chunks of about
// chunkSize bytes, rejoining with the separator. When a chunk fills up, its
// trailing parts totalling at most chunkOverlap bytes seed the next chunk so
// consecutive chunks share context.
func (s *Splitter) mergeParts(parts []string, sep string) []string {
	var merged []string
	var current []string
	currentLen := 0

	for _, part := range parts {
		partLen := len(part) + len(sep)

		if currentLen+partLen > s.chunkSize && len(current) > 0 {
			merged = append(merged, strings.Join(current, sep))

			cut := len(current)
			overlapLen := 0
			for cut > 0 {
				if overlapLen+len(current[cut-1]) > s.chunkOverlap {
					break
				}
				overlapLen += len(current[cut-1]) + len(sep)
				cut--
			}
			current = current[cut:]
			currentLen = overlapLen
		}

		current = append(current, part)
		currentLen += partLen
	}

	if len(current) > 0 {
		merged = append(merged, strings.Join(current, sep))
	}
	return merged
}

// charWindows is the last resort for text where no separator occurs at all:
// fixed windows of at most chunkSize bytes, stepping by chunkSize-chunkOverlap
// so consecutive windows still share overlap. Cuts fall on rune boundaries.
func (s *Splitter) charWindows(text string) []string {
	step := s.chunkSize - s.chunkOverlap
	var out []string
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			end = start + s.chunkSize
		}
		out = append(out, text[start:end])
		next := start + step
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return out
}
