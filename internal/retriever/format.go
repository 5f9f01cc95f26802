package retriever

import (
	"fmt"
	"strings"

	"github.com/studystack/campusrag/internal/rag"
)

// FormatResults renders search results as human-readable text for the
// CLI.
func FormatResults(results []rag.SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for _, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (score: %.4f) ---\n", r.Rank, r.Score))

		if r.Chunk.Meta.SourcePath != "" {
			sb.WriteString(fmt.Sprintf("Source: %s\n", r.Chunk.Meta.SourcePath))
		}
		if r.Chunk.Meta.Category != "" {
			sb.WriteString(fmt.Sprintf("Category: %s\n", r.Chunk.Meta.Category))
		}

		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// FormatContext renders results as a numbered context block suitable for
// prompt assembly or copy-paste citation.
func FormatContext(results []rag.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("Source %d: %s (relevance: %.2f)\n", r.Rank, r.Chunk.Meta.SourcePath, r.Score))
		sb.WriteString(r.Chunk.Content)
	}
	return sb.String()
}
