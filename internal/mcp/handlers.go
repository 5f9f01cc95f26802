package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/studystack/campusrag/internal/rag"
	"github.com/studystack/campusrag/internal/retriever"
)

// handleSearchDocuments performs semantic search over the document index.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	var calls []retriever.CallOption
	if topK := request.GetInt("top_k", 0); topK > 0 {
		calls = append(calls, retriever.WithTopK(topK))
	}
	if category := request.GetString("category", ""); category != "" {
		calls = append(calls, retriever.WithCategory(category))
	}
	if threshold := request.GetFloat("score_threshold", -1); threshold >= 0 {
		calls = append(calls, retriever.WithScoreThreshold(threshold))
	}

	results, err := s.retriever.Retrieve(ctx, query, calls...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The corpus may not be indexed yet. Run `campusrag seed` to index it."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleGetIndexStats reports index contents and the most recent run.
func (s *Server) handleGetIndexStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.manifest.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read index stats: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Documents: %d\nChunks: %d\n", stats.Documents, stats.Chunks)
	if len(stats.ByCategory) > 0 {
		sb.WriteString("By category:\n")
		for category, count := range stats.ByCategory {
			fmt.Fprintf(&sb, "  %s: %d\n", category, count)
		}
	}
	if stats.LastRun != nil {
		r := stats.LastRun
		fmt.Fprintf(&sb, "Last run %s: %d total, %d succeeded, %d failed, %d skipped (finished %s)\n",
			r.RunID, r.Total, r.Succeeded, r.Failed, r.Skipped, r.FinishedAt.Format("2006-01-02 15:04:05"))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults converts search results into a text format optimized
// for AI agent consumption.
func formatSearchResults(results []rag.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n", len(results))

	for _, r := range results {
		fmt.Fprintf(&sb, "\n--- Result %d ---\n", r.Rank)
		fmt.Fprintf(&sb, "Source: %s", r.Chunk.Meta.SourcePath)
		if r.Chunk.Meta.Category != "" {
			fmt.Fprintf(&sb, " (%s)", r.Chunk.Meta.Category)
		}
		fmt.Fprintf(&sb, "\nScore: %.3f\n\n%s\n", r.Score, r.Chunk.Content)
	}

	return sb.String()
}
