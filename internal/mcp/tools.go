package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search the indexed campus documents semantically. Returns the most relevant passages with their sources and similarity scores."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
	mcp.WithString("category",
		mcp.Description("Restrict results to one document category, e.g. timetables or regulations"),
	),
	mcp.WithNumber("score_threshold",
		mcp.Description("Minimum similarity score in [0,1]; passages below it are dropped"),
	),
)

// getIndexStatsTool defines the get_index_stats MCP tool.
var getIndexStatsTool = mcp.NewTool("get_index_stats",
	mcp.WithDescription("Get statistics about the document index: document and chunk counts, per-category breakdown, and the last indexing run."),
)
