package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/studystack/campusrag/internal/manifest"
	"github.com/studystack/campusrag/internal/retriever"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the indexed corpus to AI agents.
type Server struct {
	retriever *retriever.Retriever
	manifest  *manifest.Store
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(ret *retriever.Retriever, man *manifest.Store) *Server {
	s := &Server{
		retriever: ret,
		manifest:  man,
	}

	s.mcp = server.NewMCPServer(
		"campusrag",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(getIndexStatsTool, s.handleGetIndexStats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
