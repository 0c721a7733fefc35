// Package mcpServer exposes the thesis library to MCP clients over streamable HTTP.
package mcpServer

import (
	"errors"
	"net/http"

	"github.com/akolanti/LibraryRAG/internal/rag"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "thesis-library"
	serverVersion = "1.0.0"

	queryToolName    = "query_library"
	queryDescription = "Ask the thesis library a question. Looks up titles in the catalog first, then searches thesis passages, and answers with the theses it relied on."

	searchToolName    = "search_catalog"
	searchDescription = "Find theses whose title or authors contain the query text. Returns catalog records, newest first."
)

type Server struct {
	library   rag.Library
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
	logger    *logger_i.Logger
}

func NewServer(library rag.Library) (*Server, error) {
	if library == nil {
		return nil, errors.New("library is required")
	}
	s := &Server{library: library, logger: logger_i.NewLogger("mcp")}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{})
	mcp.AddTool(s.mcpServer, &mcp.Tool{Name: queryToolName, Description: queryDescription}, s.handleQuery)
	mcp.AddTool(s.mcpServer, &mcp.Tool{Name: searchToolName, Description: searchDescription}, s.handleSearch)

	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return s.mcpServer
		},
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	return s, nil
}

// Handler returns the HTTP handler mounted at /mcp.
func (s *Server) Handler() http.Handler {
	return s.handler
}
