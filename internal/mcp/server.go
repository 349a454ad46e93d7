// ABOUTME: MCP server initialization and configuration for fedimove.
// ABOUTME: Exposes read-only archive inspection tools for AI agent access.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fedimove/fedimove/internal/archive"
)

// Server wraps the MCP server around one opened archive.
type Server struct {
	mcp  *gomcp.Server
	arch *archive.Archive
}

// NewServer creates an MCP server exposing the given archive. The tools are
// read-only: agents can inspect an archive but never mutate it.
func NewServer(arch *archive.Archive) (*Server, error) {
	if arch == nil {
		return nil, fmt.Errorf("archive is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "fedimove",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:  mcpServer,
		arch: arch,
	}

	s.registerArchiveTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
