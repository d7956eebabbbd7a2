package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/vanhub/pkg/dispatch"
)

// Server exposes the hub's devices as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	intake    *dispatch.Intake
}

// NewServer creates a new MCP server backed by intake
func NewServer(intake *dispatch.Intake, version string) *Server {
	s := &Server{intake: intake}

	s.mcpServer = server.NewMCPServer(
		"vanhub",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// Serve runs the stdio transport over in and out until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}
