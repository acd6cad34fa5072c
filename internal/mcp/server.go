package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/semdexhq/semdex/internal/controller"
)

const (
	// ServerName is the MCP server name
	ServerName = "semdex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the index controller over MCP stdio
type Server struct {
	mcp  *server.MCPServer
	ctrl *controller.Controller
}

// NewServer creates the MCP surface around an existing controller
func NewServer(ctrl *controller.Controller) *Server {
	s := &Server{
		mcp:  server.NewMCPServer(ServerName, ServerVersion),
		ctrl: ctrl,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(buildIndexTool(), s.handleBuildIndex)
	s.mcp.AddTool(queryTool(), s.handleQuery)
	s.mcp.AddTool(inlineContextTool(), s.handleInlineContext)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
