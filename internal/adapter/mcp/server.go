// Package mcp exposes the review lookup tools over the Model Context
// Protocol so external agents can query case data through the same
// read-only surface the review session uses.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/fraudgate/fraudgate/internal/port/lookup"
)

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
}

// ServerDeps are the data sources the tools read from.
type ServerDeps struct {
	Lookup lookup.Store
}

// Server wraps an mcp-go streamable HTTP server.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *mcpserver.StreamableHTTPServer
}

// NewServer creates the MCP server and registers all tools.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version),
	}
	s.registerTools()
	s.httpSrv = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	return s
}

// MCPServer returns the underlying mcp-go server, used by tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start serves MCP over HTTP in a background goroutine.
func (s *Server) Start() error {
	go func() {
		slog.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpSrv.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
