// Package mcp exposes the tool catalogue as an MCP server so other assistants can drive
// the same backend operations with identical validation and reconciliation.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/domain"
)

// ResourceScheme prefixes the URIs of cached collections.
const ResourceScheme = "helix://cache/"

// Catalogue is the tool set served over MCP.
type Catalogue interface {
	Tools() []domain.Tool
	Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResult
}

// Cache serves cached collections as MCP resources.
type Cache interface {
	Current(ctx context.Context, c domain.Collection) (domain.Snapshot, error)
}

// Server wraps a catalogue and exposes it as an MCP server.
type Server struct {
	catalogue Catalogue
	cache     Cache
	logger    *slog.Logger
	name      string
	version   string
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithCache exposes cached collections as resources.
func WithCache(c Cache) Option { return func(s *Server) { s.cache = c } }

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(cat Catalogue, opts ...Option) *Server {
	s := &Server{
		catalogue: cat,
		logger:    logging.NewNop(),
		name:      "helix-mcp",
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer(s.name, s.version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	if s.cache != nil {
		s.registerResources()
	}
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	for _, t := range s.catalogue.Tools() {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		raw, err := json.Marshal(params)
		if err != nil {
			s.logger.Error("skipping tool with unserializable schema", "tool", t.Name, "err", err)
			continue
		}
		s.mcpServer.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, raw), s.handleCall)
	}
}

// handleCall dispatches through the catalogue. Tool failures are tool results, not protocol errors.
func (s *Server) handleCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	call := domain.ToolCall{
		ID:   "mcp_" + uuid.NewString(),
		Name: request.Params.Name,
		Args: request.GetArguments(),
	}
	if call.Args == nil {
		call.Args = map[string]any{}
	}

	res := s.catalogue.Dispatch(ctx, call)
	if res.IsError {
		return mcp.NewToolResultError(res.Output()), nil
	}
	return mcp.NewToolResultText(res.Output()), nil
}

func (s *Server) registerResources() {
	for _, c := range domain.Collections {
		uri := ResourceScheme + string(c)
		s.mcpServer.AddResource(mcp.NewResource(uri, "Cached "+string(c),
			mcp.WithMIMEType("application/json"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			snap, err := s.cache.Current(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", c, err)
			}
			data, err := json.Marshal(snap)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
			}, nil
		})
	}
}
