// Package mcp provides an MCP (Model Context Protocol) server exposing the
// simulation session as tools.
package mcp

import (
	"context"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/seird/internal/logging"
	"github.com/nvandessel/seird/internal/ratelimit"
	"github.com/nvandessel/seird/internal/session"
)

// Server wraps the MCP SDK server around a session controller.
type Server struct {
	server *sdk.Server
	ctrl   *session.Controller
	limits ratelimit.Limits
	audit  *AuditLogger
	logger *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "seird")
	Version string // Server version

	// AuditDir receives audit.jsonl. Empty disables the audit log.
	AuditDir string

	// Limits guards expensive tools. Nil uses ratelimit.DefaultLimits.
	Limits ratelimit.Limits

	Logger *slog.Logger
}

// NewServer creates an MCP server with the seird tools registered.
func NewServer(cfg *Config, ctrl *session.Controller) *Server {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server: mcpServer,
		ctrl:   ctrl,
		limits: cfg.Limits,
		logger: cfg.Logger,
	}
	if s.limits == nil {
		s.limits = ratelimit.DefaultLimits()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if cfg.AuditDir != "" {
		s.audit = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()
	return s
}

// Run serves over stdio until the client disconnects, ctx is cancelled, or
// the process is interrupted. A running simulation is paused before
// returning.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server listening on stdio")
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if shutdownErr := s.ctrl.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		s.logger.Warn("stopping simulation", "error", shutdownErr)
	}
	return err
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.audit.Close()
}
