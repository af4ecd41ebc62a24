// Package mcp provides an MCP (Model Context Protocol) server exposing
// riskloop's calibrator and simulator as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/riskloop/internal/config"
	"github.com/nvandessel/riskloop/internal/engine"
	"github.com/nvandessel/riskloop/internal/logging"
	"github.com/nvandessel/riskloop/internal/ratelimit"
	"github.com/nvandessel/riskloop/internal/runner"
	"github.com/nvandessel/riskloop/internal/store"
)

// Server wraps the MCP SDK server and provides riskloop tools.
type Server struct {
	server   *sdk.Server
	store    store.RunStore
	runner   *runner.Runner
	settings *config.RiskloopConfig
	limits   ratelimit.ToolLimits
	root     string
	logger   *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "riskloop")
	Version string // Server version
	Root    string // Project root; tool source paths resolve inside it

	// Settings supplies default trials, percentiles and curve points.
	// Nil uses config.Default().
	Settings *config.RiskloopConfig

	// Store persists runs saved by risk_simulate. Nil opens the SQLite
	// store under Root.
	Store store.RunStore

	Logger   *slog.Logger
	Audit    *logging.AuditLog
	Observer engine.Observer
}

// NewServer creates a new MCP server with riskloop tools.
func NewServer(cfg *Config) (*Server, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	runStore := cfg.Store
	if runStore == nil {
		runStore, err = store.NewSQLiteRunStore(root)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
	}

	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server: mcpServer,
		store:  runStore,
		runner: &runner.Runner{
			Logger:   logger,
			Audit:    cfg.Audit,
			Observer: cfg.Observer,
		},
		settings: settings,
		limits:   ratelimit.DefaultToolLimits(),
		root:     root,
		logger:   logger,
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
// The run store is closed when Run returns.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.store.Close()
	return err
}

// Close releases the run store.
func (s *Server) Close() error {
	return s.store.Close()
}
