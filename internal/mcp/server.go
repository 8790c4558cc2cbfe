package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/vaultsearch/internal/config"
	"github.com/dshills/vaultsearch/internal/embedder"
	"github.com/dshills/vaultsearch/internal/engine"
	"github.com/dshills/vaultsearch/internal/storage"
	"github.com/dshills/vaultsearch/internal/vault"
)

const (
	// ServerName is the MCP server name
	ServerName = "vaultsearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	store  storage.EmbeddingStore
	engine *engine.Engine
}

// NewServer creates a new MCP server instance from configuration
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	v, err := vault.NewFSVault(cfg.VaultPath,
		vault.WithMaxFileSize(cfg.MaxFileSizeBytes),
		vault.WithExcludeGlobs(cfg.ExcludeGlobs),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Host:      cfg.Embedding.Host,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:    mcpServer,
		store:  store,
		engine: engine.New(v, store, emb),
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexVaultTool(), s.handleIndexVault)
	s.mcp.AddTool(searchNotesTool(), s.handleSearchNotes)
	s.mcp.AddTool(similarNotesTool(), s.handleSimilarNotes)
	s.mcp.AddTool(indexEntitiesTool(), s.handleIndexEntities)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
