package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cdelab/curator/internal/agent"
	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// Tool names as listed by tools/list.
const (
	ToolSearchCollection = "search_collection"
	ToolLookupObject     = "lookup_object"
	ToolGroundConcept    = "ground_concept"
	ToolCompleteObject   = "complete_object"
)

// Store is the slice of the vector store the tools need. *store.Store
// satisfies it; tests substitute fakes.
type Store interface {
	Search(ctx context.Context, collection, text string, opts ...store.SearchOption) ([]store.ScoredRecord, error)
	Lookup(ctx context.Context, collection, id string) (*record.Record, error)
}

// Completer drafts completed objects for the complete_object tool.
// *agent.Agent satisfies it.
type Completer interface {
	Complete(ctx context.Context, seed *record.Record, opts agent.CompleteOptions) (*agent.Completion, error)
}

// Server wraps the MCP SDK server around the curation store.
type Server struct {
	mcpServer *mcp.Server
	store     Store
	completer Completer
	logger    log.Logger
}

// Config holds MCP server configuration. Completer is optional; without
// it the server runs with the retrieval tools only.
type Config struct {
	Name      string
	Version   string
	Store     Store
	Completer Completer
	Logger    log.Logger
}

// NewServer creates an MCP server with every available tool registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		store:     cfg.Store,
		completer: cfg.Completer,
		logger:    logger,
	}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves MCP requests on the transport until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerSearchTools(); err != nil {
		return err
	}
	if err := s.registerGroundTool(); err != nil {
		return err
	}
	if s.completer == nil {
		s.logger.Info("no completion backend configured, complete_object disabled")
		return nil
	}
	return s.registerCompleteTool()
}
