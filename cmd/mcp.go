package cmd

import (
	"fmt"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/app"
	"github.com/cdelab/curator/internal/config"
	"github.com/cdelab/curator/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve collections over MCP on stdio",
	Long: `Mcp exposes the store to MCP clients: search_collection,
lookup_object, ground_concept, and complete_object. Without AI
credentials the server still runs, limited to the retrieval tools.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger := newLogger()

	// Degrade to the storage tier when no provider is usable, so
	// lookup keeps working without API keys.
	var a *app.App
	if aiErr := cfg.ValidateAI(); aiErr == nil {
		a, err = app.New(ctx, cfg, logger)
	} else {
		logger.Info("no usable AI provider, serving retrieval tools only", "reason", aiErr)
		a, err = app.NewStorage(ctx, cfg, logger)
	}
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer closeApp(a)

	mcpCfg := mcp.Config{
		Name:    "curator",
		Version: AppVersion,
		Store:   a.Store,
		Logger:  logger.With("component", "mcp"),
	}
	if a.Agent != nil {
		mcpCfg.Completer = a.Agent
	}
	server, err := mcp.NewServer(mcpCfg)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "name", "curator", "version", AppVersion, "transport", "stdio")
	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	logger.Info("MCP server shut down")
	return nil
}
