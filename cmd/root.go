// Package cmd wires the curator command tree. Commands stay thin: they
// parse flags, build the application via internal/app, delegate to the
// internal packages, and print results. Logs go to stderr so stdout
// stays clean for data output and the MCP transport.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/app"
	"github.com/cdelab/curator/internal/config"
	"github.com/cdelab/curator/internal/log"
)

var (
	flagVerbose  bool
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Retrieval-augmented curation over object collections",
	Long: `Curator indexes structured objects into a vector store and curates them
with retrieval-augmented generation: semantic search, grounded question
answering, object completion and extraction, concept annotation, and
evaluation of model predictions against held-back fields.

Configuration comes from config.yaml and CURATOR_* environment variables.
Run 'curator version' to see the active settings.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "write logs as JSON")
}

// newLogger builds the stderr logger the persistent flags describe.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSONLogs})
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// setupApp loads configuration and builds the full application stack,
// model client included. Commands that generate or embed go through
// here and fail fast when no provider credentials are configured.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return app.New(ctx, cfg, newLogger())
}

// setupStorage builds the storage-only tier: database pool and store,
// no model client. Collection management works without API keys.
func setupStorage(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return app.NewStorage(ctx, cfg, newLogger())
}

// closeApp releases the application, logging rather than failing on
// shutdown problems. Meant for defer.
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("shutdown error", "error", err)
	}
}
