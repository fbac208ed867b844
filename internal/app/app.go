// Package app provides application initialization and dependency wiring.
//
// New assembles the full stack a model-backed command needs: connection
// pool, Genkit with the configured AI provider, embedder, vector store,
// generation client, and the curation agent. NewStorage assembles the
// pool and store only, so collection management commands run without AI
// credentials. Both return an App with embedded cleanup; call Close()
// to release.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cdelab/curator/db"
	"github.com/cdelab/curator/internal/agent"
	"github.com/cdelab/curator/internal/config"
	"github.com/cdelab/curator/internal/llm"
	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/store"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services. Genkit, Embedder, LLM, and Agent are nil when the
	// App came from NewStorage.
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool
	Store    *store.Store
	LLM      *llm.Client
	Agent    *agent.Agent

	// Lifecycle management
	dbCleanup   func()
	otelCleanup func()
}

// StoreAt opens a store against another database, sharing the app's
// embedder and logger. Migrations run against the target first. The
// returned cleanup closes the extra pool and must be called by the
// caller; Close does not know about it. Evaluation tasks use this when
// they name a source or target database other than the configured one.
func (a *App) StoreAt(ctx context.Context, connURL string) (*store.Store, func(), error) {
	if err := db.Migrate(connURL); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	st, err := store.New(pool, a.Embedder, a.Logger.With("component", "store"))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}

// Close gracefully shuts down all resources. Safe to call more than
// once and on a partially initialized App.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
		if a.Logger != nil {
			a.Logger.Debug("database pool closed")
		}
	}

	// Tracing shuts down last so teardown spans still flush.
	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}

	return nil
}
