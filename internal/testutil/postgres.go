// Package testutil provides shared testing utilities for the curator project.
//
// This package contains reusable test infrastructure that can be used across
// multiple packages, following the pattern of Go standard library packages
// like net/http/httptest and testing/iotest.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cdelab/curator/db"
)

// TestDBContainer wraps a PostgreSQL test container with a connection pool.
//
// The container runs the pgvector image and has the curator schema applied
// from the embedded migrations, so tests exercise the same DDL as production.
type TestDBContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL container for a single test.
//
// The returned cleanup function must be called to terminate the container.
// Prefer SetupTestDBForMain in a TestMain when several tests in a package
// need the database; containers take seconds to start.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    tdb, cleanup := testutil.SetupTestDB(t)
//	    defer cleanup()
//	    // Use tdb.Pool for queries
//	}
func SetupTestDB(t *testing.T) (*TestDBContainer, func()) {
	t.Helper()

	tdb, cleanup, err := SetupTestDBForMain()
	if err != nil {
		t.Fatalf("Failed to start test database: %v", err)
	}
	return tdb, cleanup
}

// SetupTestDBForMain is the TestMain variant of SetupTestDB: it reports
// failures as errors instead of calling t.Fatal, so a package can share one
// container across all of its tests.
//
// Example:
//
//	var sharedDB *testutil.TestDBContainer
//
//	func TestMain(m *testing.M) {
//	    var cleanup func()
//	    var err error
//	    sharedDB, cleanup, err = testutil.SetupTestDBForMain()
//	    if err != nil {
//	        log.Fatalf("starting test database: %v", err)
//	    }
//	    code := m.Run()
//	    cleanup()
//	    os.Exit(code)
//	}
func SetupTestDBForMain() (*TestDBContainer, func(), error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("curator_test"),
		postgres.WithUsername("curator_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("starting PostgreSQL container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, nil, fmt.Errorf("getting connection string: %w", err)
	}

	// Apply the embedded migrations, the same path production startup takes.
	if err := db.Migrate(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, nil, fmt.Errorf("migrating test database: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		return nil, nil, fmt.Errorf("pinging test database: %w", err)
	}

	tdb := &TestDBContainer{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(context.Background())
	}

	return tdb, cleanup, nil
}

// CleanTables truncates all curator tables for test isolation.
func CleanTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(),
		`TRUNCATE documents, collections CASCADE`,
	); err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
}
