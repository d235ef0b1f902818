package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PGContainer starts a disposable Postgres container, runs all migrations,
// and returns the *sql.DB plus a cleanup function that terminates the
// container. Requires a working Docker daemon; set PGTEST_CONTAINER=1 to
// opt in, otherwise the test is skipped.
//
// Prefer PGTest when a long-lived database is available (CI sets
// POSTGRES_URL); PGContainer is for local runs without one.
func PGContainer(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	if os.Getenv("PGTEST_CONTAINER") == "" {
		t.Skip("PGTEST_CONTAINER not set, skipping container-backed test")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("nilguard_test"),
		tcpostgres.WithUsername("nilguard"),
		tcpostgres.WithPassword("nilguard"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("pgcontainer: start postgres: %v", err)
	}

	dbURL, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("pgcontainer: connection string: %v", err)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("pgcontainer: open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		_ = ctr.Terminate(ctx)
		t.Fatalf("pgcontainer: connect to database: %v", err)
	}

	migrationsDir := findMigrationsDir(t)
	if err := runMigrations(ctx, db, migrationsDir); err != nil {
		_ = db.Close()
		_ = ctr.Terminate(ctx)
		t.Fatalf("pgcontainer: run migrations: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = ctr.Terminate(ctx)
	}

	return db, cleanup
}
