// Package databasetest starts a disposable PostgreSQL for integration tests.
package databasetest

import (
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/cbt-admin/internal/platform/database"
)

// New starts a postgres container, applies schema and returns a connected DB.
// It skips the test in short mode.
func New(t *testing.T, schema ...string) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := t.Context()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("cbt"),
		postgres.WithUsername("cbt"),
		postgres.WithPassword("cbt"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	var db *database.DB
	deadline := time.Now().Add(30 * time.Second)
	for {
		db, err = database.New(ctx, url, 5, 1)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx, schema...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
