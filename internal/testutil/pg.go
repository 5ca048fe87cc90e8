// Package testutil holds helpers for Postgres-backed tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/linkhub/internal/db"
)

// Pool connects to TEST_DATABASE_URL and ensures the schema, or skips the test.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// User inserts a user with an open wallet and returns its id.
func User(t *testing.T, pool *pgxpool.Pool, role string) string {
	t.Helper()
	id := uuid.NewString()
	ctx := context.Background()
	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password, role) VALUES ($1, $2, $3, 'x', $4)`,
		id, "test "+role, id+"@test.local", role)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO wallets (user_id) VALUES ($1)`, id); err != nil {
		t.Fatalf("insert wallet: %v", err)
	}
	return id
}

// Site inserts an active listing owned by ownerID.
func Site(t *testing.T, pool *pgxpool.Pool, ownerID string, priceCents int64) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO sites (id, owner_id, domain, title, offering, price_cents)
		VALUES ($1, $2, $3, 'Test site', 'both', $4)`,
		id, ownerID, id[:8]+".example.com", priceCents)
	if err != nil {
		t.Fatalf("insert site: %v", err)
	}
	return id
}
