package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL. Tests that
// need real SQL semantics (row locks, unique violations, conditional upserts)
// skip when it is not set.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// testUserID returns a per-test user id so rows from parallel tests never
// collide, and registers cleanup of every table keyed by it.
func testUserID(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	userID := fmt.Sprintf("user_test_%s_%d", t.Name(), time.Now().UnixNano())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, table := range []string{"payments", "user_subscriptions", "quests", "daily_completions", "rivals", "notifications", "device_tokens"} {
			pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", table), userID)
		}
	})

	return userID
}
