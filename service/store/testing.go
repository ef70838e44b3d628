package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewTestPostgresStore connects to the database named by TEST_DATABASE_URL
// and resets the faucet tables. The test is skipped when the variable is not
// set so the suite stays runnable without infrastructure.
func NewTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres store tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("failed to ping test database: %v", err)
	}

	s := NewPostgresStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		t.Fatalf("failed to ensure schema: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE airdrop_grants, faucet_transactions"); err != nil {
		pool.Close()
		t.Fatalf("failed to truncate test tables: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return s
}

// NewTestRedisStore connects to the Redis instance named by TEST_REDIS_ADDR
// and flushes it. Skipped when the variable is not set.
func NewTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis store tests")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr)
	if err != nil {
		t.Fatalf("failed to connect to test redis: %v", err)
	}
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		s.Close()
		t.Fatalf("failed to flush test redis: %v", err)
	}

	t.Cleanup(func() { s.Close() })
	return s
}
