package database

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

const testDatabaseEnv = "TEST_DATABASE_URL"

var (
	sharedPool     *pgxpool.Pool
	sharedPoolOnce sync.Once
	sharedPoolErr  error
)

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skip(testDatabaseEnv + " not set, skipping integration test")
	}
	return url
}

// TestDB opens a private, unmigrated pool that is closed when the test ends.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := Connect(context.Background(), testDatabaseURL(t))
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// TestPool returns the migrated pool shared by every integration test in the
// binary.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := testDatabaseURL(t)

	sharedPoolOnce.Do(func() {
		ctx := context.Background()
		sharedPool, sharedPoolErr = Connect(ctx, url)
		if sharedPoolErr == nil {
			sharedPoolErr = RunMigrations(ctx, sharedPool)
		}
	})
	if sharedPoolErr != nil {
		t.Fatalf("prepare test database: %v", sharedPoolErr)
	}
	return sharedPool
}

// TestTx begins a transaction on the shared pool and rolls it back on cleanup,
// so companies, expenses and attachments written by one test are never seen
// by another. Parallel tests each get their own transaction.
func TestTx(t *testing.T) PGXDB {
	t.Helper()

	tx, err := TestPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin test transaction: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}
