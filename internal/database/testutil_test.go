package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestPool_IsShared(t *testing.T) {
	require.Same(t, TestPool(t), TestPool(t))
}

func TestTestTx_RollsBack(t *testing.T) {
	ctx := context.Background()
	var name string

	t.Run("write inside transaction", func(t *testing.T) {
		db := TestTx(t)
		_, err := SeedCompany(ctx, db, "Rollback Check Store", "USD")
		require.NoError(t, err)
	})

	err := TestPool(t).QueryRow(ctx,
		`SELECT COALESCE(MAX(name), '') FROM companies WHERE name = 'Rollback Check Store'`).Scan(&name)
	require.NoError(t, err)
	require.Empty(t, name)
}
