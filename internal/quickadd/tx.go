package quickadd

import (
	"context"
	"fmt"

	"gitlab.com/storeops/inventory-expense/internal/database"
)

// PGXRunner runs quick add writes in a database transaction. Inside an
// existing pgx.Tx the writes go to a savepoint.
type PGXRunner struct {
	db      database.PGXDB
	writers func(db database.PGXDB) Writers
}

// NewPGXRunner creates a PGXRunner. writers builds the stores for the
// transaction handle it is given.
func NewPGXRunner(db database.PGXDB, writers func(db database.PGXDB) Writers) *PGXRunner {
	return &PGXRunner{db: db, writers: writers}
}

// RunInTx implements TxRunner. When db cannot begin a transaction the writes
// run sequentially on db.
func (r *PGXRunner) RunInTx(ctx context.Context, fn func(Writers) error) error {
	beginner, ok := r.db.(database.TxBeginner)
	if !ok {
		return fn(r.writers(r.db))
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(r.writers(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
