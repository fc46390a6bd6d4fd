package repository

import (
	"context"
	"fmt"

	"gitlab.com/storeops/inventory-expense/internal/database"
	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

// ChangeLogRepository persists tracked expense field changes.
type ChangeLogRepository struct {
	db database.PGXDB
}

// NewChangeLogRepository creates a new ChangeLogRepository.
func NewChangeLogRepository(db database.PGXDB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

var _ expense.ChangeObserver = (*ChangeLogRepository)(nil)

// RecordChanges stores one row per change.
func (r *ChangeLogRepository) RecordChanges(ctx context.Context, expenseID, actor int64, changes []expense.Change) error {
	for _, c := range changes {
		_, err := r.db.Exec(ctx, `
			INSERT INTO expense_changes (expense_id, field, old_value, new_value, changed_by)
			VALUES ($1, $2, $3, $4, $5)
		`, expenseID, c.Field, c.From, c.To, actor)
		if err != nil {
			return fmt.Errorf("failed to record %s change: %w", c.Field, err)
		}
	}
	return nil
}

// ListByExpense returns the change history of an expense, oldest first.
func (r *ChangeLogRepository) ListByExpense(ctx context.Context, expenseID int64) ([]models.ExpenseChange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, expense_id, field, old_value, new_value, changed_by, created_at
		FROM expense_changes
		WHERE expense_id = $1
		ORDER BY id
	`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense changes: %w", err)
	}
	defer rows.Close()

	var changes []models.ExpenseChange
	for rows.Next() {
		var c models.ExpenseChange
		if err := rows.Scan(&c.ID, &c.ExpenseID, &c.Field, &c.OldValue, &c.NewValue, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense changes: %w", err)
	}
	return changes, nil
}
