package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/storeops/inventory-expense/internal/database"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

const expenseColumns = `
	e.id, e.name, e.date, e.total_with_tax, e.total_without_tax, e.tax_amount,
	e.total_amount, e.is_zero_value, e.needs_review, e.receipt_attachment_id,
	e.receipt_filename, e.notes, e.currency, e.company_id, e.created_by,
	COALESCE(NULLIF(btrim(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')), ''), u.username, ''),
	e.created_at, e.updated_at`

const expenseFrom = `
	FROM expenses e
	LEFT JOIN users u ON u.id = e.created_by`

// Totals holds the sums over a set of expenses.
type Totals struct {
	Count           int
	TotalWithTax    decimal.Decimal
	TotalTax        decimal.Decimal
	TotalWithoutTax decimal.Decimal
}

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create adds a new expense. Derived fields must already be computed.
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (
			name, date, total_with_tax, total_without_tax, tax_amount, total_amount,
			is_zero_value, needs_review, receipt_attachment_id, receipt_filename,
			notes, currency, company_id, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`, e.Name, e.Date, e.TotalWithTax, e.TotalWithoutTax, e.TaxAmount, e.TotalAmount,
		e.IsZeroValue, e.NeedsReview, e.ReceiptAttachmentID, e.ReceiptFilename,
		e.Notes, currencyOrDefault(e.Currency), e.CompanyID, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	row := r.db.QueryRow(ctx, `SELECT `+expenseColumns+expenseFrom+` WHERE e.id = $1`, id)
	e, err := scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", notFound(err))
	}
	return e, nil
}

// Update writes the editable and derived fields of an existing expense.
func (r *ExpenseRepository) Update(ctx context.Context, e *models.Expense) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE expenses SET
			name = $2,
			date = $3,
			total_with_tax = $4,
			total_without_tax = $5,
			tax_amount = $6,
			total_amount = $7,
			is_zero_value = $8,
			needs_review = $9,
			receipt_attachment_id = $10,
			receipt_filename = $11,
			notes = $12,
			updated_at = NOW()
		WHERE id = $1
	`, e.ID, e.Name, e.Date, e.TotalWithTax, e.TotalWithoutTax, e.TaxAmount, e.TotalAmount,
		e.IsZeroValue, e.NeedsReview, e.ReceiptAttachmentID, e.ReceiptFilename, e.Notes)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update expense %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

// ListByDateRange returns the company's expenses dated within [from, to]
// inclusive, newest first with ties broken by id descending.
func (r *ExpenseRepository) ListByDateRange(
	ctx context.Context,
	companyID int64,
	from, to time.Time,
) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `SELECT `+expenseColumns+expenseFrom+`
		WHERE e.company_id = $1 AND e.date >= $2 AND e.date <= $3
		ORDER BY e.date DESC, e.id DESC
	`, companyID, models.Date(from), models.Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by date range: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// ListNeedsReview returns the company's expenses flagged for review, newest
// first.
func (r *ExpenseRepository) ListNeedsReview(ctx context.Context, companyID int64, limit int) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `SELECT `+expenseColumns+expenseFrom+`
		WHERE e.company_id = $1 AND e.needs_review
		ORDER BY e.date DESC, e.id DESC
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses needing review: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// SumByDateRange returns the count and amount sums of the company's expenses
// dated within [from, to] inclusive.
func (r *ExpenseRepository) SumByDateRange(
	ctx context.Context,
	companyID int64,
	from, to time.Time,
) (Totals, error) {
	var t Totals
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_with_tax), 0),
		       COALESCE(SUM(tax_amount), 0),
		       COALESCE(SUM(total_without_tax), 0)
		FROM expenses
		WHERE company_id = $1 AND date >= $2 AND date <= $3
	`, companyID, models.Date(from), models.Date(to)).Scan(&t.Count, &t.TotalWithTax, &t.TotalTax, &t.TotalWithoutTax)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var e models.Expense
	if err := row.Scan(
		&e.ID, &e.Name, &e.Date, &e.TotalWithTax, &e.TotalWithoutTax, &e.TaxAmount,
		&e.TotalAmount, &e.IsZeroValue, &e.NeedsReview, &e.ReceiptAttachmentID,
		&e.ReceiptFilename, &e.Notes, &e.Currency, &e.CompanyID, &e.CreatedBy,
		&e.CreatedByName, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Date = models.Date(e.Date)
	return &e, nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return models.DefaultCurrency
	}
	return c
}
