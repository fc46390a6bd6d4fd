package database

import (
	"context"
	"fmt"
	"strings"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			currency TEXT NOT NULL DEFAULT 'USD',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS attachments (
			id BIGSERIAL PRIMARY KEY,
			res_model TEXT NOT NULL,
			res_id BIGINT NOT NULL DEFAULT 0,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_res ON attachments(res_model, res_id)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL CHECK (btrim(name) <> ''),
			date DATE NOT NULL,
			total_with_tax NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (total_with_tax >= 0),
			total_without_tax NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (total_without_tax >= 0),
			tax_amount NUMERIC(14, 2) NOT NULL DEFAULT 0,
			total_amount NUMERIC(14, 2) NOT NULL DEFAULT 0,
			is_zero_value BOOLEAN NOT NULL DEFAULT TRUE,
			needs_review BOOLEAN NOT NULL DEFAULT FALSE,
			receipt_attachment_id BIGINT REFERENCES attachments(id) ON DELETE SET NULL,
			receipt_filename TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT 'USD',
			company_id BIGINT NOT NULL REFERENCES companies(id),
			created_by BIGINT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT expenses_subtotal_le_total CHECK (total_without_tax <= total_with_tax)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_company_date ON expenses(company_id, date DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_created_by ON expenses(created_by)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS expense_changes (
			id BIGSERIAL PRIMARY KEY,
			expense_id BIGINT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			field TEXT NOT NULL,
			old_value TEXT NOT NULL,
			new_value TEXT NOT NULL,
			changed_by BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expense_changes_expense_id ON expense_changes(expense_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// SeedCompany ensures the company named in configuration exists and returns
// its ID. The currency is updated when it changed.
func SeedCompany(ctx context.Context, db PGXDB, name, currency string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("company name is required")
	}

	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO companies (name, currency) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET currency = EXCLUDED.currency
		RETURNING id
	`, name, strings.ToUpper(currency)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to seed company %q: %w", name, err)
	}

	return id, nil
}
