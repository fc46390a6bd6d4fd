package repository

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/storeops/inventory-expense/internal/database"
)

// SettingOpenAIModel is the administrator override of the extraction model.
const SettingOpenAIModel = "inventory_expense.openai_model"

// SettingsRepository stores administrator key/value settings.
type SettingsRepository struct {
	db database.PGXDB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db database.PGXDB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the value stored under key, or ErrNotFound.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("failed to get setting %q: %w", key, notFound(err))
	}
	return value, nil
}

// GetOr returns the value stored under key, or fallback when it is unset.
func (r *SettingsRepository) GetOr(ctx context.Context, key, fallback string) (string, error) {
	value, err := r.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key. Uses upsert so it is safe to call repeatedly.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}
	return nil
}
