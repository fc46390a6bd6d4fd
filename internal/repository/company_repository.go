package repository

import (
	"context"
	"fmt"

	"gitlab.com/storeops/inventory-expense/internal/database"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

// CompanyRepository handles company database operations.
type CompanyRepository struct {
	db database.PGXDB
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(db database.PGXDB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// GetByID retrieves a company by ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	var c models.Company
	err := r.db.QueryRow(ctx, `
		SELECT id, name, currency, created_at FROM companies WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Currency, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", notFound(err))
	}
	return &c, nil
}
