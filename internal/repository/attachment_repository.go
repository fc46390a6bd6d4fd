package repository

import (
	"context"
	"fmt"

	"gitlab.com/storeops/inventory-expense/internal/database"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

// AttachmentRepository stores receipt images and generated report files.
type AttachmentRepository struct {
	db database.PGXDB
}

// NewAttachmentRepository creates a new AttachmentRepository.
func NewAttachmentRepository(db database.PGXDB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create stores a new attachment and sets its ID.
func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO attachments (res_model, res_id, name, mime_type, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, a.ResModel, a.ResID, a.Name, a.MimeType, a.Data).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// GetByID retrieves an attachment including its data.
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	var a models.Attachment
	err := r.db.QueryRow(ctx, `
		SELECT id, res_model, res_id, name, mime_type, data, created_at
		FROM attachments WHERE id = $1
	`, id).Scan(&a.ID, &a.ResModel, &a.ResID, &a.Name, &a.MimeType, &a.Data, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", notFound(err))
	}
	return &a, nil
}

// SetOwner points an attachment at the record that owns it. Receipts are
// stored before their expense exists and are linked afterwards.
func (r *AttachmentRepository) SetOwner(ctx context.Context, id int64, resModel string, resID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE attachments SET res_model = $2, res_id = $3 WHERE id = $1
	`, id, resModel, resID)
	if err != nil {
		return fmt.Errorf("failed to set attachment owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set attachment owner %d: %w", id, ErrNotFound)
	}
	return nil
}
