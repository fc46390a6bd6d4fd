package expense

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gitlab.com/storeops/inventory-expense/internal/logger"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

const instrumentationName = "gitlab.com/storeops/inventory-expense/internal/expense"

// Store persists expense records.
type Store interface {
	Create(ctx context.Context, e *models.Expense) error
	Update(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id int64) (*models.Expense, error)
}

// ChangeObserver receives tracked field changes after an update commits.
type ChangeObserver interface {
	RecordChanges(ctx context.Context, expenseID, actor int64, changes []Change) error
}

// Service creates and updates expenses, validating before anything is
// written to the store.
type Service struct {
	store    Store
	observer ChangeObserver
	created  metric.Int64Counter
	updated  metric.Int64Counter
}

// NewService creates a Service. observer may be nil.
func NewService(store Store, observer ChangeObserver) *Service {
	meter := otel.Meter(instrumentationName)
	created, err := meter.Int64Counter("expenses.created",
		metric.WithDescription("Number of expense records created"))
	if err != nil {
		otel.Handle(err)
	}
	updated, err := meter.Int64Counter("expenses.updated",
		metric.WithDescription("Number of expense records updated"))
	if err != nil {
		otel.Handle(err)
	}

	return &Service{
		store:    store,
		observer: observer,
		created:  created,
		updated:  updated,
	}
}

// Create validates in and persists the resulting expense.
func (s *Service) Create(ctx context.Context, in Input) (*models.Expense, error) {
	e, err := New(in)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	if s.created != nil {
		s.created.Add(ctx, 1, metric.WithAttributes(attribute.Bool("needs_review", e.NeedsReview)))
	}

	logger.Log.Info().
		Int64("expense_id", e.ID).
		Str("user", logger.HashUserID(e.CreatedBy)).
		Str("total_with_tax", e.TotalWithTax.StringFixed(2)).
		Str("total_without_tax", e.TotalWithoutTax.StringFixed(2)).
		Bool("needs_review", e.NeedsReview).
		Msg("Expense created")

	return e, nil
}

// Update applies p to the expense with the given id. The stored record is
// only written when the patched record validates.
func (s *Service) Update(ctx context.Context, id int64, p Patch, actor int64) (*models.Expense, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %d: %w", id, err)
	}

	next, changes, err := Apply(current, p)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return current, nil
	}

	if err := s.store.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to update expense %d: %w", id, err)
	}

	if s.updated != nil {
		s.updated.Add(ctx, 1)
	}

	for _, c := range changes {
		event := logger.Log.Info().
			Int64("expense_id", id).
			Str("user", logger.HashUserID(actor)).
			Str("field", c.Field)
		if c.Field == FieldNotes {
			event = event.Str("to", logger.SanitizeDescription(next.Notes))
		} else {
			event = event.Str("from", c.From).Str("to", c.To)
		}
		event.Msg("Expense field changed")
	}

	if s.observer != nil {
		if err := s.observer.RecordChanges(ctx, id, actor, changes); err != nil {
			logger.Log.Warn().Err(err).Int64("expense_id", id).Msg("Failed to record expense changes")
		}
	}

	return next, nil
}

// Get returns the expense with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %d: %w", id, err)
	}
	return e, nil
}

// AttachReceipt links a stored receipt attachment to the expense.
func (s *Service) AttachReceipt(ctx context.Context, e *models.Expense, attachmentID int64) error {
	e.ReceiptAttachmentID = &attachmentID
	if err := s.store.Update(ctx, e); err != nil {
		return fmt.Errorf("failed to attach receipt to expense %d: %w", e.ID, err)
	}
	return nil
}
