// Package quickadd creates expenses from uploaded receipt files, optionally
// reading the amounts with the receipt extractor.
package quickadd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/logger"
	"gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/receipt"
	"gitlab.com/storeops/inventory-expense/internal/repository"
)

// User-facing messages.
const (
	MsgUploadRequired   = "Please upload a receipt file."
	MsgExtractionFailed = "AI extraction failed. Created expense with generic name. Please review and update manually."
	MsgAmountsDiscarded = "The amounts read from the receipt were inconsistent and were not applied. Please review and update manually."
	MsgExtractorMissing = "AI receipt extraction is not configured. Please contact your system administrator."
)

const (
	genericNamePrefix  = "Quick Add - "
	defaultReceiptName = "receipt.jpg"
)

// Upload is a receipt file sent by the user.
type Upload struct {
	Filename string
	Data     []byte
	MimeType string
}

// Owner identifies who the new expense belongs to.
type Owner struct {
	UserID    int64
	CompanyID int64
	Currency  string
}

// ExpenseService creates expenses and links their receipts.
type ExpenseService interface {
	Create(ctx context.Context, in expense.Input) (*models.Expense, error)
	AttachReceipt(ctx context.Context, e *models.Expense, attachmentID int64) error
}

// AttachmentStore persists receipt files.
type AttachmentStore interface {
	Create(ctx context.Context, a *models.Attachment) error
	SetOwner(ctx context.Context, id int64, resModel string, resID int64) error
}

// ReceiptExtractor reads receipt fields from an image.
type ReceiptExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string, mc receipt.ModelConfig) *receipt.Result
}

// Writers are the stores a quick add writes through.
type Writers struct {
	Expenses    ExpenseService
	Attachments AttachmentStore
}

// TxRunner runs fn with writers bound to one transaction. An error from fn
// discards every write fn made.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Writers) error) error
}

// directRunner writes straight through, for stores with no transactions.
type directRunner struct {
	writers Writers
}

func (r directRunner) RunInTx(_ context.Context, fn func(Writers) error) error {
	return fn(r.writers)
}

// SettingsStore provides the administrator model override.
type SettingsStore interface {
	GetOr(ctx context.Context, key, fallback string) (string, error)
}

// Service implements the manual and AI quick add actions.
type Service struct {
	tx           TxRunner
	extractor    ReceiptExtractor
	extractorErr error
	settings     SettingsStore
	defaultModel string
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor enables QuickAddAI.
func WithExtractor(x ReceiptExtractor) Option {
	return func(s *Service) { s.extractor = x }
}

// WithoutExtractor records why extraction is unavailable. QuickAddAI
// returns err, which should be a *models.ConfigurationError.
func WithoutExtractor(err error) Option {
	return func(s *Service) { s.extractorErr = err }
}

// WithTx runs the writes of each quick add through r.
func WithTx(r TxRunner) Option {
	return func(s *Service) { s.tx = r }
}

// WithModel sets the model used when no administrator override is stored.
// settings may be nil.
func WithModel(settings SettingsStore, defaultModel string) Option {
	return func(s *Service) {
		s.settings = settings
		s.defaultModel = defaultModel
	}
}

// WithClock overrides the clock used for today's date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. Without WithTx, writes go directly to
// expenses and attachments.
func NewService(expenses ExpenseService, attachments AttachmentStore, opts ...Option) *Service {
	s := &Service{
		tx:  directRunner{writers: Writers{Expenses: expenses, Attachments: attachments}},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasExtractor reports whether QuickAddAI is available.
func (s *Service) HasExtractor() bool {
	return s.extractor != nil
}

// QuickAdd creates a zero-amount expense named after today's date with the
// upload attached. The record is not flagged for review.
func (s *Service) QuickAdd(ctx context.Context, up Upload, owner Owner) (*models.ActionOutcome, error) {
	if len(up.Data) == 0 {
		return models.OutcomeFromError(models.NewValidationError(MsgUploadRequired))
	}

	today := s.today()
	return s.create(ctx, up, owner, expense.Input{
		Name: genericName(today),
		Date: today,
	}, "")
}

// QuickAddAI extracts the receipt fields and creates an expense flagged for
// review. When extraction yields nothing, a generic zero-amount record is
// created instead and the outcome carries an advisory.
func (s *Service) QuickAddAI(ctx context.Context, up Upload, owner Owner) (*models.ActionOutcome, error) {
	if s.extractor == nil {
		if s.extractorErr != nil {
			return nil, s.extractorErr
		}
		return nil, models.NewConfigurationError(MsgExtractorMissing)
	}
	if len(up.Data) == 0 {
		return models.OutcomeFromError(models.NewValidationError(MsgUploadRequired))
	}

	res := s.extractor.Extract(ctx, up.Data, receipt.MimeType(up.Filename), receipt.ModelConfig{
		Model:  s.model(ctx),
		Prompt: receipt.DefaultExtractionPrompt,
	})

	today := s.today()
	if res == nil {
		return s.create(ctx, up, owner, expense.Input{
			Name: genericName(today),
			Date: today,
		}, MsgExtractionFailed)
	}

	in, advisory := inputFromResult(res, today)
	in.NeedsReview = true
	return s.create(ctx, up, owner, in, advisory)
}

func (s *Service) create(ctx context.Context, up Upload, owner Owner, in expense.Input, advisory string) (*models.ActionOutcome, error) {
	name := strings.TrimSpace(up.Filename)
	if name == "" {
		name = defaultReceiptName
	}

	in.ReceiptFilename = name
	in.CompanyID = owner.CompanyID
	in.Currency = owner.Currency
	in.CreatedBy = owner.UserID

	var e *models.Expense
	err := s.tx.RunInTx(ctx, func(w Writers) error {
		att := &models.Attachment{
			ResModel: models.ResModelExpense,
			Name:     name,
			MimeType: attachmentMimeType(up),
			Data:     up.Data,
		}
		if err := w.Attachments.Create(ctx, att); err != nil {
			return fmt.Errorf("failed to store receipt: %w", err)
		}

		created, err := w.Expenses.Create(ctx, in)
		if err != nil {
			return err
		}
		if err := w.Attachments.SetOwner(ctx, att.ID, models.ResModelExpense, created.ID); err != nil {
			return fmt.Errorf("failed to link receipt to expense %d: %w", created.ID, err)
		}
		if err := w.Expenses.AttachReceipt(ctx, created, att.ID); err != nil {
			return err
		}
		e = created
		return nil
	})
	if err != nil {
		return models.OutcomeFromError(err)
	}

	logger.Log.Info().
		Int64("expense_id", e.ID).
		Str("user", logger.HashUserID(owner.UserID)).
		Str("receipt", logger.SanitizeFilename(name)).
		Bool("needs_review", e.NeedsReview).
		Bool("advisory", advisory != "").
		Msg("Quick add expense created")

	return &models.ActionOutcome{
		Kind:      models.ActionRecordCreated,
		ExpenseID: e.ID,
		Message:   advisory,
	}, nil
}

// inputFromResult maps an extraction result onto a new expense. Amounts that
// would break the expense invariants are discarded together.
func inputFromResult(res *receipt.Result, today time.Time) (expense.Input, string) {
	in := expense.Input{
		Name: genericName(today),
		Date: today,
	}
	if res.VendorName != nil && strings.TrimSpace(*res.VendorName) != "" {
		in.Name = strings.TrimSpace(*res.VendorName)
	}
	if res.Date != nil {
		if d, err := time.Parse(models.DateLayout, strings.TrimSpace(*res.Date)); err == nil {
			in.Date = d
		}
	}

	total := decimal.Zero
	if res.Total != nil {
		total = expense.RoundAmount(*res.Total)
	}
	subtotal := decimal.Zero
	if res.Subtotal != nil {
		subtotal = expense.RoundAmount(*res.Subtotal)
	}
	if err := expense.CheckAmounts(total, subtotal); err != nil {
		logger.Log.Warn().
			Str("reason", err.Error()).
			Str("total", total.String()).
			Str("subtotal", subtotal.String()).
			Msg("Discarding inconsistent extracted amounts")
		return in, MsgAmountsDiscarded
	}
	in.TotalWithTax = &total
	in.TotalWithoutTax = &subtotal
	return in, ""
}

func (s *Service) model(ctx context.Context) string {
	if s.settings == nil {
		return s.defaultModel
	}
	m, err := s.settings.GetOr(ctx, repository.SettingOpenAIModel, s.defaultModel)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to read model setting, using default")
		return s.defaultModel
	}
	if strings.TrimSpace(m) == "" {
		return s.defaultModel
	}
	return strings.TrimSpace(m)
}

// attachmentMimeType keeps the type reported by the client for the stored
// file. Extraction always uses the filename mapping.
func attachmentMimeType(up Upload) string {
	if up.MimeType != "" {
		return up.MimeType
	}
	return receipt.MimeType(up.Filename)
}

func (s *Service) today() time.Time {
	return models.Date(s.now())
}

func genericName(today time.Time) string {
	return genericNamePrefix + today.Format(models.DateLayout)
}
