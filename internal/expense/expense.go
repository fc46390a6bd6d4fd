// Package expense implements the expense record rules: normalization,
// validation, derived amounts and change tracking.
package expense

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

// Validation messages.
const (
	MsgNameRequired         = "Expense name is required."
	MsgDateRequired         = "Expense date is required."
	MsgTotalNegative        = "Total paid cannot be negative."
	MsgSubtotalNegative     = "Subtotal cannot be negative."
	MsgSubtotalExceedsTotal = "Subtotal cannot exceed total paid."
	MsgAmountTooLarge       = "Amounts cannot exceed 999,999,999,999.99."
)

// Tracked fields reported in change events.
const (
	FieldName     = "name"
	FieldDate     = "date"
	FieldTotal    = "total_with_tax"
	FieldSubtotal = "total_without_tax"
	FieldTax      = "tax_amount"
	FieldNotes    = "notes"
)

const (
	// AmountDecimals is the scale amounts are stored with.
	AmountDecimals = 2
	redactedNotes  = "<notes>"
)

// MaxAmount is the largest amount the expenses table can hold.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// Input holds the caller-supplied fields of a new expense. Nil amounts are
// treated as zero.
type Input struct {
	Name            string
	Date            time.Time
	TotalWithTax    *decimal.Decimal
	TotalWithoutTax *decimal.Decimal
	NeedsReview     bool
	Notes           string
	ReceiptFilename string
	CompanyID       int64
	Currency        string
	CreatedBy       int64
}

// Patch holds the user-editable fields of an existing expense. Nil fields are
// left unchanged.
type Patch struct {
	Name            *string
	Date            *time.Time
	TotalWithTax    *decimal.Decimal
	TotalWithoutTax *decimal.Decimal
	Notes           *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Date == nil && p.TotalWithTax == nil &&
		p.TotalWithoutTax == nil && p.Notes == nil
}

// Change describes one tracked field change, e.g. "total_with_tax changed
// from 10.00 to 12.00".
type Change struct {
	Field string
	From  string
	To    string
}

func (c Change) String() string {
	return fmt.Sprintf("%s changed from %s to %s", c.Field, c.From, c.To)
}

// New builds a validated expense from in. Amounts are rounded to cents before
// validation and derived fields are computed; the result has no ID until it
// is persisted.
func New(in Input) (*models.Expense, error) {
	e := &models.Expense{
		Name:            strings.TrimSpace(in.Name),
		TotalWithTax:    amountOrZero(in.TotalWithTax),
		TotalWithoutTax: amountOrZero(in.TotalWithoutTax),
		NeedsReview:     in.NeedsReview,
		Notes:           in.Notes,
		ReceiptFilename: in.ReceiptFilename,
		CompanyID:       in.CompanyID,
		Currency:        in.Currency,
		CreatedBy:       in.CreatedBy,
	}
	if !in.Date.IsZero() {
		e.Date = models.Date(in.Date)
	}

	if err := Validate(e); err != nil {
		return nil, err
	}
	Recompute(e)
	return e, nil
}

// Apply returns a copy of current with p applied, validated and recomputed,
// along with the tracked field changes. current is never modified.
func Apply(current *models.Expense, p Patch) (*models.Expense, []Change, error) {
	next := *current
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Date != nil {
		next.Date = time.Time{}
		if !p.Date.IsZero() {
			next.Date = models.Date(*p.Date)
		}
	}
	if p.TotalWithTax != nil {
		next.TotalWithTax = RoundAmount(*p.TotalWithTax)
	}
	if p.TotalWithoutTax != nil {
		next.TotalWithoutTax = RoundAmount(*p.TotalWithoutTax)
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}

	if err := Validate(&next); err != nil {
		return nil, nil, err
	}
	Recompute(&next)
	return &next, Diff(current, &next), nil
}

// Validate checks required fields and the amount invariants, returning the
// first violation as a *models.ValidationError.
func Validate(e *models.Expense) error {
	if strings.TrimSpace(e.Name) == "" {
		return models.NewValidationError(MsgNameRequired)
	}
	if e.Date.IsZero() {
		return models.NewValidationError(MsgDateRequired)
	}
	return CheckAmounts(e.TotalWithTax, e.TotalWithoutTax)
}

// CheckAmounts validates a paid total and subtotal pair, in the same order
// Validate reports them.
func CheckAmounts(total, subtotal decimal.Decimal) error {
	if total.IsNegative() {
		return models.NewValidationError(MsgTotalNegative)
	}
	if subtotal.IsNegative() {
		return models.NewValidationError(MsgSubtotalNegative)
	}
	if total.GreaterThan(MaxAmount) || subtotal.GreaterThan(MaxAmount) {
		return models.NewValidationError(MsgAmountTooLarge)
	}
	if subtotal.GreaterThan(total) {
		return models.NewValidationError(MsgSubtotalExceedsTotal)
	}
	return nil
}

// RoundAmount rounds d to the stored scale.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountDecimals)
}

// Recompute overwrites the derived fields from TotalWithTax and
// TotalWithoutTax.
func Recompute(e *models.Expense) {
	e.TaxAmount = e.TotalWithTax.Sub(e.TotalWithoutTax)
	e.TotalAmount = e.TotalWithTax
	e.IsZeroValue = e.TotalWithTax.IsZero()
}

// DisplayName returns the label used wherever the expense is referenced.
func DisplayName(e *models.Expense) string {
	return fmt.Sprintf("%s - %s", e.Name, e.Date.Format(models.DateLayout))
}

// Diff lists the tracked fields that differ between before and after.
func Diff(before, after *models.Expense) []Change {
	var changes []Change
	if before.Name != after.Name {
		changes = append(changes, Change{Field: FieldName, From: before.Name, To: after.Name})
	}
	if !before.Date.Equal(after.Date) {
		changes = append(changes, Change{
			Field: FieldDate,
			From:  formatDate(before.Date),
			To:    formatDate(after.Date),
		})
	}
	changes = appendAmountChange(changes, FieldTotal, before.TotalWithTax, after.TotalWithTax)
	changes = appendAmountChange(changes, FieldSubtotal, before.TotalWithoutTax, after.TotalWithoutTax)
	changes = appendAmountChange(changes, FieldTax, before.TaxAmount, after.TaxAmount)
	if before.Notes != after.Notes {
		// Notes are free text; only record that they changed.
		changes = append(changes, Change{
			Field: FieldNotes,
			From:  redactedNotes,
			To:    redactedNotes,
		})
	}
	return changes
}

func appendAmountChange(changes []Change, field string, before, after decimal.Decimal) []Change {
	if before.Equal(after) {
		return changes
	}
	return append(changes, Change{
		Field: field,
		From:  before.StringFixed(AmountDecimals),
		To:    after.StringFixed(AmountDecimals),
	})
}

func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return RoundAmount(*d)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}
