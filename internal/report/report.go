// Package report aggregates expenses over a date range and renders the
// result as Excel, PDF, CSV or a chart.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/storeops/inventory-expense/internal/models"
)

// Type selects how much detail a report carries.
type Type string

// Report types.
const (
	TypeSummary  Type = "summary"
	TypeDetailed Type = "detailed"
)

// Validation messages.
const (
	MsgDateRangeInvalid = "Start date must be before or equal to end date."
	MsgDatesRequired    = "Start date and end date are required."
	MsgTypeInvalid      = "Report type must be summary or detailed."
)

// Action identifiers used by front ends to route report requests.
const (
	ActionReportTemplate = "action_report_inventory_expense"
	ActionWizardViews    = "expense_report_wizard_views"
)

// Request describes a report over [DateFrom, DateTo] inclusive.
type Request struct {
	DateFrom        time.Time
	DateTo          time.Time
	Type            Type
	CompanyID       int64
	CompanyName     string
	CompanyCurrency string
	// Currency requests converted totals when it differs from CompanyCurrency.
	Currency string
}

// Conversion holds the totals expressed in another currency.
type Conversion struct {
	Currency        string
	Rate            decimal.Decimal
	RateDate        time.Time
	TotalWithTax    decimal.Decimal
	TotalTax        decimal.Decimal
	TotalWithoutTax decimal.Decimal
}

// Result is the aggregated report. Lines is only populated for detailed
// reports and is ordered by date descending, then id descending.
type Result struct {
	Request         Request
	ExpenseCount    int
	TotalWithTax    decimal.Decimal
	TotalTax        decimal.Decimal
	TotalWithoutTax decimal.Decimal
	Lines           []models.Expense
	Converted       *Conversion
}

// DefaultRequest returns a detailed report from the first day of now's month
// through now.
func DefaultRequest(now time.Time) Request {
	today := models.Date(now)
	return Request{
		DateFrom: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC),
		DateTo:   today,
		Type:     TypeDetailed,
	}
}

// ClampDateTo returns the end date to use after the start date changed:
// when from moved past to, the end date follows it.
func ClampDateTo(from, to time.Time) time.Time {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from
	}
	return to
}

// ParseType parses a report type, defaulting to detailed when s is empty.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeDetailed:
		return TypeDetailed, nil
	case TypeSummary:
		return TypeSummary, nil
	default:
		return "", models.NewValidationError(MsgTypeInvalid)
	}
}

// Validate checks the request and normalizes its dates and type.
func (r *Request) Validate() error {
	if r.DateFrom.IsZero() || r.DateTo.IsZero() {
		return models.NewValidationError(MsgDatesRequired)
	}
	r.DateFrom = models.Date(r.DateFrom)
	r.DateTo = models.Date(r.DateTo)
	if r.DateFrom.After(r.DateTo) {
		return models.NewValidationError(MsgDateRangeInvalid)
	}
	t, err := ParseType(string(r.Type))
	if err != nil {
		return err
	}
	r.Type = t
	return nil
}

// Aggregate computes the report for req from expenses. Records outside the
// date range or belonging to another company are ignored. It does not
// validate req.
func Aggregate(req Request, expenses []models.Expense) *Result {
	from := models.Date(req.DateFrom)
	to := models.Date(req.DateTo)

	res := &Result{
		Request:         req,
		TotalWithTax:    decimal.Zero,
		TotalTax:        decimal.Zero,
		TotalWithoutTax: decimal.Zero,
	}

	var lines []models.Expense
	for _, e := range expenses {
		if e.CompanyID != req.CompanyID {
			continue
		}
		d := models.Date(e.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		lines = append(lines, e)
		res.TotalWithTax = res.TotalWithTax.Add(e.TotalWithTax)
		res.TotalTax = res.TotalTax.Add(e.TaxAmount)
		res.TotalWithoutTax = res.TotalWithoutTax.Add(e.TotalWithoutTax)
	}
	res.ExpenseCount = len(lines)

	if req.Type == TypeSummary {
		return res
	}

	slices.SortStableFunc(lines, func(a, b models.Expense) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	res.Lines = lines
	return res
}

// Period returns the "YYYY-MM-DD to YYYY-MM-DD" label of the report.
func (r *Result) Period() string {
	return fmt.Sprintf("%s to %s",
		r.Request.DateFrom.Format(models.DateLayout),
		r.Request.DateTo.Format(models.DateLayout))
}

// Filename returns the export file name for the given extension.
func (r *Result) Filename(ext string) string {
	return fmt.Sprintf("expense_report_%s_%s.%s",
		r.Request.DateFrom.Format(models.DateLayout),
		r.Request.DateTo.Format(models.DateLayout),
		ext)
}
