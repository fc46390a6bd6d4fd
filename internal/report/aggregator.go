package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitlab.com/storeops/inventory-expense/internal/exchange"
	"gitlab.com/storeops/inventory-expense/internal/logger"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

// Source lists a company's expenses dated within [from, to] inclusive.
type Source interface {
	ListByDateRange(ctx context.Context, companyID int64, from, to time.Time) ([]models.Expense, error)
}

// Aggregator builds reports from stored expenses.
type Aggregator struct {
	source Source
	rates  exchange.RateSource
}

// NewAggregator creates an Aggregator. rates may be nil, which disables
// currency conversion.
func NewAggregator(source Source, rates exchange.RateSource) *Aggregator {
	return &Aggregator{source: source, rates: rates}
}

// Generate validates req, selects the matching expenses and aggregates them.
// Validation happens before the store is queried.
func (a *Aggregator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	expenses, err := a.source.ListByDateRange(ctx, req.CompanyID, req.DateFrom, req.DateTo)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses for report: %w", err)
	}

	res := Aggregate(req, expenses)
	a.convert(ctx, res)

	logger.Log.Debug().
		Int64("company_id", req.CompanyID).
		Str("period", res.Period()).
		Str("type", string(req.Type)).
		Int("count", res.ExpenseCount).
		Msg("Report generated")

	return res, nil
}

// convert fills res.Converted when a different currency was requested.
// Failures are logged and the conversion is omitted.
func (a *Aggregator) convert(ctx context.Context, res *Result) {
	target := strings.ToUpper(strings.TrimSpace(res.Request.Currency))
	base := strings.ToUpper(strings.TrimSpace(res.Request.CompanyCurrency))
	if a.rates == nil || target == "" || base == "" || target == base {
		return
	}

	rate, err := a.rates.Rate(ctx, base, target)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("from", base).
			Str("to", target).
			Msg("Failed to convert report totals")
		return
	}

	res.Converted = &Conversion{
		Currency:        target,
		Rate:            rate.Value,
		RateDate:        rate.Date,
		TotalWithTax:    rate.Apply(res.TotalWithTax),
		TotalTax:        rate.Apply(res.TotalTax),
		TotalWithoutTax: rate.Apply(res.TotalWithoutTax),
	}
}
