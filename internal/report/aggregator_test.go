package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/storeops/inventory-expense/internal/exchange"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

type fakeSource struct {
	expenses []models.Expense
	err      error
	calls    int
}

func (f *fakeSource) ListByDateRange(_ context.Context, _ int64, _, _ time.Time) ([]models.Expense, error) {
	f.calls++
	return f.expenses, f.err
}

type fakeRates struct {
	rate exchange.Rate
	err  error
}

func (f *fakeRates) Rate(_ context.Context, from, to string) (exchange.Rate, error) {
	if f.err != nil {
		return exchange.Rate{}, f.err
	}
	r := f.rate
	r.From, r.To = from, to
	return r, nil
}

func TestAggregator_Generate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("invalid range never queries the store", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{}
		agg := NewAggregator(src, nil)

		req := januaryRequest(TypeDetailed)
		req.DateFrom, req.DateTo = req.DateTo, req.DateFrom
		res, err := agg.Generate(ctx, req)
		require.Nil(t, res)
		require.True(t, models.IsValidationError(err))
		require.Zero(t, src.calls)
	})

	t.Run("aggregates store rows", func(t *testing.T) {
		t.Parallel()
		a, b := scenario(t)
		agg := NewAggregator(&fakeSource{expenses: []models.Expense{a, b}}, nil)

		res, err := agg.Generate(ctx, januaryRequest(TypeDetailed))
		require.NoError(t, err)
		require.Equal(t, "163.50", res.TotalWithTax.StringFixed(2))
		require.Nil(t, res.Converted)
	})

	t.Run("wraps store errors", func(t *testing.T) {
		t.Parallel()
		agg := NewAggregator(&fakeSource{err: errors.New("db down")}, nil)

		_, err := agg.Generate(ctx, januaryRequest(TypeDetailed))
		require.ErrorContains(t, err, "db down")
		require.False(t, models.IsValidationError(err))
	})

	t.Run("converts totals to requested currency", func(t *testing.T) {
		t.Parallel()
		a, b := scenario(t)
		rates := &fakeRates{rate: exchange.Rate{Value: decimal.RequireFromString("1.35")}}
		agg := NewAggregator(&fakeSource{expenses: []models.Expense{a, b}}, rates)

		req := januaryRequest(TypeDetailed)
		req.CompanyCurrency = "USD"
		req.Currency = "sgd"
		res, err := agg.Generate(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, res.Converted)
		require.Equal(t, "SGD", res.Converted.Currency)
		require.Equal(t, "220.73", res.Converted.TotalWithTax.StringFixed(2))
		require.Equal(t, "202.50", res.Converted.TotalWithoutTax.StringFixed(2))
		require.Equal(t, "163.50", res.TotalWithTax.StringFixed(2), "base totals are unchanged")
	})

	t.Run("conversion failure is not fatal", func(t *testing.T) {
		t.Parallel()
		a, b := scenario(t)
		agg := NewAggregator(&fakeSource{expenses: []models.Expense{a, b}}, &fakeRates{err: errors.New("rate api down")})

		req := januaryRequest(TypeDetailed)
		req.CompanyCurrency = "USD"
		req.Currency = "EUR"
		res, err := agg.Generate(ctx, req)
		require.NoError(t, err)
		require.Nil(t, res.Converted)
		require.Equal(t, 2, res.ExpenseCount)
	})
}
