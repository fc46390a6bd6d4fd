// Package exchange looks up currency exchange rates for report conversion.
package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rate is the value of one unit of the source currency in the target
// currency, as published on Date.
type Rate struct {
	From  string
	To    string
	Value decimal.Decimal
	Date  time.Time
}

// Apply converts amount with the rate, rounded to cents.
func (r Rate) Apply(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Value).Round(2)
}

// RateSource returns the latest rate between two currencies.
type RateSource interface {
	Rate(ctx context.Context, fromCurrency, toCurrency string) (Rate, error)
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func identityRate(currency string) Rate {
	return Rate{
		From:  currency,
		To:    currency,
		Value: decimal.NewFromInt(1),
		Date:  time.Now().UTC(),
	}
}
