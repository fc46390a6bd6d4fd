package report

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"

	"gitlab.com/storeops/inventory-expense/internal/models"
)

// MimeTypePNG is the content type of RenderChart output.
const MimeTypePNG = "image/png"

const maxChartSlices = 8

// ErrNothingToChart is returned when no line has a non-zero total.
var ErrNothingToChart = models.NewValidationError("No expenses to chart for this period.")

// RenderChart draws a pie chart of total paid per expense name. Names beyond
// the largest eight are grouped as "Other". Needs a detailed result.
func RenderChart(res *Result) ([]byte, error) {
	slicesByName := totalsByName(res.Lines)
	if len(slicesByName) == 0 {
		return nil, ErrNothingToChart
	}

	values := make([]float64, 0, len(slicesByName))
	names := make([]string, 0, len(slicesByName))
	for _, s := range slicesByName {
		names = append(names, s.name)
		values = append(values, s.total.InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("Expenses %s", res.Period()),
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

// ChartFilename returns the file name of the chart for res.
func ChartFilename(res *Result) string {
	return fmt.Sprintf("expense_chart_%s_%s.png",
		res.Request.DateFrom.Format(models.DateLayout),
		res.Request.DateTo.Format(models.DateLayout))
}

type chartSlice struct {
	name  string
	total decimal.Decimal
}

// totalsByName sums total paid per name, largest first, folding the tail
// into "Other". Zero totals are skipped.
func totalsByName(lines []models.Expense) []chartSlice {
	totals := make(map[string]decimal.Decimal)
	for _, e := range lines {
		if e.TotalWithTax.IsZero() {
			continue
		}
		totals[e.Name] = totals[e.Name].Add(e.TotalWithTax)
	}

	out := make([]chartSlice, 0, len(totals))
	for name, total := range totals {
		out = append(out, chartSlice{name: name, total: total})
	}
	slices.SortFunc(out, func(a, b chartSlice) int {
		if c := b.total.Cmp(a.total); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	if len(out) <= maxChartSlices {
		return out
	}
	other := chartSlice{name: "Other", total: decimal.Zero}
	for _, s := range out[maxChartSlices-1:] {
		other.total = other.total.Add(s.total)
	}
	return append(out[:maxChartSlices-1], other)
}
