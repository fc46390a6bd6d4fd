//go:build ignore
// +build ignore

// Writes graph.png with a sample spending chart. Run with
// go run generate_graph.go.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/report"
)

func main() {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	sample := []struct {
		name string
		paid string
		day  int
	}{
		{"Costco Business Center", "450.25", 3},
		{"Restaurant Depot", "310.80", 9},
		{"Costco Business Center", "129.99", 17},
		{"Sysco", "275.00", 20},
		{"Walmart", "64.50", 28},
	}

	expenses := make([]models.Expense, 0, len(sample))
	for i, s := range sample {
		paid := decimal.RequireFromString(s.paid)
		expenses = append(expenses, models.Expense{
			ID:              int64(i + 1),
			CompanyID:       1,
			Name:            s.name,
			Date:            from.AddDate(0, 0, s.day-1),
			TotalWithTax:    paid,
			TotalWithoutTax: paid,
			Currency:        models.DefaultCurrency,
		})
	}

	res := report.Aggregate(report.Request{
		CompanyID:   1,
		CompanyName: "Sample Store",
		DateFrom:    from,
		DateTo:      to,
		Type:        report.TypeDetailed,
	}, expenses)

	chartData, err := report.RenderChart(res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Sample spending chart")
}
