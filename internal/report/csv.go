package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// MimeTypeCSV is the content type of RenderCSV output.
const MimeTypeCSV = "text/csv"

// RenderCSV writes one row per report line. Summary reports produce only the
// header row.
func RenderCSV(res *Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := append([]string{"ID"}, tableHeaders...)
	header = append(header, "Currency", "Needs Review")
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range res.Lines {
		e := &res.Lines[i]
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date.Format("2006-01-02"),
			e.Name,
			e.TotalWithoutTax.StringFixed(2),
			e.TotalWithTax.StringFixed(2),
			e.TaxAmount.StringFixed(2),
			e.CreatedByName,
			e.Currency,
			strconv.FormatBool(e.NeedsReview),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
