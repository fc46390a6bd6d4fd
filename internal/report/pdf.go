package report

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
)

// MimeTypePDF is the content type of RenderPDF output.
const MimeTypePDF = "application/pdf"

var pdfWidths = []float64{24, 62, 24, 24, 22, 34}

// RenderPDF writes the report as a single-section A4 document with the same
// content as the workbook.
func RenderPDF(res *Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(excelTitle, false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, excelTitle)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, "Period: "+res.Period())
	pdf.Ln(6)
	pdf.Cell(0, 7, tr("Company: "+res.Request.CompanyName))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	summary := [][2]string{
		{"Total Expenses:", fmt.Sprintf("%d", res.ExpenseCount)},
		{"Total Paid:", res.TotalWithTax.StringFixed(2)},
		{"Total Tax:", res.TotalTax.StringFixed(2)},
		{"Total Subtotal:", res.TotalWithoutTax.StringFixed(2)},
	}
	for _, row := range summary {
		pdf.Cell(50, 7, row[0])
		pdf.Cell(40, 7, row[1])
		pdf.Ln(7)
	}
	if c := res.Converted; c != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Converted to %s at %s: paid %s, tax %s, subtotal %s",
			c.Currency, c.Rate.String(),
			c.TotalWithTax.StringFixed(2), c.TotalTax.StringFixed(2), c.TotalWithoutTax.StringFixed(2)))
		pdf.Ln(7)
	}
	pdf.Ln(5)

	if res.Request.Type == TypeDetailed {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(0x44, 0x72, 0xC4)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range tableHeaders {
			pdf.CellFormat(pdfWidths[i], 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 0)
		for _, e := range res.Lines {
			cells := []string{
				e.Date.Format("2006-01-02"),
				tr(truncate(e.Name, 38)),
				e.TotalWithoutTax.StringFixed(2),
				e.TotalWithTax.StringFixed(2),
				e.TaxAmount.StringFixed(2),
				tr(truncate(e.CreatedByName, 20)),
			}
			for i, c := range cells {
				align := "L"
				if i >= 2 && i <= 4 {
					align = "R"
				}
				pdf.CellFormat(pdfWidths[i], 6, c, "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
