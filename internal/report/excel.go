package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	excelSheet      = "Expense Report"
	excelTitle      = "Inventory Expense Report"
	excelHeaderRow  = 11
	excelFirstLine  = 12
	excelAmountFmt  = "#,##0.00"
	excelHeaderFill = "4472C4"

	// MimeTypeExcel is the content type of RenderExcel output.
	MimeTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	tableHeaders = []string{"Date", "Expense Name", "Subtotal", "Total Paid", "Tax Paid", "Created By"}
	excelWidths  = []float64{12, 40, 15, 15, 15, 20}
)

// RenderExcel writes the report as an xlsx workbook with a summary block
// followed by the expense table.
func RenderExcel(res *Result) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	styles, err := newExcelStyles(f)
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f}
	w.set("A1", excelTitle)
	w.style("A1", "A1", styles.title)
	w.merge("A1", "E1")
	w.set("A2", "Period: "+res.Period())
	w.merge("A2", "E2")
	w.set("A3", "Company: "+res.Request.CompanyName)
	w.merge("A3", "E3")

	w.set("A5", "Summary")
	w.style("A5", "A5", styles.section)
	w.set("A6", "Total Expenses:")
	w.set("B6", res.ExpenseCount)
	w.set("A7", "Total Paid:")
	w.set("B7", res.TotalWithTax.InexactFloat64())
	w.set("A8", "Total Tax:")
	w.set("B8", res.TotalTax.InexactFloat64())
	w.set("A9", "Total Subtotal:")
	w.set("B9", res.TotalWithoutTax.InexactFloat64())
	w.style("B7", "B9", styles.amount)

	if c := res.Converted; c != nil {
		w.set("D6", fmt.Sprintf("Converted (%s @ %s):", c.Currency, c.Rate.String()))
		w.set("D7", c.TotalWithTax.InexactFloat64())
		w.set("D8", c.TotalTax.InexactFloat64())
		w.set("D9", c.TotalWithoutTax.InexactFloat64())
		w.style("D7", "D9", styles.amount)
	}

	if res.Request.Type == TypeDetailed {
		for i, h := range tableHeaders {
			w.set(cell(i, excelHeaderRow), h)
		}
		w.style(cell(0, excelHeaderRow), cell(len(tableHeaders)-1, excelHeaderRow), styles.header)

		for i, e := range res.Lines {
			row := excelFirstLine + i
			w.set(cell(0, row), e.Date.Format("2006-01-02"))
			w.set(cell(1, row), e.Name)
			w.set(cell(2, row), e.TotalWithoutTax.InexactFloat64())
			w.set(cell(3, row), e.TotalWithTax.InexactFloat64())
			w.set(cell(4, row), e.TaxAmount.InexactFloat64())
			w.set(cell(5, row), e.CreatedByName)
			w.style(cell(2, row), cell(4, row), styles.amount)
		}
	}

	for i, width := range excelWidths {
		col := columnName(i)
		if w.err == nil {
			w.err = f.SetColWidth(excelSheet, col, col, width)
		}
	}

	if w.err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type excelStyles struct {
	title, section, header, amount int
}

func newExcelStyles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error
	amountFmt := excelAmountFmt

	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, fmt.Errorf("failed to create title style: %w", err)
	}
	if s.section, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}}); err != nil {
		return s, fmt.Errorf("failed to create section style: %w", err)
	}
	if s.amount, err = f.NewStyle(&excelize.Style{CustomNumFmt: &amountFmt}); err != nil {
		return s, fmt.Errorf("failed to create amount style: %w", err)
	}

	thin := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{excelHeaderFill}, Pattern: 1},
		Border:    thin,
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	return s, nil
}

// sheetWriter keeps the first error so cell writes read as a flat sequence.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) set(ref string, v any) {
	if w.err == nil {
		w.err = w.f.SetCellValue(excelSheet, ref, v)
	}
}

func (w *sheetWriter) style(from, to string, style int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(excelSheet, from, to, style)
	}
}

func (w *sheetWriter) merge(from, to string) {
	if w.err == nil {
		w.err = w.f.MergeCell(excelSheet, from, to)
	}
}

func columnName(col int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return name
}

func cell(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col+1, row)
	return ref
}
