package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/report"
)

// Usage lines shown when a command cannot be parsed.
const (
	usageAdd    = "Usage: <code>/add &lt;paid&gt; &lt;subtotal&gt; &lt;name&gt;</code>\nExample: <code>/add 109.00 100.00 Costco</code>"
	usageEdit   = "Usage: <code>/edit &lt;id&gt; &lt;name|date|paid|subtotal|notes&gt; &lt;value&gt;</code>"
	usageShow   = "Usage: <code>/show &lt;id&gt;</code>"
	usageReport = "Usage: <code>/report [from] [to] [summary|detailed] [xlsx|pdf|csv] [currency]</code>\nDates are YYYY-MM-DD."
)

var errUsage = errors.New("usage")

// extractCommandArgs strips the command word and an optional @botname from
// text.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// parseAmount parses a non-empty amount, accepting a comma as the decimal
// separator and an optional leading "$".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, errUsage
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// parseAddArgs parses "<paid> <subtotal> <name...>". Amount sign checks are
// left to expense validation so the user sees the domain message.
func parseAddArgs(args string) (paid, subtotal decimal.Decimal, name string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return decimal.Zero, decimal.Zero, "", errUsage
	}
	if paid, err = parseAmount(fields[0]); err != nil {
		return decimal.Zero, decimal.Zero, "", err
	}
	if subtotal, err = parseAmount(fields[1]); err != nil {
		return decimal.Zero, decimal.Zero, "", err
	}
	return paid, subtotal, strings.Join(fields[2:], " "), nil
}

// parseEditArgs parses "<id> <field> <value...>" into a patch.
func parseEditArgs(args string) (int64, expense.Patch, error) {
	var p expense.Patch
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, p, errUsage
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, p, errUsage
	}
	value := strings.Join(fields[2:], " ")

	switch strings.ToLower(fields[1]) {
	case "name":
		p.Name = &value
	case "notes", "note":
		p.Notes = &value
	case "date":
		d, err := time.Parse(models.DateLayout, value)
		if err != nil {
			return 0, p, fmt.Errorf("invalid date %q: %w", value, err)
		}
		p.Date = &d
	case "paid", "total":
		amount, err := parseAmount(value)
		if err != nil {
			return 0, p, err
		}
		p.TotalWithTax = &amount
	case "subtotal":
		amount, err := parseAmount(value)
		if err != nil {
			return 0, p, err
		}
		p.TotalWithoutTax = &amount
	default:
		return 0, p, errUsage
	}
	return id, p, nil
}

// parseID parses a positive expense id.
func parseID(args string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}

// reportArgs is a parsed /report or /chart command.
type reportArgs struct {
	req    report.Request
	format report.Format
}

// parseReportArgs reads up to two dates, a report type, a format and a
// conversion currency in any order. Missing dates default to the current
// month to date; a lone start date keeps the default end date unless it is
// later, in which case the end date follows it.
func parseReportArgs(args string, today time.Time) (reportArgs, error) {
	out := reportArgs{req: report.DefaultRequest(today), format: report.FormatExcel}

	var dates []time.Time
	for _, tok := range strings.Fields(args) {
		lower := strings.ToLower(tok)
		if d, err := time.Parse(models.DateLayout, tok); err == nil {
			dates = append(dates, d)
			continue
		}
		if t, err := report.ParseType(lower); err == nil && lower != "" {
			out.req.Type = t
			continue
		}
		if f, err := report.ParseFormat(lower); err == nil {
			out.format = f
			continue
		}
		if _, ok := models.SupportedCurrencies[strings.ToUpper(tok)]; ok {
			out.req.Currency = strings.ToUpper(tok)
			continue
		}
		return out, fmt.Errorf("unrecognized argument %q: %w", tok, errUsage)
	}

	switch len(dates) {
	case 0:
	case 1:
		out.req.DateFrom = dates[0]
		out.req.DateTo = report.ClampDateTo(dates[0], out.req.DateTo)
	case 2:
		out.req.DateFrom, out.req.DateTo = dates[0], dates[1]
	default:
		return out, fmt.Errorf("too many dates: %w", errUsage)
	}
	return out, nil
}
