package bot

import (
	"fmt"
	"strings"

	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// currencySymbol returns the display symbol for code, or the code itself.
func currencySymbol(code string) string {
	if s, ok := models.SupportedCurrencies[strings.ToUpper(code)]; ok {
		return s
	}
	return code + " "
}

// formatExpense renders the full record for /show and after create or edit.
func formatExpense(e *models.Expense) string {
	sym := currencySymbol(e.Currency)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 <b>#%d %s</b>\n\n", e.ID, escapeHTML(expense.DisplayName(e)))
	fmt.Fprintf(&sb, "💰 Total paid: %s%s\n", sym, e.TotalWithTax.StringFixed(2))
	fmt.Fprintf(&sb, "🧮 Subtotal: %s%s\n", sym, e.TotalWithoutTax.StringFixed(2))
	fmt.Fprintf(&sb, "🏛 Tax paid: %s%s\n", sym, e.TaxAmount.StringFixed(2))
	if e.CreatedByName != "" {
		fmt.Fprintf(&sb, "👤 Created by: %s\n", escapeHTML(e.CreatedByName))
	}
	if e.ReceiptFilename != "" {
		fmt.Fprintf(&sb, "📎 Receipt: %s\n", escapeHTML(e.ReceiptFilename))
	}
	if e.Notes != "" {
		fmt.Fprintf(&sb, "📝 %s\n", escapeHTML(e.Notes))
	}
	if e.NeedsReview {
		sb.WriteString("\n⚠️ <i>Read by AI. Please review the amounts.</i>")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatExpenseLine renders one row of a listing.
func formatExpenseLine(e *models.Expense) string {
	return fmt.Sprintf("<code>#%d</code> %s  %s%s",
		e.ID,
		escapeHTML(expense.DisplayName(e)),
		currencySymbol(e.Currency),
		e.TotalWithTax.StringFixed(2))
}

func formatChanges(changes []expense.Change) string {
	if len(changes) == 0 {
		return "Nothing changed."
	}
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, "• "+escapeHTML(c.String()))
	}
	return strings.Join(lines, "\n")
}

func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}
