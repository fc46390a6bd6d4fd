// Package models defines the domain entities for the inventory expense logger.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the company currency used when none is configured.
const DefaultCurrency = "USD"

// DateLayout is the calendar date format used for expense dates, report
// periods and extraction results.
const DateLayout = "2006-01-02"

// Attachment owner models.
const (
	ResModelExpense = "inventory.expense"
	ResModelReport  = "expense.report"
)

// SupportedCurrencies lists currency codes accepted for companies and report
// conversion, mapped to their display symbol.
var SupportedCurrencies = map[string]string{
	"SGD": "S$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"MYR": "RM",
	"THB": "฿",
	"IDR": "Rp",
	"PHP": "₱",
	"VND": "₫",
	"KRW": "₩",
	"INR": "₹",
	"AUD": "A$",
	"NZD": "NZ$",
	"HKD": "HK$",
	"TWD": "NT$",
	"CAD": "C$",
}

// Company is the organization that owns expenses.
type Company struct {
	ID        int64
	Name      string
	Currency  string
	CreatedAt time.Time
}

// User is a staff member logging expenses through Telegram.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the name shown in the "Created By" report column.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}

// Expense is one logged inventory purchase.
//
// TaxAmount, TotalAmount and IsZeroValue are derived from TotalWithTax and
// TotalWithoutTax and are recomputed by the expense package on every create
// and update.
type Expense struct {
	ID                  int64
	Name                string
	Date                time.Time
	TotalWithTax        decimal.Decimal
	TotalWithoutTax     decimal.Decimal
	TaxAmount           decimal.Decimal
	TotalAmount         decimal.Decimal
	IsZeroValue         bool
	NeedsReview         bool
	ReceiptAttachmentID *int64
	ReceiptFilename     string
	Notes               string
	Currency            string
	CompanyID           int64
	CreatedBy           int64
	CreatedByName       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Attachment is a binary blob owned by a record, used for receipt images and
// generated report exports.
type Attachment struct {
	ID        int64
	ResModel  string
	ResID     int64
	Name      string
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// ExpenseChange records one tracked field change on an expense.
type ExpenseChange struct {
	ID        int64
	ExpenseID int64
	Field     string
	OldValue  string
	NewValue  string
	ChangedBy int64
	CreatedAt time.Time
}

// Date truncates t to a calendar date at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
