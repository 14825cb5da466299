package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single normalized money movement, either imported from a
// bank statement or materialized from a recurring template.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // negative = expense, positive = income
	Category    string          `json:"category"`
	UserName    string          `json:"userName,omitempty"`
}

// IsExpense reports whether the transaction takes money out.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
