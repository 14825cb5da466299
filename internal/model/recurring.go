package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring template materializes.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Frequencies lists the supported frequencies in display order.
var Frequencies = []Frequency{FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}

// ParseFrequency normalizes user input into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Frequencies {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// TransactionTemplate is the unsaved part of a transaction that a recurring
// template copies into every materialized instance.
type TransactionTemplate struct {
	Description string          `json:"description" yaml:"description"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Category    string          `json:"category" yaml:"category"`
	UserName    string          `json:"userName,omitempty" yaml:"user_name,omitempty"`
}

// RecurringTemplate is a saved schedule that periodically produces transactions.
type RecurringTemplate struct {
	ID            string              `json:"id" yaml:"id"`
	Template      TransactionTemplate `json:"template" yaml:"template"`
	Frequency     Frequency           `json:"frequency" yaml:"frequency"`
	StartDate     time.Time           `json:"startDate" yaml:"start_date"`
	EndDate       *time.Time          `json:"endDate,omitempty" yaml:"end_date,omitempty"`
	IsActive      bool                `json:"isActive" yaml:"is_active"`
	LastProcessed *time.Time          `json:"lastProcessed,omitempty" yaml:"last_processed,omitempty"`
	NextDueDate   *time.Time          `json:"nextDueDate,omitempty" yaml:"next_due_date,omitempty"`
}
