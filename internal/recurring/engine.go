// Package recurring decides when recurring templates are due and turns them
// into transactions. Every function takes the reference date explicitly and
// performs no I/O.
package recurring

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/model"
)

// Result is the outcome of ProcessDue.
type Result struct {
	// Materialized holds one transaction per template that was due.
	Materialized []model.Transaction
	// Updated is the full template collection after processing, in input order.
	Updated []model.RecurringTemplate
	// Deactivated lists the IDs of templates retired because their end date passed.
	Deactivated []string
}

// Occurrence is a projected future materialization of a template.
type Occurrence struct {
	TemplateID  string          `json:"templateId"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

// IsDue reports whether t should materialize on today. Inactive templates and
// templates whose end date lies before today are never due.
func IsDue(t model.RecurringTemplate, today time.Time) bool {
	if !t.IsActive {
		return false
	}
	day := model.DateOnly(today)
	if expired(t, day) {
		return false
	}
	return !day.Before(dueDate(t))
}

// NextDueDate advances from the last processing date, or the start date when
// the template has never run, by one period of its frequency.
func NextDueDate(t model.RecurringTemplate) time.Time {
	base := t.StartDate
	if t.LastProcessed != nil {
		base = *t.LastProcessed
	}
	return advance(model.DateOnly(base), t.Frequency)
}

// Materialize produces the transaction t yields on date.
func Materialize(t model.RecurringTemplate, date time.Time) model.Transaction {
	date = model.DateOnly(date)
	return model.Transaction{
		ID:          id.MaterializedID(t.ID, date),
		Date:        date,
		Description: t.Template.Description,
		Amount:      t.Template.Amount,
		Category:    t.Template.Category,
		UserName:    t.Template.UserName,
	}
}

// ProcessDue materializes every due template for today. Due templates come
// back with LastProcessed set to today and a recomputed NextDueDate. Active
// templates past their end date come back inactive. Everything else passes
// through unchanged. A template that missed several periods materializes
// once.
func ProcessDue(templates []model.RecurringTemplate, today time.Time) Result {
	day := model.DateOnly(today)
	res := Result{Updated: make([]model.RecurringTemplate, 0, len(templates))}

	for _, t := range templates {
		switch {
		case t.IsActive && expired(t, day):
			t.IsActive = false
			res.Deactivated = append(res.Deactivated, t.ID)
		case IsDue(t, day):
			res.Materialized = append(res.Materialized, Materialize(t, day))
			processed := day
			t.LastProcessed = &processed
			next := NextDueDate(t)
			t.NextDueDate = &next
		}
		res.Updated = append(res.Updated, t)
	}
	return res
}

// Upcoming projects the materializations of active templates between from and
// until, both inclusive, sorted by date. Each step assumes the previous
// occurrence was processed on its due date.
func Upcoming(templates []model.RecurringTemplate, from, until time.Time) []Occurrence {
	from, until = model.DateOnly(from), model.DateOnly(until)

	var out []Occurrence
	for _, t := range templates {
		if !t.IsActive {
			continue
		}
		for due := dueDate(t); !due.After(until); due = advance(due, t.Frequency) {
			if t.EndDate != nil && due.After(model.DateOnly(*t.EndDate)) {
				break
			}
			if due.Before(from) {
				continue
			}
			out = append(out, Occurrence{
				TemplateID:  t.ID,
				Date:        due,
				Description: t.Template.Description,
				Amount:      t.Template.Amount,
				Category:    t.Template.Category,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// dueDate returns the cached next due date, computing it when absent.
func dueDate(t model.RecurringTemplate) time.Time {
	if t.NextDueDate != nil {
		return model.DateOnly(*t.NextDueDate)
	}
	return NextDueDate(t)
}

func expired(t model.RecurringTemplate, day time.Time) bool {
	return t.EndDate != nil && day.After(model.DateOnly(*t.EndDate))
}

// advance moves d forward by one period. Unknown frequencies advance weekly
// so projections always terminate.
func advance(d time.Time, f model.Frequency) time.Time {
	switch f {
	case model.FrequencyMonthly:
		return addMonths(d, 1)
	case model.FrequencyQuarterly:
		return addMonths(d, 3)
	case model.FrequencyYearly:
		return addMonths(d, 12)
	default:
		return d.AddDate(0, 0, 7)
	}
}

// addMonths adds n calendar months to d, clamping the day to the last day of
// the target month (Jan 31 + 1 month = Feb 29 in a leap year).
func addMonths(d time.Time, n int) time.Time {
	year, month, day := d.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
