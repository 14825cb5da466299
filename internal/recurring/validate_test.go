package recurring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tally-dev/tally/internal/model"
)

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(rent()))
}

func TestValidate_Empty(t *testing.T) {
	errs := Validate(model.RecurringTemplate{})
	assert.Equal(t, []string{
		"description is required",
		"amount is required and must not be zero",
		"frequency is required",
		"start date is required",
	}, errs)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.RecurringTemplate)
		want   string
	}{
		{"blank description", func(r *model.RecurringTemplate) { r.Template.Description = "   " }, "description is required"},
		{"sub-cent amount", func(r *model.RecurringTemplate) { r.Template.Amount = decimal.RequireFromString("9.999") }, "amount 9.999 has more than 2 decimal places"},
		{"unknown frequency", func(r *model.RecurringTemplate) { r.Frequency = "daily" }, `frequency "daily" must be one of weekly, monthly, quarterly, yearly`},
		{"end before start", func(r *model.RecurringTemplate) { r.EndDate = ptr(day(2024, 1, 1)) }, "end date 2024-01-01 is before start date 2024-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := rent()
			tt.mutate(&tmpl)
			assert.Equal(t, []string{tt.want}, Validate(tmpl))
		})
	}
}

func TestValidate_EndOnStartIsValid(t *testing.T) {
	tmpl := rent()
	tmpl.EndDate = ptr(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	assert.Empty(t, Validate(tmpl))
}
