package recurring

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tally-dev/tally/internal/model"
)

// Validate checks that t carries everything the engine needs and returns one
// human-readable message per problem. An empty result means t is valid.
func Validate(t model.RecurringTemplate) []string {
	var errs []string

	if strings.TrimSpace(t.Template.Description) == "" {
		errs = append(errs, "description is required")
	}

	if t.Template.Amount.IsZero() {
		errs = append(errs, "amount is required and must not be zero")
	} else if !t.Template.Amount.Equal(t.Template.Amount.Round(2)) {
		errs = append(errs, fmt.Sprintf("amount %s has more than 2 decimal places", t.Template.Amount))
	}

	switch {
	case t.Frequency == "":
		errs = append(errs, "frequency is required")
	case !slices.Contains(model.Frequencies, t.Frequency):
		errs = append(errs, fmt.Sprintf("frequency %q must be one of %s", t.Frequency, frequencyList()))
	}

	if t.StartDate.IsZero() {
		errs = append(errs, "start date is required")
	}
	if t.EndDate != nil && !t.StartDate.IsZero() && model.DateOnly(*t.EndDate).Before(model.DateOnly(t.StartDate)) {
		errs = append(errs, fmt.Sprintf("end date %s is before start date %s",
			t.EndDate.Format("2006-01-02"), t.StartDate.Format("2006-01-02")))
	}

	return errs
}

func frequencyList() string {
	names := make([]string, len(model.Frequencies))
	for i, f := range model.Frequencies {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
