package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/app"
	"github.com/tally-dev/tally/internal/model"
)

func newRecurringCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recurring",
		Aliases: []string{"rec"},
		Short:   "Manage recurring transaction templates",
	}
	cmd.AddCommand(
		newRecurringAddCommand(open),
		newRecurringListCommand(open),
		newRecurringProcessCommand(open),
		newRecurringUpcomingCommand(open),
	)
	return cmd
}

func newRecurringAddCommand(open opener) *cobra.Command {
	var description, amount, category, user, frequency, start, end string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recurring template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.RecurringTemplate{
				Template: model.TransactionTemplate{
					Description: strings.TrimSpace(description),
					Category:    strings.TrimSpace(category),
					UserName:    user,
				},
				Frequency: model.Frequency(strings.ToLower(frequency)),
				IsActive:  true,
			}

			var err error
			if amount != "" {
				if t.Template.Amount, err = decimal.NewFromString(amount); err != nil {
					return fmt.Errorf("--amount %q is not a number", amount)
				}
			}
			if t.StartDate, err = parseOptionalDate("start", start); err != nil {
				return err
			}
			endDate, err := parseOptionalDate("end", end)
			if err != nil {
				return err
			}
			if !endDate.IsZero() {
				t.EndDate = &endDate
			}

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if t.Template.Category == "" && t.Template.Description != "" {
				t.Template.Category = rt.Categories.Categorize(t.Template.Description)
			}

			saved, err := rt.AddTemplate(cmd.Context(), t)
			var verr *app.ValidationError
			if errors.As(err, &verr) {
				for _, p := range verr.Problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
				}
				return errors.New("template not saved")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s %s %s, next due %s\n",
				saved.ID, saved.Template.Description, saved.Template.Amount.StringFixed(2),
				saved.Frequency, saved.NextDueDate.Format(dateLayout))

			if _, err := rt.Commit(cmd.Context(), "recurring: add "+saved.Template.Description); err != nil {
				return fmt.Errorf("committing: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "transaction description")
	cmd.Flags().StringVar(&amount, "amount", "", "signed amount, negative for expenses")
	cmd.Flags().StringVar(&category, "category", "", "category (suggested from the description when empty)")
	cmd.Flags().StringVar(&user, "user", "", "household member")
	cmd.Flags().StringVar(&frequency, "frequency", "", "weekly, monthly, quarterly or yearly")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "optional end date (YYYY-MM-DD)")

	return cmd
}

func newRecurringListCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			templates, err := rt.Store.Templates(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(templates) == 0 {
				fmt.Fprintln(out, "No recurring templates.")
				return nil
			}

			rows := make([][]string, 0, len(templates))
			for _, t := range templates {
				status := "active"
				if !t.IsActive {
					status = "inactive"
				}
				rows = append(rows, []string{
					t.ID, t.Template.Description, t.Template.Amount.StringFixed(2),
					string(t.Frequency), formatDate(t.NextDueDate), status,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Description", "Amount", "Frequency", "Next due", "Status"}, rows))
			return nil
		},
	}
}

func newRecurringProcessCommand(open opener) *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Materialize every template that is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseOptionalDate("today", today)
			if err != nil {
				return err
			}

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if day.IsZero() {
				day = rt.Today()
			}
			res, err := rt.Runner("cli").ProcessAt(cmd.Context(), day)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range res.Materialized {
				fmt.Fprintf(out, "Materialized %s  %s  %s\n", t.Date.Format(dateLayout), t.Amount.StringFixed(2), t.Description)
			}
			for _, id := range res.Deactivated {
				fmt.Fprintf(out, "Deactivated %s (past end date)\n", id)
			}
			if len(res.Materialized) == 0 && len(res.Deactivated) == 0 {
				fmt.Fprintln(out, "Nothing due.")
				return nil
			}

			msg := fmt.Sprintf("recurring: %d materialized on %s", len(res.Materialized), day.Format(dateLayout))
			if _, err := rt.Commit(cmd.Context(), msg); err != nil {
				return fmt.Errorf("committing: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&today, "today", "", "process as of this date (YYYY-MM-DD)")
	return cmd
}

func newRecurringUpcomingCommand(open opener) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Preview occurrences due in the coming days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			occ, err := rt.Upcoming(cmd.Context(), days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(occ) == 0 {
				fmt.Fprintf(out, "Nothing due in the next %d days.\n", days)
				return nil
			}

			rows := make([][]string, 0, len(occ))
			for _, o := range occ {
				rows = append(rows, []string{o.Date.Format(dateLayout), o.Amount.StringFixed(2), o.Category, o.Description})
			}
			fmt.Fprintln(out, renderTable([]string{"Date", "Amount", "Category", "Description"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "days ahead to preview")
	return cmd
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
