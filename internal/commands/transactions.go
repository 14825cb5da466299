package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/model"
)

const dateLayout = "2006-01-02"

func newTransactionsCommand(open opener) *cobra.Command {
	var from, to, category, user string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "List stored transactions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseOptionalDate("from", from)
			if err != nil {
				return err
			}
			toDate, err := parseOptionalDate("to", to)
			if err != nil {
				return err
			}

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			all, err := rt.Store.Transactions(cmd.Context())
			if err != nil {
				return err
			}

			txns := []model.Transaction{}
			for _, t := range all {
				if !fromDate.IsZero() && t.Date.Before(fromDate) {
					continue
				}
				if !toDate.IsZero() && t.Date.After(toDate) {
					continue
				}
				if category != "" && !strings.EqualFold(t.Category, category) {
					continue
				}
				if user != "" && t.UserName != user {
					continue
				}
				txns = append(txns, t)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(txns)
			}
			if len(txns) == 0 {
				fmt.Fprintln(out, "No transactions.")
				return nil
			}

			total := decimal.Zero
			rows := make([][]string, 0, len(txns))
			for _, t := range txns {
				total = total.Add(t.Amount)
				rows = append(rows, []string{t.Date.Format(dateLayout), t.Amount.StringFixed(2), t.Category, t.Description, t.UserName})
			}
			fmt.Fprintln(out, renderTable([]string{"Date", "Amount", "Category", "Description", "User"}, rows))
			fmt.Fprintf(out, "%d transactions, net %s\n", len(txns), total.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&user, "user", "", "only this household member")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func parseOptionalDate(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD, got %q", name, v)
	}
	return d, nil
}
