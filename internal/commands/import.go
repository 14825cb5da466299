package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/app"
)

func newImportCommand(open opener) *cobra.Command {
	var user string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank statements (CSV, XLSX, PDF, TXT)",
		Long: "Import the given statement files, or every statement waiting in import/ " +
			"when no file is named. Pending files move to import/processed/ afterwards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var reports []app.ImportReport
			if len(args) == 0 {
				reports, err = rt.ImportPending(cmd.Context(), user, dryRun)
				if err != nil {
					return err
				}
			} else {
				for _, path := range args {
					abs, err := filepath.Abs(path)
					if err != nil {
						return fmt.Errorf("resolving path: %w", err)
					}
					report, err := rt.ImportFile(cmd.Context(), abs, user, dryRun)
					if err != nil {
						return fmt.Errorf("importing %s: %w", filepath.Base(path), err)
					}
					reports = append(reports, report)
				}
			}

			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "No statements to import.")
				return nil
			}

			total := 0
			for _, r := range reports {
				total += len(r.Transactions)
				fmt.Fprintf(out, "%s (%s): %d new, %d duplicate\n", r.File, r.Format, len(r.Transactions), r.Skipped)
				if dryRun {
					for _, t := range r.Transactions {
						fmt.Fprintf(out, "  %s  %10s  %-14s %s\n", t.Date.Format("2006-01-02"), t.Amount.StringFixed(2), t.Category, t.Description)
					}
				}
			}

			if dryRun {
				fmt.Fprintln(out, "Dry run: nothing stored.")
				return nil
			}
			if total > 0 {
				if _, err := rt.Commit(cmd.Context(), fmt.Sprintf("import: %d transactions from %d statements", total, len(reports))); err != nil {
					return fmt.Errorf("committing: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "household member to tag imported transactions with")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without storing")

	return cmd
}
