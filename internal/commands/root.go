package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/app"
	"github.com/tally-dev/tally/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var repoDir string

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Household finance: statement import and recurring transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "data directory")

	open := func(cmd *cobra.Command) (*app.Runtime, error) {
		absDir, err := filepath.Abs(repoDir)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		return app.Open(absDir, cmd.ErrOrStderr())
	}

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(open),
		newTransactionsCommand(open),
		newRecurringCommand(open),
		newSuggestCommand(open),
		newServeCommand(open),
	)

	return rootCmd
}

// opener opens the runtime for the --repo directory.
type opener func(cmd *cobra.Command) (*app.Runtime, error)
