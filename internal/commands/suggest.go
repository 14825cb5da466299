package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSuggestCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest a category for a transaction description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Fprintln(cmd.OutOrStdout(), rt.Categories.Categorize(strings.Join(args, " ")))
			return nil
		},
	}
}
