// file: cmd/macro-cli/cmd/scenarios.go
package cmd

import (
	"github.com/spf13/cobra"

	"macro-resolver/internal/cli"
	"macro-resolver/internal/macro"
)

func newScenariosCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenarios and the macro families each accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			cli.NewRenderer(cmd.OutOrStdout(), "", noColor).Scenarios(macro.Scenarios())
			return nil
		},
	}
	c.Flags().Bool("no-color", false, "Disable colored output")
	return c
}
