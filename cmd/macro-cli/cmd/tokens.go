// file: cmd/macro-cli/cmd/tokens.go
package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"macro-resolver/internal/cli"
	"macro-resolver/internal/macro"
)

func newTokensCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "tokens --scenario <name> <text>",
		Short: "Show the macros a scenario would extract from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioName, _ := cmd.Flags().GetString("scenario")
			asJSON, _ := cmd.Flags().GetBool("json")
			noColor, _ := cmd.Flags().GetBool("no-color")

			scenario, err := macro.ParseScenario(scenarioName)
			if err != nil {
				return err
			}

			tokens := macro.Extract(strings.Join(args, " "), scenario)
			r := cli.NewRenderer(cmd.OutOrStdout(), "", noColor || asJSON)
			if asJSON {
				return r.JSON(tokens)
			}
			r.Tokens(tokens)
			return nil
		},
	}
	c.Flags().StringP("scenario", "s", macro.ScenarioTriggerName.String(), "Scenario name")
	c.Flags().Bool("json", false, "Print the tokens as JSON")
	c.Flags().Bool("no-color", false, "Disable colored output")
	return c
}
