// file: cmd/macro-cli/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"

	"macro-resolver/cmd/macro-cli/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "macro-cli",
	Short: "Resolve and inspect monitoring macros offline",
	Long: `macro-cli expands macros in trigger, item, graph and map records against a
fixture file, shows how a string is tokenized, lists the scenarios, and seeds a
NATS KV bucket from a fixture for the macro-server.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	cmd.AddCommands(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
