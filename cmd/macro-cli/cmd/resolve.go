// file: cmd/macro-cli/cmd/resolve.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"macro-resolver/config"
	"macro-resolver/internal/app"
	"macro-resolver/internal/cli"
	"macro-resolver/internal/entity"
	"macro-resolver/internal/macro"
)

func newResolveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "resolve --records <records.yaml> --fixture <fixture.yaml> [--scenario <name>]",
		Short: "Resolve macros in a record file against a fixture",
		Long: `The resolve command loads hosts, items, functions, macros, value maps and
history from the fixture, then expands the macros of the records for one
scenario. Records may be YAML or JSON with triggers, items, graphs or
mapElements lists. Without --scenario the scenario is asked for interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			recordsPath, _ := cmd.Flags().GetString("records")
			fixturePath, _ := cmd.Flags().GetString("fixture")
			scenarioName, _ := cmd.Flags().GetString("scenario")
			marker, _ := cmd.Flags().GetString("marker")
			asJSON, _ := cmd.Flags().GetBool("json")
			noColor, _ := cmd.Flags().GetBool("no-color")

			scenario, err := pickScenario(cmd, scenarioName)
			if err != nil {
				return err
			}

			records, err := loadRecords(recordsPath)
			if err != nil {
				return err
			}

			engine, err := fixtureEngine(fixturePath, marker)
			if err != nil {
				return err
			}

			res, err := engine.ResolveRecords(context.Background(), scenario, records)
			if err != nil {
				return fmt.Errorf("resolution failed: %w", err)
			}

			r := cli.NewRenderer(cmd.OutOrStdout(), engine.Marker(), noColor || asJSON)
			if asJSON {
				return r.JSON(res)
			}
			r.Records(scenario, res)
			return nil
		},
	}
	c.Flags().StringP("records", "r", "", "Path to the records file (required)")
	c.Flags().StringP("fixture", "f", "", "Path to the fixture file (required)")
	c.Flags().StringP("scenario", "s", "", "Scenario name, see the scenarios command")
	c.Flags().String("marker", config.DefaultUnresolvedMarker, "Text substituted for unresolved macros")
	c.Flags().Bool("json", false, "Print the result as JSON")
	c.Flags().Bool("no-color", false, "Disable colored output")
	c.MarkFlagRequired("records")
	c.MarkFlagRequired("fixture")
	return c
}

// pickScenario parses name, or asks for one when name is empty
func pickScenario(cmd *cobra.Command, name string) (macro.Scenario, error) {
	if name != "" {
		return macro.ParseScenario(name)
	}
	scenarios := macro.Scenarios()
	options := make([]string, len(scenarios))
	for i, s := range scenarios {
		options[i] = s.String()
	}
	idx, err := cli.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).Select("Select a scenario:", options)
	if err != nil {
		return 0, fmt.Errorf("no scenario selected: %w", err)
	}
	return scenarios[idx], nil
}

func loadRecords(path string) (entity.Records, error) {
	var records entity.Records
	data, err := os.ReadFile(path)
	if err != nil {
		return records, fmt.Errorf("failed to read records: %w", err)
	}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return records, fmt.Errorf("failed to parse records %s: %w", path, err)
	}
	return records, nil
}

// fixtureEngine builds an engine whose repository and time-series store are
// both backed by the fixture file
func fixtureEngine(fixturePath, marker string) (*macro.Engine, error) {
	cfg := &config.Config{}
	cfg.Repository.Backend = config.BackendFixture
	cfg.Repository.FixturePath = fixturePath
	cfg.TimeSeries.Backend = config.BackendFixture
	cfg.Resolver.UnresolvedMarker = marker
	cfg.Logging = config.LogConfig{Level: "error", Encoding: "console", OutputPath: "stderr"}

	base, err := app.NewAppBuilder(cfg).
		WithLogger().
		WithRepository().
		WithTimeSeries().
		WithEngine().
		Build()
	if err != nil {
		return nil, err
	}
	return base.Engine, nil
}
