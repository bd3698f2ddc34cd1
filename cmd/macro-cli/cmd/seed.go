// file: cmd/macro-cli/cmd/seed.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"macro-resolver/config"
	"macro-resolver/internal/cli"
	"macro-resolver/internal/logger"
	"macro-resolver/internal/store"
)

const seedTimeout = 2 * time.Minute

func newSeedCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "seed --fixture <fixture.yaml> --config <config.yaml>",
		Short: "Write a fixture into the NATS KV bucket read by macro-server",
		Long: `The seed command connects with the nats and repository sections of the
config and writes every host, item, function, value map and the global macros
of the fixture into the bucket, together with the host name and item key
indexes. Existing keys are overwritten. The bucket must already exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixturePath, _ := cmd.Flags().GetString("fixture")
			configPath, _ := cmd.Flags().GetString("config")
			yes, _ := cmd.Flags().GetBool("yes")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			f, err := store.LoadFixture(fixturePath)
			if err != nil {
				return err
			}

			if !yes {
				p := cli.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				ok, err := p.Confirm(fmt.Sprintf("Write %d hosts and %d items to bucket %q?", len(f.Hosts), len(f.Items), cfg.Repository.Bucket))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			log, err := logger.NewLogger(&cfg.Logging)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
			defer cancel()

			conn, err := store.Connect(ctx, &cfg.NATS, cfg.Repository.Bucket, log, nil)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := store.Seed(ctx, conn.KeyValue(), f)
			if err != nil {
				return fmt.Errorf("seeding stopped after %d keys: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d keys to bucket %q\n", n, cfg.Repository.Bucket)
			return nil
		},
	}
	c.Flags().StringP("fixture", "f", "", "Path to the fixture file (required)")
	c.Flags().StringP("config", "c", "config/macro-resolver.yaml", "Path to the server config file")
	c.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	c.MarkFlagRequired("fixture")
	return c
}
