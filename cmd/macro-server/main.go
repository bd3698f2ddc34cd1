// file: cmd/macro-server/main.go

package main

import (
	"fmt"
	"log"

	flag "github.com/spf13/pflag"

	"macro-resolver/config"
	"macro-resolver/internal/app"
	"macro-resolver/internal/lifecycle"
	"macro-resolver/internal/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "config/macro-resolver.yaml", "path to config file (YAML or JSON)")
	metricsAddr := flag.String("metrics-addr", "", "override metrics server address")
	httpAddr := flag.String("http-addr", "", "override HTTP API address")
	flag.Parse()

	load := func() (*config.Config, error) {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if *metricsAddr != "" {
			cfg.Metrics.Address = *metricsAddr
		}
		if *httpAddr != "" {
			cfg.HTTP.Address = *httpAddr
		}
		return cfg, nil
	}

	cfg, err := load()
	if err != nil {
		return err
	}

	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	// The config file is re-read on every reload so SIGHUP picks up edits
	createApp := func() (lifecycle.Application, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		return app.NewServerApp(cfg)
	}

	return lifecycle.RunWithReload(createApp, appLogger)
}
