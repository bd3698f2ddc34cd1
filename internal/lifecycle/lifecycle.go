// file: internal/lifecycle/lifecycle.go

package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"macro-resolver/internal/logger"
)

// RunWithReload runs the application created by createApp. SIGINT and SIGTERM
// shut it down; SIGHUP closes it and calls createApp again so configuration and
// fixtures are re-read. A createApp failure ends the loop with an error.
func RunWithReload(createApp func() (Application, error), log *logger.Logger) error {
	shutdownSig := make(chan os.Signal, 1)
	reloadSig := make(chan os.Signal, 1)
	signal.Notify(shutdownSig, os.Interrupt, syscall.SIGTERM)
	signal.Notify(reloadSig, syscall.SIGHUP)
	defer signal.Stop(shutdownSig)
	defer signal.Stop(reloadSig)

	return runLoop(createApp, log, shutdownSig, reloadSig)
}

func runLoop(createApp func() (Application, error), log *logger.Logger, shutdownSig, reloadSig <-chan os.Signal) error {
	reloadCount := 0

	for {
		if reloadCount > 0 {
			log.Info("initiating application reload", "reloadCount", reloadCount)
		}

		startTime := time.Now()
		application, err := createApp()
		if err != nil {
			if reloadCount > 0 {
				log.Error("failed to reload application",
					"reloadCount", reloadCount,
					"error", err)
			}
			return fmt.Errorf("failed to create application: %w", err)
		}
		if reloadCount > 0 {
			log.Info("application reload completed",
				"reloadCount", reloadCount,
				"duration", time.Since(startTime))
		}

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- application.Run(ctx)
		}()

		var (
			shouldReload bool
			runErr       error
			exited       bool
		)
		select {
		case sig := <-shutdownSig:
			log.Info("shutdown signal received", "signal", sig)
		case <-reloadSig:
			log.Info("SIGHUP received, reloading")
			shouldReload = true
			reloadCount++
		case runErr = <-errCh:
			exited = true
			if runErr != nil {
				log.Error("application stopped with error",
					"error", runErr,
					"reloadCount", reloadCount)
			}
		}

		cancel()
		if !exited {
			if err := <-errCh; err != nil {
				log.Warn("application run returned error during shutdown", "error", err)
			}
		}

		closeStart := time.Now()
		if err := application.Close(); err != nil {
			log.Error("error during application close",
				"error", err,
				"duration", time.Since(closeStart))
		} else {
			log.Info("application closed", "duration", time.Since(closeStart))
		}

		if !shouldReload {
			log.Info("shutdown complete")
			return runErr
		}
	}
}
