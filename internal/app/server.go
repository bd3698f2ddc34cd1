// file: internal/app/server.go

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"macro-resolver/config"
	"macro-resolver/internal/lifecycle"
	"macro-resolver/internal/logger"
)

const metricsShutdownTimeout = 5 * time.Second

var _ lifecycle.Application = (*ServerApp)(nil)

// ServerApp is the long running resolver: HTTP API, metrics endpoint and
// scheduled jobs
type ServerApp struct {
	config    *config.Config
	logger    *logger.Logger
	base      *BaseApp
	closeOnce sync.Once
	closeErr  error
}

// NewServerApp builds every component for the server from cfg
func NewServerApp(cfg *config.Config) (*ServerApp, error) {
	base, err := NewAppBuilder(cfg).
		WithLogger().
		WithMetrics().
		WithRepository().
		WithTimeSeries().
		WithEngine().
		WithGateway().
		Build()
	if err != nil {
		return nil, err
	}
	return &ServerApp{config: cfg, logger: base.Logger, base: base}, nil
}

// Run starts the servers and blocks until ctx is cancelled. Signal handling
// belongs to lifecycle.RunWithReload.
func (a *ServerApp) Run(ctx context.Context) error {
	a.base.Collector.Start()

	if srv := a.base.MetricsServer; srv != nil {
		go func() {
			a.logger.Info("starting metrics server", "address", srv.Addr, "path", a.config.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if err := a.base.Gateway.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	a.logger.Info("macro resolver running",
		"repository", a.config.Repository.Backend,
		"timeseries", a.config.TimeSeries.Backend,
		"scheduledJobs", a.base.Collector.Jobs(),
		"metricsEnabled", a.config.Metrics.Enabled)

	<-ctx.Done()
	a.logger.Info("shutting down gracefully")
	return nil
}

// Close stops the servers, the scheduler and the repository connection
func (a *ServerApp) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.close()
	})
	return a.closeErr
}

func (a *ServerApp) close() error {
	a.logger.Info("closing application components")
	var errs []error

	ctx, cancel := context.WithTimeout(context.Background(), a.config.HTTP.ShutdownGracePeriod)
	defer cancel()
	if err := a.base.Gateway.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop HTTP API: %w", err))
	}

	if srv := a.base.MetricsServer; srv != nil {
		mctx, mcancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer mcancel()
		if err := srv.Shutdown(mctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
		}
	}

	if err := a.base.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync completed", "error", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %w", errors.Join(errs...))
	}
	return nil
}
