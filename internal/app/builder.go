// file: internal/app/builder.go

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"macro-resolver/config"
	"macro-resolver/internal/expression"
	"macro-resolver/internal/gateway"
	"macro-resolver/internal/logger"
	"macro-resolver/internal/macro"
	"macro-resolver/internal/metrics"
	"macro-resolver/internal/store"
	"macro-resolver/internal/timeseries"
	"macro-resolver/internal/valuefmt"
)

const connectTimeout = 30 * time.Second

// BaseApp holds the initialized components shared by the server and the CLI
type BaseApp struct {
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	Collector     *metrics.MetricsCollector
	MetricsServer *http.Server
	Connection    *store.Connection
	Cache         *store.LocalKVCache
	Fixture       *store.Fixture
	Repository    macro.Repository
	TimeSeries    macro.TimeSeries
	Engine        *macro.Engine
	Gateway       *gateway.Server
}

// Close releases the repository connection and stops background jobs
func (b *BaseApp) Close() error {
	var errs []error
	if b.Collector != nil {
		if err := b.Collector.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop scheduler: %w", err))
		}
	}
	if b.Connection != nil {
		if err := b.Connection.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close NATS connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// AppBuilder constructs the BaseApp components fluently. The first failing
// step is remembered and every later step becomes a no-op.
type AppBuilder struct {
	cfg  *config.Config
	base *BaseApp
	err  error
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg, base: &BaseApp{}}
}

// WithLogger creates the logger from the logging section
func (b *AppBuilder) WithLogger() *AppBuilder {
	if b.err != nil {
		return b
	}
	b.base.Logger, b.err = logger.NewLogger(&b.cfg.Logging)
	if b.err != nil {
		b.err = fmt.Errorf("failed to initialize logger: %w", b.err)
	}
	return b
}

// WithMetrics creates the scheduler and, when enabled, the metrics registry
// and its HTTP server. The scheduler exists either way because it also runs
// the cache flush job.
func (b *AppBuilder) WithMetrics() *AppBuilder {
	if b.err != nil {
		return b
	}

	if b.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m, err := metrics.NewMetrics(reg)
		if err != nil {
			b.err = fmt.Errorf("failed to create metrics service: %w", err)
			return b
		}
		b.base.Metrics = m

		mux := http.NewServeMux()
		mux.Handle(b.cfg.Metrics.Path, m.Handler())
		b.base.MetricsServer = &http.Server{
			Addr:    b.cfg.Metrics.Address,
			Handler: mux,
		}
		b.base.Logger.Info("metrics initialized",
			"address", b.cfg.Metrics.Address,
			"path", b.cfg.Metrics.Path,
			"updateInterval", b.cfg.Metrics.UpdateInterval)
	} else {
		b.base.Logger.Info("metrics disabled")
	}

	b.base.Collector, b.err = metrics.NewMetricsCollector(b.base.Metrics, b.cfg.Metrics.UpdateInterval)
	if b.err != nil {
		b.err = fmt.Errorf("failed to create metrics collector: %w", b.err)
	}
	return b
}

// WithRepository opens the configured repository backend
func (b *AppBuilder) WithRepository() *AppBuilder {
	if b.err != nil {
		return b
	}
	rc := b.cfg.Repository

	switch rc.Backend {
	case config.BackendFixture:
		f, err := store.LoadFixture(rc.FixturePath)
		if err != nil {
			b.err = fmt.Errorf("failed to load repository fixture: %w", err)
			return b
		}
		b.base.Fixture = f
		b.base.Repository = store.NewMemoryRepository(f)
		b.base.Logger.Info("using fixture repository",
			"path", rc.FixturePath,
			"hosts", len(f.Hosts),
			"items", len(f.Items))

	case config.BackendNATS:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		conn, err := store.Connect(ctx, &b.cfg.NATS, rc.Bucket, b.base.Logger, b.base.Metrics)
		if err != nil {
			b.err = fmt.Errorf("failed to connect repository: %w", err)
			return b
		}
		b.base.Connection = conn
		b.base.Cache = store.NewLocalKVCache(b.base.Logger, b.base.Metrics, rc.LocalCache.Enabled)
		b.base.Repository = store.NewKVRepository(conn.KeyValue(), b.base.Cache, b.base.Logger, rc.LookupTimeout, rc.MaxParallel)
		b.err = b.scheduleCacheFlush()

	default:
		b.err = fmt.Errorf("unsupported repository backend: %s", rc.Backend)
	}
	return b
}

func (b *AppBuilder) scheduleCacheFlush() error {
	lc := b.cfg.Repository.LocalCache
	if !lc.Enabled || b.base.Collector == nil {
		return nil
	}
	cache := b.base.Cache
	if lc.FlushSchedule != "" {
		b.base.Logger.Info("scheduling KV cache flush", "schedule", lc.FlushSchedule)
		return b.base.Collector.AddCronJob("kv-cache-flush", lc.FlushSchedule, cache.Flush)
	}
	b.base.Logger.Info("scheduling KV cache flush", "interval", lc.FlushInterval)
	return b.base.Collector.AddJob("kv-cache-flush", lc.FlushInterval, cache.Flush)
}

// WithTimeSeries opens the configured time-series backend
func (b *AppBuilder) WithTimeSeries() *AppBuilder {
	if b.err != nil {
		return b
	}
	tc := b.cfg.TimeSeries

	switch tc.Backend {
	case config.BackendPrometheus:
		s, err := timeseries.NewPrometheusStore(tc, b.base.Logger)
		if err != nil {
			b.err = fmt.Errorf("failed to create prometheus store: %w", err)
			return b
		}
		b.base.TimeSeries = s

	case config.BackendFixture:
		f := b.base.Fixture
		if tc.FixturePath != "" {
			loaded, err := store.LoadFixture(tc.FixturePath)
			if err != nil {
				b.err = fmt.Errorf("failed to load time-series fixture: %w", err)
				return b
			}
			f = loaded
		}
		if f == nil {
			b.err = fmt.Errorf("fixture time-series backend needs a fixture file")
			return b
		}
		b.base.TimeSeries = timeseries.NewFixtureStore(f.History)
		b.base.Logger.Info("using fixture time-series store", "series", len(f.History))

	default:
		b.err = fmt.Errorf("unsupported timeseries backend: %s", tc.Backend)
	}
	return b
}

// WithEngine wires the collaborators into the resolution engine
func (b *AppBuilder) WithEngine() *AppBuilder {
	if b.err != nil {
		return b
	}
	b.base.Engine, b.err = macro.NewEngine(macro.Collaborators{
		Repository: b.base.Repository,
		TimeSeries: b.base.TimeSeries,
		Parser:     expression.NewParser(b.base.Logger),
		Formatter:  valuefmt.New(),
	}, b.cfg.Resolver, b.base.Logger, b.base.Metrics)
	if b.err != nil {
		b.err = fmt.Errorf("failed to create engine: %w", b.err)
	}
	return b
}

// WithGateway creates the HTTP API in front of the engine
func (b *AppBuilder) WithGateway() *AppBuilder {
	if b.err != nil {
		return b
	}
	if b.base.Engine == nil {
		b.err = fmt.Errorf("gateway requires the engine")
		return b
	}
	b.base.Gateway = gateway.NewServer(b.base.Logger, b.base.Metrics, b.base.Engine, b.cfg.HTTP)
	return b
}

// Build finalizes the construction. On failure the partially opened
// components are released.
func (b *AppBuilder) Build() (*BaseApp, error) {
	if b.err != nil {
		if closeErr := b.base.Close(); closeErr != nil && b.base.Logger != nil {
			b.base.Logger.Warn("cleanup after failed build", "error", closeErr)
		}
		return nil, b.err
	}
	return b.base, nil
}
