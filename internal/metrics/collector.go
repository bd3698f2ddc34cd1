// file: internal/metrics/collector.go

package metrics

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// MetricsCollector runs periodic background jobs: system metrics sampling and
// any maintenance job registered with AddJob
type MetricsCollector struct {
	metrics        *Metrics
	updateInterval time.Duration
	scheduler      gocron.Scheduler
	started        bool
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(metrics *Metrics, updateInterval time.Duration) (*MetricsCollector, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	mc := &MetricsCollector{
		metrics:        metrics,
		updateInterval: updateInterval,
		scheduler:      s,
	}

	if metrics != nil {
		_, err = s.NewJob(
			gocron.DurationJob(updateInterval),
			gocron.NewTask(metrics.UpdateSystemMetrics),
			gocron.WithName("system-metrics"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule system metrics job: %w", err)
		}
	}
	return mc, nil
}

// AddJob schedules fn every interval
func (mc *MetricsCollector) AddJob(name string, interval time.Duration, fn func()) error {
	_, err := mc.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	return nil
}

// AddCronJob schedules fn on a standard 5-field cron spec
func (mc *MetricsCollector) AddCronJob(name, spec string, fn func()) error {
	_, err := mc.scheduler.NewJob(
		gocron.CronJob(spec, false),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule cron job %s: %w", name, err)
	}
	return nil
}

// Jobs returns the names of the scheduled jobs
func (mc *MetricsCollector) Jobs() []string {
	jobs := mc.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// Start begins running the scheduled jobs
func (mc *MetricsCollector) Start() {
	if mc.metrics != nil {
		mc.metrics.UpdateSystemMetrics()
	}
	mc.scheduler.Start()
	mc.started = true
}

// Stop gracefully shuts down the scheduler and waits for running jobs.
// Stopping a collector that never started is a no-op.
func (mc *MetricsCollector) Stop() error {
	if !mc.started {
		return nil
	}
	mc.started = false
	return mc.scheduler.Shutdown()
}
