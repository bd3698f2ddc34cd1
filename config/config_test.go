package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATS.URLs)
	assert.Equal(t, 50*time.Millisecond, cfg.NATS.ReconnectWait)
	assert.Equal(t, BackendNATS, cfg.Repository.Backend)
	assert.Equal(t, "monitoring", cfg.Repository.Bucket)
	assert.Equal(t, 5*time.Second, cfg.Repository.LookupTimeout)
	assert.Equal(t, runtime.NumCPU()*4, cfg.Repository.MaxParallel)
	assert.Equal(t, BackendPrometheus, cfg.TimeSeries.Backend)
	assert.Equal(t, "item_value", cfg.TimeSeries.Metric)
	assert.Equal(t, "itemid", cfg.TimeSeries.ItemLabel)
	assert.Equal(t, DefaultUnresolvedMarker, cfg.Resolver.UnresolvedMarker)
	assert.Equal(t, 4, cfg.Resolver.MaxConcurrentQueries)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 5000, cfg.HTTP.MaxRecords)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Encoding)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
repository:
  backend: fixture
  fixturePath: ./testdata/fixture.yaml
timeseries:
  backend: fixture
resolver:
  unresolvedMarker: "<?>"
  maxConcurrentQueries: 8
http:
  address: ":9000"
  maxRecords: 10
logging:
  level: debug
  encoding: console
metrics:
  enabled: true
  updateInterval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendFixture, cfg.Repository.Backend)
	assert.Equal(t, "./testdata/fixture.yaml", cfg.Repository.FixturePath)
	assert.Equal(t, BackendFixture, cfg.TimeSeries.Backend)
	assert.Equal(t, "<?>", cfg.Resolver.UnresolvedMarker)
	assert.Equal(t, 8, cfg.Resolver.MaxConcurrentQueries)
	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, 10, cfg.HTTP.MaxRecords)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Encoding)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Metrics.UpdateInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
`)
	t.Setenv("MACRO_LOGGING_LEVEL", "warn")
	t.Setenv("MACRO_REPOSITORY_BUCKET", "zbx")
	t.Setenv("MACRO_HTTP_ADDRESS", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "zbx", cfg.Repository.Bucket)
	assert.Equal(t, ":7070", cfg.HTTP.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		setDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown repository backend",
			mutate:  func(c *Config) { c.Repository.Backend = "sql" },
			wantErr: "invalid repository backend",
		},
		{
			name:    "fixture repository without path",
			mutate:  func(c *Config) { c.Repository.Backend = BackendFixture },
			wantErr: "fixturePath is required",
		},
		{
			name:    "empty nats url list",
			mutate:  func(c *Config) { c.NATS.URLs = nil },
			wantErr: "at least one NATS server URL",
		},
		{
			name: "multiple nats auth methods",
			mutate: func(c *Config) {
				c.NATS.Token = "t"
				c.NATS.Username = "u"
			},
			wantErr: "only one NATS authentication method",
		},
		{
			name: "tls cert without key",
			mutate: func(c *Config) {
				c.NATS.TLS.Enable = true
				c.NATS.TLS.CertFile = "client.crt"
			},
			wantErr: "key file required",
		},
		{
			name:    "missing creds file",
			mutate:  func(c *Config) { c.NATS.CredsFile = "/nonexistent/user.creds" },
			wantErr: "creds file does not exist",
		},
		{
			name:    "bad flush schedule",
			mutate:  func(c *Config) { c.Repository.LocalCache.FlushSchedule = "every day" },
			wantErr: "invalid local cache flush schedule",
		},
		{
			name:   "good flush schedule",
			mutate: func(c *Config) { c.Repository.LocalCache.FlushSchedule = "*/5 * * * *" },
		},
		{
			name:    "unknown timeseries backend",
			mutate:  func(c *Config) { c.TimeSeries.Backend = "influx" },
			wantErr: "invalid timeseries backend",
		},
		{
			name:    "oauth2 without token url",
			mutate:  func(c *Config) { c.TimeSeries.OAuth2.Enabled = true },
			wantErr: "tokenUrl is required",
		},
		{
			name: "oauth2 without client id",
			mutate: func(c *Config) {
				c.TimeSeries.OAuth2.Enabled = true
				c.TimeSeries.OAuth2.TokenURL = "https://idp/token"
			},
			wantErr: "clientId is required",
		},
		{
			name: "fixture timeseries falls back to repository fixture",
			mutate: func(c *Config) {
				c.Repository.Backend = BackendFixture
				c.Repository.FixturePath = "fixture.yaml"
				c.TimeSeries.Backend = BackendFixture
			},
		},
		{
			name:    "fixture timeseries without any path",
			mutate:  func(c *Config) { c.TimeSeries.Backend = BackendFixture },
			wantErr: "timeseries fixturePath is required",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid log encoding",
			mutate:  func(c *Config) { c.Logging.Encoding = "xml" },
			wantErr: "invalid log encoding",
		},
		{
			name: "metrics interval too short",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.UpdateInterval = 100 * time.Millisecond
			},
			wantErr: "at least 1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
