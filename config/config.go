//file: config/config.go

package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Repository and time-series backends
const (
	BackendNATS       = "nats"
	BackendFixture    = "fixture"
	BackendPrometheus = "prometheus"
)

// DefaultUnresolvedMarker is substituted for every macro that cannot be resolved
const DefaultUnresolvedMarker = "*UNKNOWN*"

type Config struct {
	NATS       NATSConfig       `mapstructure:"nats"`
	Repository RepositoryConfig `mapstructure:"repository"`
	TimeSeries TimeSeriesConfig `mapstructure:"timeseries"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Logging    LogConfig        `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type NATSConfig struct {
	URLs     []string `mapstructure:"urls"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Token    string   `mapstructure:"token"`

	// NKey holds an NKey seed (SU...) used to sign the server nonce
	NKey      string `mapstructure:"nkey"`
	CredsFile string `mapstructure:"credsFile"`

	TLS struct {
		Enable   bool   `mapstructure:"enable"`
		CertFile string `mapstructure:"certFile"`
		KeyFile  string `mapstructure:"keyFile"`
		CAFile   string `mapstructure:"caFile"`
		Insecure bool   `mapstructure:"insecure"`
	} `mapstructure:"tls"`

	ReconnectWait time.Duration `mapstructure:"reconnectWait"`
}

// RepositoryConfig selects where host/item/trigger metadata is read from
type RepositoryConfig struct {
	Backend       string        `mapstructure:"backend"` // nats or fixture
	Bucket        string        `mapstructure:"bucket"`
	FixturePath   string        `mapstructure:"fixturePath"`
	LookupTimeout time.Duration `mapstructure:"lookupTimeout"`
	MaxParallel   int           `mapstructure:"maxParallel"`

	LocalCache struct {
		Enabled       bool          `mapstructure:"enabled"`
		FlushInterval time.Duration `mapstructure:"flushInterval"`
		// FlushSchedule is a standard 5-field cron spec; it takes precedence over FlushInterval
		FlushSchedule string `mapstructure:"flushSchedule"`
	} `mapstructure:"localCache"`
}

// TimeSeriesConfig selects where aggregate values are computed
type TimeSeriesConfig struct {
	Backend     string        `mapstructure:"backend"` // prometheus or fixture
	Address     string        `mapstructure:"address"`
	Metric      string        `mapstructure:"metric"`
	ItemLabel   string        `mapstructure:"itemLabel"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FixturePath string        `mapstructure:"fixturePath"`

	OAuth2 struct {
		Enabled      bool     `mapstructure:"enabled"`
		TokenURL     string   `mapstructure:"tokenUrl"`
		ClientID     string   `mapstructure:"clientId"`
		ClientSecret string   `mapstructure:"clientSecret"`
		Scopes       []string `mapstructure:"scopes"`
	} `mapstructure:"oauth2"`
}

type ResolverConfig struct {
	UnresolvedMarker     string `mapstructure:"unresolvedMarker"`
	MaxConcurrentQueries int    `mapstructure:"maxConcurrentQueries"`
}

type HTTPConfig struct {
	Address             string        `mapstructure:"address"`
	ReadTimeout         time.Duration `mapstructure:"readTimeout"`
	WriteTimeout        time.Duration `mapstructure:"writeTimeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdownGracePeriod"`
	MaxRecords          int           `mapstructure:"maxRecords"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`      // debug, info, warn, error
	OutputPath string `mapstructure:"outputPath"` // file path or "stdout"
	Encoding   string `mapstructure:"encoding"`   // json or console
}

type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Address        string        `mapstructure:"address"`
	Path           string        `mapstructure:"path"`
	UpdateInterval time.Duration `mapstructure:"updateInterval"`
}

// Load reads the configuration file (YAML or JSON) with MACRO_* environment overrides.
// An empty path yields the defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("MACRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// bindEnv registers the keys that should be overridable from the environment
// even when the config file does not mention them.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"repository.backend",
		"repository.bucket",
		"repository.fixturePath",
		"timeseries.backend",
		"timeseries.address",
		"timeseries.fixturePath",
		"timeseries.oauth2.clientSecret",
		"nats.token",
		"nats.password",
		"nats.nkey",
		"logging.level",
		"http.address",
	} {
		_ = v.BindEnv(key)
	}
}

// setDefaults fills every zero value with its default
func setDefaults(cfg *Config) {
	if len(cfg.NATS.URLs) == 0 {
		cfg.NATS.URLs = []string{"nats://localhost:4222"}
	}
	if cfg.NATS.ReconnectWait == 0 {
		cfg.NATS.ReconnectWait = 50 * time.Millisecond
	}

	if cfg.Repository.Backend == "" {
		cfg.Repository.Backend = BackendNATS
	}
	if cfg.Repository.Bucket == "" {
		cfg.Repository.Bucket = "monitoring"
	}
	if cfg.Repository.LookupTimeout == 0 {
		cfg.Repository.LookupTimeout = 5 * time.Second
	}
	if cfg.Repository.MaxParallel <= 0 {
		cfg.Repository.MaxParallel = runtime.NumCPU() * 4
	}
	if cfg.Repository.LocalCache.FlushInterval == 0 {
		cfg.Repository.LocalCache.FlushInterval = 5 * time.Minute
	}

	if cfg.TimeSeries.Backend == "" {
		cfg.TimeSeries.Backend = BackendPrometheus
	}
	if cfg.TimeSeries.Address == "" {
		cfg.TimeSeries.Address = "http://localhost:9090"
	}
	if cfg.TimeSeries.Metric == "" {
		cfg.TimeSeries.Metric = "item_value"
	}
	if cfg.TimeSeries.ItemLabel == "" {
		cfg.TimeSeries.ItemLabel = "itemid"
	}
	if cfg.TimeSeries.Timeout == 0 {
		cfg.TimeSeries.Timeout = 10 * time.Second
	}

	if cfg.Resolver.UnresolvedMarker == "" {
		cfg.Resolver.UnresolvedMarker = DefaultUnresolvedMarker
	}
	if cfg.Resolver.MaxConcurrentQueries <= 0 {
		cfg.Resolver.MaxConcurrentQueries = 4
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownGracePeriod == 0 {
		cfg.HTTP.ShutdownGracePeriod = 10 * time.Second
	}
	if cfg.HTTP.MaxRecords <= 0 {
		cfg.HTTP.MaxRecords = 5000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.OutputPath == "" {
		cfg.Logging.OutputPath = "stdout"
	}
	if cfg.Logging.Encoding == "" {
		cfg.Logging.Encoding = "json"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":2112"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.UpdateInterval == 0 {
		cfg.Metrics.UpdateInterval = 15 * time.Second
	}
}

// validate performs validation of all configuration values
func validate(cfg *Config) error {
	switch cfg.Repository.Backend {
	case BackendNATS:
		if len(cfg.NATS.URLs) == 0 {
			return fmt.Errorf("at least one NATS server URL is required")
		}
		if err := validateNATS(&cfg.NATS); err != nil {
			return err
		}
		if cfg.Repository.Bucket == "" {
			return fmt.Errorf("repository bucket name cannot be empty")
		}
		if spec := cfg.Repository.LocalCache.FlushSchedule; spec != "" {
			if _, err := cron.ParseStandard(spec); err != nil {
				return fmt.Errorf("invalid local cache flush schedule %q: %w", spec, err)
			}
		}
	case BackendFixture:
		if cfg.Repository.FixturePath == "" {
			return fmt.Errorf("repository fixturePath is required for the fixture backend")
		}
	default:
		return fmt.Errorf("invalid repository backend: %s", cfg.Repository.Backend)
	}

	switch cfg.TimeSeries.Backend {
	case BackendPrometheus:
		if cfg.TimeSeries.Address == "" {
			return fmt.Errorf("timeseries address is required for the prometheus backend")
		}
		if cfg.TimeSeries.OAuth2.Enabled {
			if cfg.TimeSeries.OAuth2.TokenURL == "" {
				return fmt.Errorf("timeseries oauth2 tokenUrl is required")
			}
			if cfg.TimeSeries.OAuth2.ClientID == "" {
				return fmt.Errorf("timeseries oauth2 clientId is required")
			}
		}
	case BackendFixture:
		if cfg.TimeSeries.FixturePath == "" && cfg.Repository.FixturePath == "" {
			return fmt.Errorf("timeseries fixturePath is required for the fixture backend")
		}
	default:
		return fmt.Errorf("invalid timeseries backend: %s", cfg.TimeSeries.Backend)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	switch cfg.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding: %s", cfg.Logging.Encoding)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.UpdateInterval < time.Second {
		return fmt.Errorf("metrics update interval must be at least 1s")
	}

	return nil
}

func validateNATS(cfg *NATSConfig) error {
	authCount := 0
	for _, set := range []bool{cfg.Username != "", cfg.Token != "", cfg.NKey != "", cfg.CredsFile != ""} {
		if set {
			authCount++
		}
	}
	if authCount > 1 {
		return fmt.Errorf("only one NATS authentication method should be specified")
	}

	if cfg.TLS.Enable {
		if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile == "" {
			return fmt.Errorf("NATS TLS key file required when cert file provided")
		}
		if cfg.TLS.KeyFile != "" && cfg.TLS.CertFile == "" {
			return fmt.Errorf("NATS TLS cert file required when key file provided")
		}
	}

	if cfg.CredsFile != "" {
		if _, err := os.Stat(cfg.CredsFile); os.IsNotExist(err) {
			return fmt.Errorf("NATS creds file does not exist: %s", cfg.CredsFile)
		}
	}
	return nil
}
