// file: internal/timeseries/prometheus.go

package timeseries

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"golang.org/x/oauth2/clientcredentials"

	"macro-resolver/config"
	"macro-resolver/internal/logger"
)

// PrometheusStore computes item aggregates with <fn>_over_time queries. Item
// values are expected in a single metric labelled with the item id.
type PrometheusStore struct {
	api     promv1.API
	metric  string
	label   model.LabelName
	timeout time.Duration
	logger  *logger.Logger
}

// NewPrometheusStore creates a store against the configured Prometheus API.
// With OAuth2 enabled every request carries a client-credentials token.
func NewPrometheusStore(cfg config.TimeSeriesConfig, log *logger.Logger) (*PrometheusStore, error) {
	apiCfg := api.Config{Address: cfg.Address}

	if cfg.OAuth2.Enabled {
		cc := &clientcredentials.Config{
			ClientID:     cfg.OAuth2.ClientID,
			ClientSecret: cfg.OAuth2.ClientSecret,
			TokenURL:     cfg.OAuth2.TokenURL,
			Scopes:       cfg.OAuth2.Scopes,
		}
		apiCfg.RoundTripper = cc.Client(context.Background()).Transport
		log.Info("using OAuth2 client credentials for time-series queries", "tokenUrl", cfg.OAuth2.TokenURL)
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &PrometheusStore{
		api:     promv1.NewAPI(client),
		metric:  cfg.Metric,
		label:   model.LabelName(cfg.ItemLabel),
		timeout: cfg.Timeout,
		logger:  log,
	}, nil
}

// Aggregate runs one instant query for all items at the end of the window
func (s *PrometheusStore) Aggregate(ctx context.Context, function string, itemIDs []string, from, to time.Time) (map[string]float64, error) {
	if len(itemIDs) == 0 {
		return map[string]float64{}, nil
	}
	query, err := s.buildQuery(function, itemIDs, to.Sub(from))
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	value, warnings, err := s.api.Query(ctx, query, to)
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}
	if len(warnings) > 0 {
		s.logger.Warn("prometheus query returned warnings", "query", query, "warnings", []string(warnings))
	}

	vector, ok := value.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected query result type %s", value.Type())
	}

	out := make(map[string]float64, len(vector))
	for _, sample := range vector {
		id := string(sample.Metric[s.label])
		if id == "" {
			continue
		}
		out[id] = float64(sample.Value)
	}
	s.logger.Debug("aggregate query finished", "function", function, "items", len(itemIDs), "series", len(out))
	return out, nil
}

func (s *PrometheusStore) buildQuery(function string, itemIDs []string, window time.Duration) (string, error) {
	switch function {
	case "min", "max", "avg":
	default:
		return "", fmt.Errorf("unsupported aggregate function %q", function)
	}

	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	alternatives := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		alternatives[i] = regexp.QuoteMeta(id)
	}
	matcher := strconv.Quote(strings.Join(alternatives, "|"))

	return fmt.Sprintf("%s_over_time(%s{%s=~%s}[%ds])", function, s.metric, s.label, matcher, seconds), nil
}
