// file: internal/timeseries/fixture.go

package timeseries

import (
	"context"
	"fmt"
	"time"

	"macro-resolver/internal/entity"
)

// FixtureStore aggregates in-memory sample history keyed by item id
type FixtureStore struct {
	history map[string][]entity.Sample
}

func NewFixtureStore(history map[string][]entity.Sample) *FixtureStore {
	if history == nil {
		history = map[string][]entity.Sample{}
	}
	return &FixtureStore{history: history}
}

// Aggregate considers samples with from <= clock <= to
func (s *FixtureStore) Aggregate(_ context.Context, function string, itemIDs []string, from, to time.Time) (map[string]float64, error) {
	reduce, ok := reducers[function]
	if !ok {
		return nil, fmt.Errorf("unsupported aggregate function %q", function)
	}

	out := make(map[string]float64, len(itemIDs))
	for _, id := range itemIDs {
		var values []float64
		for _, sample := range s.history[id] {
			if sample.Clock >= from.Unix() && sample.Clock <= to.Unix() {
				values = append(values, sample.Value)
			}
		}
		if len(values) > 0 {
			out[id] = reduce(values)
		}
	}
	return out, nil
}

var reducers = map[string]func([]float64) float64{
	"min": func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			m = min(m, x)
		}
		return m
	},
	"max": func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			m = max(m, x)
		}
		return m
	},
	"avg": func(v []float64) float64 {
		sum := 0.0
		for _, x := range v {
			sum += x
		}
		return sum / float64(len(v))
	},
}
