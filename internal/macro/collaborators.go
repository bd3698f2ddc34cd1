// file: internal/macro/collaborators.go

package macro

import (
	"context"
	"errors"
	"time"

	"macro-resolver/internal/entity"
)

// ErrCollaborator wraps every failure of the repository, time-series store or
// expression parser. A batch that hits one returns no partial output.
var ErrCollaborator = errors.New("collaborator failure")

// Repository is the read-only entity store. Ids that do not exist, or that the
// caller may not see, are simply absent from the returned maps.
type Repository interface {
	FetchHosts(ctx context.Context, ids []string) (map[string]*entity.Host, error)
	// FetchHostsByName is keyed by technical host name
	FetchHostsByName(ctx context.Context, names []string) (map[string]*entity.Host, error)
	FetchItems(ctx context.Context, ids []string) (map[string]*entity.Item, error)
	FetchItemsByKey(ctx context.Context, keys []entity.HostKey) (map[entity.HostKey]*entity.Item, error)
	FetchFunctions(ctx context.Context, ids []string) (map[string]*entity.Function, error)
	FetchHostMacros(ctx context.Context, hostIDs []string) (map[string][]entity.UserMacro, error)
	// FetchTemplateLinks returns the directly linked template ids in link order
	FetchTemplateLinks(ctx context.Context, hostIDs []string) (map[string][]string, error)
	FetchGlobalMacros(ctx context.Context) ([]entity.UserMacro, error)
	FetchValueMaps(ctx context.Context, ids []string) (map[string]*entity.ValueMap, error)
}

// FunctionSource is the part of the repository the expression parser needs
type FunctionSource interface {
	FetchFunctions(ctx context.Context, ids []string) (map[string]*entity.Function, error)
	FetchItems(ctx context.Context, ids []string) (map[string]*entity.Item, error)
}

// TimeSeries computes one aggregate per item over [from, to]. Items without
// samples in the window are absent from the result.
type TimeSeries interface {
	Aggregate(ctx context.Context, function string, itemIDs []string, from, to time.Time) (map[string]float64, error)
}

// ExpressionParser maps each expression to its function references in order of
// first occurrence.
type ExpressionParser interface {
	MapFunctions(ctx context.Context, src FunctionSource, expressions []string) (map[string][]entity.FunctionRef, error)
}

type ValueFormatter interface {
	FormatValue(raw, units string, valueType int) string
	ApplyValueMap(formatted, raw string, vm *entity.ValueMap) string
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
