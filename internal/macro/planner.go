// file: internal/macro/planner.go

package macro

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"macro-resolver/internal/entity"
)

// Source is one string to resolve together with the record it belongs to
type Source struct {
	// Scope identifies the owning record; resolved values never cross scopes
	Scope string
	// ID is the record id, used by {TRIGGER.ID}
	ID         string
	Text       string
	Expression string
	// HostID and InterfaceID bind items and map elements to their host
	HostID      string
	InterfaceID string
	// Key is the item key whose parameters feed $1..$9
	Key string
}

// Result is the resolved form of one Source
type Result struct {
	Scope     string
	Text      string
	Fragments []Fragment
}

type aggregateKey struct {
	function string
	window   time.Duration
}

type aggregateGroup struct {
	key     aggregateKey
	itemIDs []string
	values  map[string]float64
}

// batch holds everything one resolution pass has fetched. It is discarded
// when the pass returns.
type batch struct {
	e       *Engine
	rc      ResolutionContext
	repo    *memoRepository
	sources []Source
	tokens  [][]Token

	functionMaps map[string][]entity.FunctionRef
	hosts        map[string]*entity.Host
	hostsByName  map[string]*entity.Host
	items        map[string]*entity.Item
	itemsByKey   map[entity.HostKey]*entity.Item
	valueMaps    map[string]*entity.ValueMap
	aggregates   map[aggregateKey]map[string]float64
	userMacros   map[string]map[string]string
	ifaceFields  map[string]string
	keyParams    map[int][]string
}

// run resolves sources within one batch. Nested passes share repo so nothing
// is fetched twice.
func (e *Engine) run(ctx context.Context, rc ResolutionContext, repo *memoRepository, sources []Source) ([]Result, error) {
	b := &batch{
		e:       e,
		rc:      rc,
		repo:    repo,
		sources: make([]Source, len(sources)),
		tokens:  make([][]Token, len(sources)),
	}

	// stage A
	total := 0
	for i, src := range sources {
		if src.Scope == "" {
			src.Scope = "#" + strconv.Itoa(i)
		}
		b.sources[i] = src
		b.tokens[i] = Extract(src.Text, rc.Scenario())
		total += len(b.tokens[i])
	}
	rc.Logger().Debug("tokens extracted", "sources", len(sources), "tokens", total)
	if total == 0 {
		return b.render(), nil
	}

	if err := b.resolveKeyReferences(ctx); err != nil {
		return nil, err
	}
	if err := b.stageExpressions(ctx); err != nil {
		return nil, err
	}
	if err := b.stageEntities(ctx); err != nil {
		return nil, err
	}
	if err := b.stageValues(ctx); err != nil {
		return nil, err
	}
	if err := b.resolveInterfaceFields(ctx); err != nil {
		return nil, err
	}
	return b.render(), nil
}

func (b *batch) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.e.maxConcurrent)
	return g, gctx
}

func (b *batch) hasTokens(i int, families ...Family) bool {
	for _, t := range b.tokens[i] {
		for _, f := range families {
			if t.Family == f {
				return true
			}
		}
	}
	return false
}

// resolveKeyReferences expands the item key of every item name that uses $N
// through a nested item-key pass, then splits its parameters
func (b *batch) resolveKeyReferences(ctx context.Context) error {
	b.keyParams = make(map[int][]string)
	var (
		keys  []Source
		index []int
	)
	for i, src := range b.sources {
		if !b.hasTokens(i, FamilyReference) {
			continue
		}
		keys = append(keys, Source{Scope: src.Scope, Text: src.Key, HostID: src.HostID, InterfaceID: src.InterfaceID})
		index = append(index, i)
	}
	if len(keys) == 0 {
		return nil
	}

	resolved, err := b.e.run(ctx, b.rc.Child(ScenarioItemKey), b.repo, keys)
	if err != nil {
		return err
	}
	for n, r := range resolved {
		if _, params, ok := ParseKeyParams(r.Text); ok {
			b.keyParams[index[n]] = params
		}
	}
	return nil
}

// stageExpressions maps trigger expressions and resolves literal host names
func (b *batch) stageExpressions(ctx context.Context) error {
	var (
		expressions []string
		names       []string
	)
	for i, src := range b.sources {
		if len(b.tokens[i]) == 0 {
			continue
		}
		if b.rc.Scenario().positional() && src.Expression != "" {
			expressions = append(expressions, src.Expression)
		}
		for _, t := range b.tokens[i] {
			if t.Family == FamilyItemFunction && !t.HostRef {
				names = append(names, t.Host)
			}
		}
	}

	g, gctx := b.group(ctx)
	if exprs := uniqueStrings(expressions); len(exprs) > 0 {
		g.Go(func() error {
			start := time.Now()
			maps, err := b.e.parser.MapFunctions(gctx, b.repo, exprs)
			b.e.metrics.ObserveCollaboratorDuration("expression", time.Since(start).Seconds())
			if err != nil {
				b.e.metrics.IncCollaboratorRequests("expression", "error")
				if errors.Is(err, ErrCollaborator) {
					return err
				}
				return fmt.Errorf("%w: map expression functions: %w", ErrCollaborator, err)
			}
			b.e.metrics.IncCollaboratorRequests("expression", "success")
			b.functionMaps = maps
			return nil
		})
	}
	if len(names) > 0 {
		g.Go(func() error {
			hosts, err := b.repo.FetchHostsByName(gctx, names)
			b.hostsByName = hosts
			return err
		})
	}
	return g.Wait()
}

func (b *batch) refs(i int) []entity.FunctionRef {
	return b.functionMaps[b.sources[i].Expression]
}

// stageEntities fetches hosts, items by id and items by (host, key)
func (b *batch) stageEntities(ctx context.Context) error {
	var (
		hostIDs []string
		itemIDs []string
		keys    []entity.HostKey
	)
	for i, src := range b.sources {
		if len(b.tokens[i]) == 0 {
			continue
		}
		if b.rc.Scenario().positional() {
			for _, ref := range b.refs(i) {
				hostIDs = append(hostIDs, ref.HostID)
				itemIDs = append(itemIDs, ref.ItemID)
			}
		} else {
			hostIDs = append(hostIDs, src.HostID)
		}
		for _, t := range b.tokens[i] {
			if t.Family != FamilyItemFunction {
				continue
			}
			if hostID := b.itemFunctionHostID(i, t); hostID != "" {
				keys = append(keys, entity.HostKey{HostID: hostID, Key: t.Key})
			}
		}
	}

	g, gctx := b.group(ctx)
	if len(hostIDs) > 0 {
		g.Go(func() error {
			hosts, err := b.repo.FetchHosts(gctx, hostIDs)
			b.hosts = hosts
			return err
		})
	}
	if len(itemIDs) > 0 {
		g.Go(func() error {
			items, err := b.repo.FetchItems(gctx, itemIDs)
			b.items = items
			return err
		})
	}
	if len(keys) > 0 {
		g.Go(func() error {
			items, err := b.repo.FetchItemsByKey(gctx, keys)
			b.itemsByKey = items
			return err
		})
	}
	return g.Wait()
}

// macroHostIDs returns the hosts whose macros apply to source i, in precedence order
func (b *batch) macroHostIDs(i int) []string {
	if b.rc.Scenario().positional() {
		var ids []string
		for _, ref := range b.refs(i) {
			ids = append(ids, ref.HostID)
		}
		return uniqueStrings(ids)
	}
	if b.sources[i].HostID == "" {
		return nil
	}
	return []string{b.sources[i].HostID}
}

// stageValues resolves user macros and fetches value maps and aggregates
func (b *batch) stageValues(ctx context.Context) error {
	var (
		scopes      []MacroScope
		valueMapIDs []string
		groups      []*aggregateGroup
	)
	groupIndex := make(map[aggregateKey]*aggregateGroup)
	seenScope := make(map[string]int)

	for i, src := range b.sources {
		var macros []Token
		for _, t := range b.tokens[i] {
			switch t.Family {
			case FamilyUserMacro:
				macros = append(macros, t)
			case FamilyPositional:
				if t.Name != macroItemLastValue && t.Name != macroItemValue {
					continue
				}
				if ref, ok := positionalRef(b.refs(i), t.Index); ok {
					if item := b.items[ref.ItemID]; item != nil && item.ValueMapID != "" {
						valueMapIDs = append(valueMapIDs, item.ValueMapID)
					}
				}
			case FamilyItemFunction:
				item := b.itemFunctionItem(i, t)
				if item == nil {
					continue
				}
				if t.Function == "last" {
					if item.ValueMapID != "" {
						valueMapIDs = append(valueMapIDs, item.ValueMapID)
					}
					continue
				}
				if !isAggregate(t.Function) || !item.Numeric() {
					continue
				}
				window, ok := ParseWindow(firstParam(t.Params))
				if !ok {
					continue
				}
				key := aggregateKey{function: t.Function, window: window}
				grp := groupIndex[key]
				if grp == nil {
					grp = &aggregateGroup{key: key}
					groupIndex[key] = grp
					groups = append(groups, grp)
				}
				grp.itemIDs = append(grp.itemIDs, item.ID)
			}
		}
		if len(macros) == 0 {
			continue
		}
		if n, ok := seenScope[src.Scope]; ok {
			scopes[n].Macros = append(scopes[n].Macros, macros...)
			continue
		}
		seenScope[src.Scope] = len(scopes)
		scopes = append(scopes, MacroScope{Key: src.Scope, HostIDs: b.macroHostIDs(i), Macros: macros})
	}

	g, gctx := b.group(ctx)
	if len(scopes) > 0 {
		g.Go(func() error {
			values, err := NewUserMacroResolver(b.repo, b.rc.Logger()).Resolve(gctx, scopes)
			b.userMacros = values
			return err
		})
	}
	if len(valueMapIDs) > 0 {
		g.Go(func() error {
			maps, err := b.repo.FetchValueMaps(gctx, valueMapIDs)
			b.valueMaps = maps
			return err
		})
	}
	now := b.rc.Now()
	for _, grp := range groups {
		g.Go(func() error {
			start := time.Now()
			values, err := b.e.series.Aggregate(gctx, grp.key.function, uniqueStrings(grp.itemIDs), now.Add(-grp.key.window), now)
			b.e.metrics.ObserveCollaboratorDuration("timeseries", time.Since(start).Seconds())
			if err != nil {
				b.e.metrics.IncCollaboratorRequests("timeseries", "error")
				return fmt.Errorf("%w: aggregate %s over %s: %w", ErrCollaborator, grp.key.function, grp.key.window, err)
			}
			b.e.metrics.IncCollaboratorRequests("timeseries", "success")
			grp.values = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.aggregates = make(map[aggregateKey]map[string]float64, len(groups))
	for _, grp := range groups {
		b.aggregates[grp.key] = grp.values
	}
	return nil
}

func ifaceFieldKey(hostID, value string) string {
	return hostID + "\x00" + value
}

// resolveInterfaceFields expands user macros inside the interface values this
// batch will print, through a nested pass against the owning host's chain
func (b *batch) resolveInterfaceFields(ctx context.Context) error {
	b.ifaceFields = make(map[string]string)
	var fields []Source
	seen := make(map[string]struct{})
	for i := range b.sources {
		for _, t := range b.tokens[i] {
			if t.Family != FamilyInterface {
				continue
			}
			host, bound := b.scopeInterfaceHost(i, t.Index)
			v, ok := interfaceValue(selectInterface(host, bound), t.Name)
			if !ok || len(Extract(v, ScenarioInterfaceField)) == 0 {
				continue
			}
			key := ifaceFieldKey(host.ID, v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			fields = append(fields, Source{Scope: key, Text: v, HostID: host.ID})
		}
	}
	if len(fields) == 0 {
		return nil
	}

	resolved, err := b.e.run(ctx, b.rc.Child(ScenarioInterfaceField), b.repo, fields)
	if err != nil {
		return err
	}
	for _, r := range resolved {
		b.ifaceFields[r.Scope] = r.Text
	}
	return nil
}
