// file: internal/macro/engine.go

package macro

import (
	"context"
	"fmt"
	"time"

	"macro-resolver/config"
	"macro-resolver/internal/entity"
	"macro-resolver/internal/logger"
	"macro-resolver/internal/metrics"
)

// Collaborators are the data providers the engine reads from
type Collaborators struct {
	Repository Repository
	TimeSeries TimeSeries
	Parser     ExpressionParser
	Formatter  ValueFormatter
	// Clock defaults to the system clock
	Clock Clock
}

// Engine resolves macros in batches of display strings
type Engine struct {
	repo          Repository
	series        TimeSeries
	parser        ExpressionParser
	formatter     ValueFormatter
	clock         Clock
	log           *logger.Logger
	metrics       *metrics.Metrics
	marker        string
	maxConcurrent int
}

// NewEngine wires the collaborators. Metrics may be nil.
func NewEngine(c Collaborators, cfg config.ResolverConfig, log *logger.Logger, m *metrics.Metrics) (*Engine, error) {
	if c.Repository == nil {
		return nil, fmt.Errorf("engine requires a repository")
	}
	if c.TimeSeries == nil {
		return nil, fmt.Errorf("engine requires a time-series store")
	}
	if c.Parser == nil {
		return nil, fmt.Errorf("engine requires an expression parser")
	}
	if c.Formatter == nil {
		return nil, fmt.Errorf("engine requires a value formatter")
	}
	if log == nil {
		return nil, fmt.Errorf("engine requires a logger")
	}

	e := &Engine{
		repo:          c.Repository,
		series:        c.TimeSeries,
		parser:        c.Parser,
		formatter:     c.Formatter,
		clock:         c.Clock,
		log:           log,
		metrics:       m,
		marker:        cfg.UnresolvedMarker,
		maxConcurrent: cfg.MaxConcurrentQueries,
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	if e.marker == "" {
		e.marker = config.DefaultUnresolvedMarker
	}
	if e.maxConcurrent <= 0 {
		e.maxConcurrent = 4
	}
	return e, nil
}

// Marker returns the text substituted for unresolved macros
func (e *Engine) Marker() string {
	return e.marker
}

// Resolve runs one batch for the scenario. Either every source is resolved or
// an error is returned; collaborator failures wrap ErrCollaborator.
func (e *Engine) Resolve(ctx context.Context, scenario Scenario, sources []Source) ([]Result, error) {
	if !scenario.valid() || scenario.def().internal {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}

	start := time.Now()
	rc := newResolutionContext(scenario, e.clock.Now(), e.marker, e.log)
	rc.Logger().Debug("resolution batch started", "sources", len(sources))

	results, err := e.run(ctx, rc, newMemoRepository(e.repo, e.metrics), sources)
	e.metrics.ObserveResolutionDuration(scenario.String(), time.Since(start).Seconds())
	if err != nil {
		e.metrics.IncResolutions(scenario.String(), "error")
		rc.Logger().Error("resolution batch failed", "sources", len(sources), "error", err)
		return nil, err
	}

	e.metrics.IncResolutions(scenario.String(), "success")
	rc.Logger().Debug("resolution batch finished", "sources", len(sources), "duration", time.Since(start))
	return results, nil
}

// Tokens extracts the tokens of text without resolving them
func (e *Engine) Tokens(scenario Scenario, text string) []Token {
	return Extract(text, scenario)
}

func triggerSources(triggers []entity.Trigger, field func(*entity.Trigger) string) []Source {
	sources := make([]Source, len(triggers))
	for i := range triggers {
		t := &triggers[i]
		sources[i] = Source{Scope: t.ID, ID: t.ID, Text: field(t), Expression: t.Expression}
	}
	return sources
}

func (e *Engine) resolveTriggers(ctx context.Context, scenario Scenario, triggers []entity.Trigger, field func(*entity.Trigger) *string) ([]entity.Trigger, error) {
	results, err := e.Resolve(ctx, scenario, triggerSources(triggers, func(t *entity.Trigger) string { return *field(t) }))
	if err != nil {
		return nil, err
	}
	out := make([]entity.Trigger, len(triggers))
	copy(out, triggers)
	for i := range out {
		*field(&out[i]) = results[i].Text
	}
	return out, nil
}

// ResolveTriggerNames expands macros in trigger descriptions
func (e *Engine) ResolveTriggerNames(ctx context.Context, triggers []entity.Trigger) ([]entity.Trigger, error) {
	return e.resolveTriggers(ctx, ScenarioTriggerName, triggers, func(t *entity.Trigger) *string { return &t.Description })
}

// LinkedTrigger is a trigger whose name is rendered as fragments
type LinkedTrigger struct {
	entity.Trigger
	Fragments []Fragment `json:"fragments"`
}

// ResolveTriggerNamesLinked expands trigger descriptions into fragments where
// item values link to their item
func (e *Engine) ResolveTriggerNamesLinked(ctx context.Context, triggers []entity.Trigger) ([]LinkedTrigger, error) {
	results, err := e.Resolve(ctx, ScenarioTriggerNameLinked, triggerSources(triggers, func(t *entity.Trigger) string { return t.Description }))
	if err != nil {
		return nil, err
	}
	out := make([]LinkedTrigger, len(triggers))
	for i, t := range triggers {
		t.Description = results[i].Text
		out[i] = LinkedTrigger{Trigger: t, Fragments: results[i].Fragments}
	}
	return out, nil
}

// ResolveTriggerDescriptions expands macros in trigger comments
func (e *Engine) ResolveTriggerDescriptions(ctx context.Context, triggers []entity.Trigger) ([]entity.Trigger, error) {
	return e.resolveTriggers(ctx, ScenarioTriggerDescription, triggers, func(t *entity.Trigger) *string { return &t.Comments })
}

func (e *Engine) ResolveTriggerURLs(ctx context.Context, triggers []entity.Trigger) ([]entity.Trigger, error) {
	return e.resolveTriggers(ctx, ScenarioTriggerURL, triggers, func(t *entity.Trigger) *string { return &t.URL })
}

// ResolveTriggerExpressions turns stored {functionid} references into readable
// {host:key.func(param)} form
func (e *Engine) ResolveTriggerExpressions(ctx context.Context, triggers []entity.Trigger) ([]entity.Trigger, error) {
	return e.resolveTriggers(ctx, ScenarioTriggerExpression, triggers, func(t *entity.Trigger) *string { return &t.Expression })
}

func itemSources(items []entity.Item, field func(*entity.Item) string) []Source {
	sources := make([]Source, len(items))
	for i := range items {
		it := &items[i]
		sources[i] = Source{
			Scope:       it.ID,
			ID:          it.ID,
			Text:        field(it),
			HostID:      it.HostID,
			InterfaceID: it.InterfaceID,
			Key:         it.Key,
		}
	}
	return sources
}

// ResolveItemKeys expands host, interface and user macros in item keys
func (e *Engine) ResolveItemKeys(ctx context.Context, items []entity.Item) ([]entity.Item, error) {
	results, err := e.Resolve(ctx, ScenarioItemKey, itemSources(items, func(it *entity.Item) string { return it.Key }))
	if err != nil {
		return nil, err
	}
	out := make([]entity.Item, len(items))
	copy(out, items)
	for i := range out {
		out[i].Key = results[i].Text
	}
	return out, nil
}

// ResolveItemNames expands $1..$9 from the resolved key and user macros in item names
func (e *Engine) ResolveItemNames(ctx context.Context, items []entity.Item) ([]entity.Item, error) {
	results, err := e.Resolve(ctx, ScenarioItemName, itemSources(items, func(it *entity.Item) string { return it.Name }))
	if err != nil {
		return nil, err
	}
	out := make([]entity.Item, len(items))
	copy(out, items)
	for i := range out {
		out[i].Name = results[i].Text
	}
	return out, nil
}

func (e *Engine) ResolveGraphNames(ctx context.Context, graphs []entity.Graph) ([]entity.Graph, error) {
	sources := make([]Source, len(graphs))
	for i, g := range graphs {
		sources[i] = Source{Scope: g.ID, ID: g.ID, Text: g.Name}
	}
	results, err := e.Resolve(ctx, ScenarioGraphName, sources)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Graph, len(graphs))
	copy(out, graphs)
	for i := range out {
		out[i].Name = results[i].Text
	}
	return out, nil
}

func (e *Engine) ResolveMapLabels(ctx context.Context, elements []entity.MapElement) ([]entity.MapElement, error) {
	sources := make([]Source, len(elements))
	for i, el := range elements {
		sources[i] = Source{Scope: el.ID, ID: el.ID, Text: el.Label, HostID: el.HostID}
	}
	results, err := e.Resolve(ctx, ScenarioMapElementLabel, sources)
	if err != nil {
		return nil, err
	}
	out := make([]entity.MapElement, len(elements))
	copy(out, elements)
	for i := range out {
		out[i].Label = results[i].Text
	}
	return out, nil
}

// RecordsResult is the output of ResolveRecords. Linked is only set for the
// linked trigger name scenario.
type RecordsResult struct {
	entity.Records
	Linked []LinkedTrigger `json:"linked,omitempty"`
}

// ResolveRecords dispatches a record set to the facade method of the scenario
func (e *Engine) ResolveRecords(ctx context.Context, scenario Scenario, in entity.Records) (RecordsResult, error) {
	var (
		out RecordsResult
		err error
	)
	switch scenario {
	case ScenarioTriggerName:
		out.Triggers, err = e.ResolveTriggerNames(ctx, in.Triggers)
	case ScenarioTriggerNameLinked:
		out.Linked, err = e.ResolveTriggerNamesLinked(ctx, in.Triggers)
		if err == nil {
			out.Triggers = make([]entity.Trigger, len(out.Linked))
			for i, l := range out.Linked {
				out.Triggers[i] = l.Trigger
			}
		}
	case ScenarioTriggerDescription:
		out.Triggers, err = e.ResolveTriggerDescriptions(ctx, in.Triggers)
	case ScenarioTriggerURL:
		out.Triggers, err = e.ResolveTriggerURLs(ctx, in.Triggers)
	case ScenarioTriggerExpression:
		out.Triggers, err = e.ResolveTriggerExpressions(ctx, in.Triggers)
	case ScenarioItemKey:
		out.Items, err = e.ResolveItemKeys(ctx, in.Items)
	case ScenarioItemName:
		out.Items, err = e.ResolveItemNames(ctx, in.Items)
	case ScenarioGraphName:
		out.Graphs, err = e.ResolveGraphNames(ctx, in.Graphs)
	case ScenarioMapElementLabel:
		out.MapElements, err = e.ResolveMapLabels(ctx, in.MapElements)
	default:
		return out, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}
	return out, err
}
