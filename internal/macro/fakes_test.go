package macro

import (
	"context"
	"errors"
	"sync"
	"time"

	"macro-resolver/internal/entity"
)

// fakeRepository serves fixed entities and counts calls per method and per id
type fakeRepository struct {
	hosts     map[string]*entity.Host
	items     map[string]*entity.Item
	functions map[string]*entity.Function
	global    []entity.UserMacro
	valueMaps map[string]*entity.ValueMap

	fail error

	mu      sync.Mutex
	calls   map[string]int
	idCalls map[string]int
}

func (r *fakeRepository) record(method string, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
		r.idCalls = make(map[string]int)
	}
	r.calls[method]++
	for _, id := range ids {
		r.idCalls[method+":"+id]++
	}
	return r.fail
}

func (r *fakeRepository) callCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *fakeRepository) idCallCount(method, id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idCalls[method+":"+id]
}

func (r *fakeRepository) FetchHosts(_ context.Context, ids []string) (map[string]*entity.Host, error) {
	if err := r.record("FetchHosts", ids...); err != nil {
		return nil, err
	}
	out := make(map[string]*entity.Host)
	for _, id := range ids {
		if h, ok := r.hosts[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func (r *fakeRepository) FetchHostsByName(_ context.Context, names []string) (map[string]*entity.Host, error) {
	if err := r.record("FetchHostsByName", names...); err != nil {
		return nil, err
	}
	out := make(map[string]*entity.Host)
	for _, h := range r.hosts {
		for _, name := range names {
			if h.Host == name {
				out[name] = h
			}
		}
	}
	return out, nil
}

func (r *fakeRepository) FetchItems(_ context.Context, ids []string) (map[string]*entity.Item, error) {
	if err := r.record("FetchItems", ids...); err != nil {
		return nil, err
	}
	out := make(map[string]*entity.Item)
	for _, id := range ids {
		if it, ok := r.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (r *fakeRepository) FetchItemsByKey(_ context.Context, keys []entity.HostKey) (map[entity.HostKey]*entity.Item, error) {
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.String()
	}
	if err := r.record("FetchItemsByKey", ids...); err != nil {
		return nil, err
	}
	out := make(map[entity.HostKey]*entity.Item)
	for _, it := range r.items {
		for _, k := range keys {
			if it.HostID == k.HostID && it.Key == k.Key {
				out[k] = it
			}
		}
	}
	return out, nil
}

func (r *fakeRepository) FetchFunctions(_ context.Context, ids []string) (map[string]*entity.Function, error) {
	if err := r.record("FetchFunctions", ids...); err != nil {
		return nil, err
	}
	out := make(map[string]*entity.Function)
	for _, id := range ids {
		if fn, ok := r.functions[id]; ok {
			out[id] = fn
		}
	}
	return out, nil
}

func (r *fakeRepository) FetchHostMacros(_ context.Context, hostIDs []string) (map[string][]entity.UserMacro, error) {
	if err := r.record("FetchHostMacros", hostIDs...); err != nil {
		return nil, err
	}
	out := make(map[string][]entity.UserMacro)
	for _, id := range hostIDs {
		if h, ok := r.hosts[id]; ok {
			out[id] = h.Macros
		}
	}
	return out, nil
}

func (r *fakeRepository) FetchTemplateLinks(_ context.Context, hostIDs []string) (map[string][]string, error) {
	if err := r.record("FetchTemplateLinks", hostIDs...); err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, id := range hostIDs {
		if h, ok := r.hosts[id]; ok {
			out[id] = h.TemplateIDs
		}
	}
	return out, nil
}

func (r *fakeRepository) FetchGlobalMacros(_ context.Context) ([]entity.UserMacro, error) {
	if err := r.record("FetchGlobalMacros"); err != nil {
		return nil, err
	}
	return r.global, nil
}

func (r *fakeRepository) FetchValueMaps(_ context.Context, ids []string) (map[string]*entity.ValueMap, error) {
	if err := r.record("FetchValueMaps", ids...); err != nil {
		return nil, err
	}
	out := make(map[string]*entity.ValueMap)
	for _, id := range ids {
		if vm, ok := r.valueMaps[id]; ok {
			out[id] = vm
		}
	}
	return out, nil
}

// fakeParser maps {functionid} references through the function source
type fakeParser struct {
	calls int
}

func (p *fakeParser) MapFunctions(ctx context.Context, src FunctionSource, expressions []string) (map[string][]entity.FunctionRef, error) {
	p.calls++
	perExpr := make(map[string][]string)
	var all []string
	for _, expr := range expressions {
		for _, t := range Extract(expr, ScenarioTriggerExpression) {
			perExpr[expr] = append(perExpr[expr], t.Name)
			all = append(all, t.Name)
		}
	}
	functions, err := src.FetchFunctions(ctx, all)
	if err != nil {
		return nil, err
	}
	var itemIDs []string
	for _, fn := range functions {
		itemIDs = append(itemIDs, fn.ItemID)
	}
	items, err := src.FetchItems(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]entity.FunctionRef)
	for expr, ids := range perExpr {
		refs := make([]entity.FunctionRef, len(ids))
		for n, id := range ids {
			refs[n].FunctionID = id
			if fn := functions[id]; fn != nil {
				refs[n].Function, refs[n].Parameter = fn.Name, fn.Parameter
				if it := items[fn.ItemID]; it != nil {
					refs[n].ItemID, refs[n].HostID = it.ID, it.HostID
				}
			}
		}
		out[expr] = refs
	}
	return out, nil
}

type aggregateCall struct {
	function string
	itemIDs  []string
	window   time.Duration
}

// fakeSeries returns fixed aggregates per function and item
type fakeSeries struct {
	values map[string]map[string]float64
	fail   error

	mu    sync.Mutex
	calls []aggregateCall
}

func (s *fakeSeries) Aggregate(_ context.Context, function string, itemIDs []string, from, to time.Time) (map[string]float64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, aggregateCall{function: function, itemIDs: itemIDs, window: to.Sub(from)})
	s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make(map[string]float64)
	for _, id := range itemIDs {
		if v, ok := s.values[function][id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var errUnavailable = errors.New("backend unavailable")

// newTestRepository builds the shared fixture: host web01 linked to a template,
// host db01 with a non-main agent interface, and a handful of items.
func newTestRepository() *fakeRepository {
	return &fakeRepository{
		hosts: map[string]*entity.Host{
			"10": {
				ID: "10", Host: "web01", Name: "web01", Description: "frontend",
				Interfaces: []entity.Interface{
					{ID: "1", Type: entity.InterfaceAgent, Main: true, UseIP: true, IP: "10.0.0.1", DNS: "web01.local", Port: "{$AGENT.PORT}"},
					{ID: "2", Type: entity.InterfaceSNMP, Main: true, UseIP: false, IP: "10.0.0.2", DNS: "snmp.web01.local", Port: "161"},
				},
				Inventory:   map[string]string{"os": "Linux", "tag": ""},
				TemplateIDs: []string{"100"},
				Macros: []entity.UserMacro{
					{Macro: "{$TIMEOUT}", Value: "45"},
					{Macro: "{$IFACE}", Value: "eth0"},
				},
			},
			"20": {
				ID: "20", Host: "db01", Name: "Database 01",
				Interfaces: []entity.Interface{
					{ID: "3", Type: entity.InterfaceAgent, Main: false, UseIP: true, IP: "10.0.1.1", Port: "10050"},
				},
				InventoryMode: entity.InventoryDisabled,
				Inventory:     map[string]string{"os": "FreeBSD"},
			},
			"100": {
				ID: "100", Host: "Template App", Template: true, InventoryMode: entity.InventoryDisabled,
				TemplateIDs: []string{"101"},
				Macros: []entity.UserMacro{
					{Macro: "{$TIMEOUT}", Value: "30"},
					{Macro: "{$AGENT.PORT}", Value: "10050"},
					{Macro: "{$TEMPLATE.ONLY}", Value: "from-template"},
				},
			},
			"101": {
				ID: "101", Host: "Template Base", Template: true,
				TemplateIDs: []string{"100"},
				Macros: []entity.UserMacro{
					{Macro: "{$TEMPLATE.ONLY}", Value: "from-base"},
					{Macro: "{$BASE.ONLY}", Value: "base"},
				},
			},
		},
		items: map[string]*entity.Item{
			"1001": {ID: "1001", HostID: "10", InterfaceID: "2", Name: "CPU utilization", Key: "system.cpu.util", ValueType: entity.ValueFloat, Units: "%", LastValue: "42", LastClock: 1},
			"1002": {ID: "1002", HostID: "10", Name: "Agent ping", Key: "agent.ping", ValueType: entity.ValueUnsigned, ValueMapID: "7", LastValue: "1", LastClock: 1},
			"1003": {ID: "1003", HostID: "10", Name: "Incoming traffic", Key: "net.if.in[eth0,bytes]", ValueType: entity.ValueUnsigned, Units: "Bps", LastValue: "2048", LastClock: 1},
			"1004": {ID: "1004", HostID: "10", Name: "Uname", Key: "system.uname", ValueType: entity.ValueText, LastValue: "Linux web01", LastClock: 1},
			"2001": {ID: "2001", HostID: "20", Name: "Agent ping", Key: "agent.ping", ValueType: entity.ValueUnsigned, ValueMapID: "7", LastValue: "0", LastClock: 1},
		},
		functions: map[string]*entity.Function{
			"501": {ID: "501", ItemID: "1001", Name: "last", Parameter: ""},
			"502": {ID: "502", ItemID: "2001", Name: "last", Parameter: "0"},
			"503": {ID: "503", ItemID: "9999", Name: "avg", Parameter: "5m"},
		},
		global: []entity.UserMacro{
			{Macro: "{$TIMEOUT}", Value: "60"},
			{Macro: "{$GLOBAL}", Value: "g"},
		},
		valueMaps: map[string]*entity.ValueMap{
			"7": {ID: "7", Name: "Service state", Mappings: map[string]string{"0": "Down", "1": "Up"}},
		},
	}
}
