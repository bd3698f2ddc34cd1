// file: internal/store/memory.go

package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"macro-resolver/internal/entity"
)

// Fixture is an in-file snapshot of monitoring metadata, used by the CLI,
// the fixture backend and to seed a KV bucket.
type Fixture struct {
	Hosts        []entity.Host              `yaml:"hosts" json:"hosts"`
	Items        []entity.Item              `yaml:"items" json:"items"`
	Functions    []entity.Function          `yaml:"functions" json:"functions"`
	GlobalMacros []entity.UserMacro         `yaml:"globalMacros" json:"globalMacros"`
	ValueMaps    []entity.ValueMap          `yaml:"valueMaps" json:"valueMaps"`
	History      map[string][]entity.Sample `yaml:"history" json:"history"`
}

// LoadFixture reads a YAML fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates fixture YAML
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	hostIDs := make(map[string]bool, len(f.Hosts))
	for i, h := range f.Hosts {
		if h.ID == "" {
			return fmt.Errorf("host %d: hostid is required", i)
		}
		if hostIDs[h.ID] {
			return fmt.Errorf("host %s: duplicate hostid", h.ID)
		}
		hostIDs[h.ID] = true
	}
	for i, it := range f.Items {
		if it.ID == "" {
			return fmt.Errorf("item %d: itemid is required", i)
		}
		if !hostIDs[it.HostID] {
			return fmt.Errorf("item %s: unknown hostid %q", it.ID, it.HostID)
		}
	}
	for i, fn := range f.Functions {
		if fn.ID == "" {
			return fmt.Errorf("function %d: functionid is required", i)
		}
	}
	for i, vm := range f.ValueMaps {
		if vm.ID == "" {
			return fmt.Errorf("value map %d: valuemapid is required", i)
		}
	}
	return nil
}

// MemoryRepository serves a Fixture from memory. It is read-only after construction.
type MemoryRepository struct {
	hosts       map[string]*entity.Host
	hostsByName map[string]*entity.Host
	items       map[string]*entity.Item
	itemsByKey  map[entity.HostKey]*entity.Item
	functions   map[string]*entity.Function
	global      []entity.UserMacro
	valueMaps   map[string]*entity.ValueMap
}

func NewMemoryRepository(f *Fixture) *MemoryRepository {
	r := &MemoryRepository{
		hosts:       make(map[string]*entity.Host, len(f.Hosts)),
		hostsByName: make(map[string]*entity.Host, len(f.Hosts)),
		items:       make(map[string]*entity.Item, len(f.Items)),
		itemsByKey:  make(map[entity.HostKey]*entity.Item, len(f.Items)),
		functions:   make(map[string]*entity.Function, len(f.Functions)),
		global:      f.GlobalMacros,
		valueMaps:   make(map[string]*entity.ValueMap, len(f.ValueMaps)),
	}
	for i := range f.Hosts {
		h := &f.Hosts[i]
		r.hosts[h.ID] = h
		r.hostsByName[h.Host] = h
	}
	for i := range f.Items {
		it := &f.Items[i]
		r.items[it.ID] = it
		r.itemsByKey[entity.HostKey{HostID: it.HostID, Key: it.Key}] = it
	}
	for i := range f.Functions {
		r.functions[f.Functions[i].ID] = &f.Functions[i]
	}
	for i := range f.ValueMaps {
		r.valueMaps[f.ValueMaps[i].ID] = &f.ValueMaps[i]
	}
	return r
}

func pick[K comparable, V any](src map[K]V, keys []K) map[K]V {
	out := make(map[K]V, len(keys))
	for _, k := range keys {
		if v, ok := src[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (r *MemoryRepository) FetchHosts(_ context.Context, ids []string) (map[string]*entity.Host, error) {
	return pick(r.hosts, ids), nil
}

func (r *MemoryRepository) FetchHostsByName(_ context.Context, names []string) (map[string]*entity.Host, error) {
	return pick(r.hostsByName, names), nil
}

func (r *MemoryRepository) FetchItems(_ context.Context, ids []string) (map[string]*entity.Item, error) {
	return pick(r.items, ids), nil
}

func (r *MemoryRepository) FetchItemsByKey(_ context.Context, keys []entity.HostKey) (map[entity.HostKey]*entity.Item, error) {
	return pick(r.itemsByKey, keys), nil
}

func (r *MemoryRepository) FetchFunctions(_ context.Context, ids []string) (map[string]*entity.Function, error) {
	return pick(r.functions, ids), nil
}

func (r *MemoryRepository) FetchHostMacros(_ context.Context, hostIDs []string) (map[string][]entity.UserMacro, error) {
	out := make(map[string][]entity.UserMacro, len(hostIDs))
	for _, id := range hostIDs {
		if h, ok := r.hosts[id]; ok {
			out[id] = h.Macros
		}
	}
	return out, nil
}

func (r *MemoryRepository) FetchTemplateLinks(_ context.Context, hostIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(hostIDs))
	for _, id := range hostIDs {
		if h, ok := r.hosts[id]; ok {
			out[id] = h.TemplateIDs
		}
	}
	return out, nil
}

func (r *MemoryRepository) FetchGlobalMacros(_ context.Context) ([]entity.UserMacro, error) {
	return r.global, nil
}

func (r *MemoryRepository) FetchValueMaps(_ context.Context, ids []string) (map[string]*entity.ValueMap, error) {
	return pick(r.valueMaps, ids), nil
}
