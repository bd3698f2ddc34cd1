// file: internal/entity/entity.go

package entity

import "strconv"

// InventoryDisabled marks a host whose inventory feature is switched off
const InventoryDisabled = -1

// Interface types
const (
	InterfaceAgent = 1
	InterfaceSNMP  = 2
	InterfaceIPMI  = 3
	InterfaceJMX   = 4
)

// Item value types
const (
	ValueFloat    = 0
	ValueChar     = 1
	ValueLog      = 2
	ValueUnsigned = 3
	ValueText     = 4
)

// Host is a monitored host or template
type Host struct {
	ID            string            `json:"hostid" yaml:"hostid"`
	Host          string            `json:"host" yaml:"host"`
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description" yaml:"description"`
	Template      bool              `json:"template,omitempty" yaml:"template,omitempty"`
	Interfaces    []Interface       `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	InventoryMode int               `json:"inventoryMode" yaml:"inventoryMode"`
	Inventory     map[string]string `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	TemplateIDs   []string          `json:"templateids,omitempty" yaml:"templateids,omitempty"`
	Macros        []UserMacro       `json:"macros,omitempty" yaml:"macros,omitempty"`
}

// VisibleName returns the visible name, falling back to the technical name
func (h *Host) VisibleName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.Host
}

// InventoryEnabled reports whether inventory macros may resolve for this host
func (h *Host) InventoryEnabled() bool {
	return h.InventoryMode != InventoryDisabled
}

type Interface struct {
	ID    string `json:"interfaceid" yaml:"interfaceid"`
	Type  int    `json:"type" yaml:"type"`
	Main  bool   `json:"main" yaml:"main"`
	UseIP bool   `json:"useip" yaml:"useip"`
	IP    string `json:"ip" yaml:"ip"`
	DNS   string `json:"dns" yaml:"dns"`
	Port  string `json:"port" yaml:"port"`
}

// Item is a single metric collected on a host
type Item struct {
	ID          string `json:"itemid" yaml:"itemid"`
	HostID      string `json:"hostid" yaml:"hostid"`
	InterfaceID string `json:"interfaceid,omitempty" yaml:"interfaceid,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Key         string `json:"key" yaml:"key"`
	ValueType   int    `json:"valueType" yaml:"valueType"`
	Units       string `json:"units,omitempty" yaml:"units,omitempty"`
	ValueMapID  string `json:"valuemapid,omitempty" yaml:"valuemapid,omitempty"`
	LastValue   string `json:"lastvalue,omitempty" yaml:"lastvalue,omitempty"`
	LastClock   int64  `json:"lastclock,omitempty" yaml:"lastclock,omitempty"`
}

// Numeric reports whether aggregate functions apply to the item's values
func (i *Item) Numeric() bool {
	return i.ValueType == ValueFloat || i.ValueType == ValueUnsigned
}

// Function is one function call stored for a trigger expression
type Function struct {
	ID        string `json:"functionid" yaml:"functionid"`
	ItemID    string `json:"itemid" yaml:"itemid"`
	Name      string `json:"name" yaml:"name"`
	Parameter string `json:"parameter" yaml:"parameter"`
}

// FunctionRef binds the N-th function of an expression to its item and host
type FunctionRef struct {
	FunctionID string
	ItemID     string
	HostID     string
	Function   string
	Parameter  string
}

type UserMacro struct {
	Macro string `json:"macro" yaml:"macro"`
	Value string `json:"value" yaml:"value"`
}

type ValueMap struct {
	ID       string            `json:"valuemapid" yaml:"valuemapid"`
	Name     string            `json:"name" yaml:"name"`
	Mappings map[string]string `json:"mappings" yaml:"mappings"`
}

// HostKey identifies an item by its host and key
type HostKey struct {
	HostID string
	Key    string
}

func (k HostKey) String() string {
	return k.HostID + ":" + strconv.Quote(k.Key)
}
