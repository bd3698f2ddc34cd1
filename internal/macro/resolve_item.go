// file: internal/macro/resolve_item.go

package macro

import (
	"strconv"

	"macro-resolver/internal/entity"
)

var aggregateFunctions = map[string]struct{}{
	"min": {},
	"max": {},
	"avg": {},
}

func isAggregate(function string) bool {
	_, ok := aggregateFunctions[function]
	return ok
}

// scopeHost returns the host a host-family macro refers to. In trigger
// scenarios that is the host of the indexed function, otherwise the record's own host.
func (b *batch) scopeHost(i, index int) *entity.Host {
	if b.rc.Scenario().positional() {
		ref, ok := positionalRef(b.refs(i), index)
		if !ok {
			return nil
		}
		return b.hosts[ref.HostID]
	}
	if index != 0 {
		return nil
	}
	return b.hosts[b.sources[i].HostID]
}

// scopeInterfaceHost returns the host together with the interface id the
// record or indexed item is bound to
func (b *batch) scopeInterfaceHost(i, index int) (*entity.Host, string) {
	if b.rc.Scenario().positional() {
		ref, ok := positionalRef(b.refs(i), index)
		if !ok {
			return nil, ""
		}
		bound := ""
		if item := b.items[ref.ItemID]; item != nil {
			bound = item.InterfaceID
		}
		return b.hosts[ref.HostID], bound
	}
	return b.scopeHost(i, index), b.sources[i].InterfaceID
}

// itemFunctionHostID returns the id of the host an item function reads from
func (b *batch) itemFunctionHostID(i int, t Token) string {
	if !t.HostRef {
		if h := b.hostsByName[t.Host]; h != nil {
			return h.ID
		}
		return ""
	}
	if b.rc.Scenario().positional() {
		ref, ok := positionalRef(b.refs(i), t.Index)
		if !ok {
			return ""
		}
		return ref.HostID
	}
	if t.Index != 0 {
		return ""
	}
	return b.sources[i].HostID
}

func (b *batch) itemFunctionItem(i int, t Token) *entity.Item {
	hostID := b.itemFunctionHostID(i, t)
	if hostID == "" {
		return nil
	}
	return b.itemsByKey[entity.HostKey{HostID: hostID, Key: t.Key}]
}

// lastValue formats the most recent value: units first, then the value map
func (b *batch) lastValue(item *entity.Item) (string, bool) {
	if item == nil || item.LastClock == 0 {
		return "", false
	}
	formatted := b.e.formatter.FormatValue(item.LastValue, item.Units, item.ValueType)
	if item.ValueMapID != "" {
		if vm := b.valueMaps[item.ValueMapID]; vm != nil {
			formatted = b.e.formatter.ApplyValueMap(formatted, item.LastValue, vm)
		}
	}
	return formatted, true
}

// itemFunctionValue resolves {host:key.func(params)}. Aggregates get unit
// formatting only; value maps apply to last() alone.
func (b *batch) itemFunctionValue(i int, t Token) (string, bool) {
	item := b.itemFunctionItem(i, t)
	if item == nil {
		return "", false
	}
	if t.Function == "last" {
		return b.lastValue(item)
	}
	if !isAggregate(t.Function) || !item.Numeric() {
		return "", false
	}
	window, ok := ParseWindow(firstParam(t.Params))
	if !ok {
		return "", false
	}
	v, ok := b.aggregates[aggregateKey{function: t.Function, window: window}][item.ID]
	if !ok {
		return "", false
	}
	raw := strconv.FormatFloat(v, 'f', -1, 64)
	return b.e.formatter.FormatValue(raw, item.Units, item.ValueType), true
}

// functionIDValue expands a stored {functionid} into {host:key.func(param)}
func (b *batch) functionIDValue(i int, t Token) (string, bool) {
	ref, ok := functionByID(b.refs(i), t.Name)
	if !ok {
		return "", false
	}
	item, host := b.items[ref.ItemID], b.hosts[ref.HostID]
	if item == nil || host == nil {
		return "", false
	}
	return "{" + host.Host + ":" + item.Key + "." + ref.Function + "(" + ref.Parameter + ")}", true
}
