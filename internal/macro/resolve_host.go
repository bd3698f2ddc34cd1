// file: internal/macro/resolve_host.go

package macro

import "macro-resolver/internal/entity"

// interfacePriority is the order in which interface types are considered
var interfacePriority = [...]int{
	entity.InterfaceAgent,
	entity.InterfaceSNMP,
	entity.InterfaceJMX,
	entity.InterfaceIPMI,
}

// selectInterface returns the interface bound by id when there is one, else the
// main interface of the highest priority type. Nil when no interface qualifies.
func selectInterface(h *entity.Host, boundID string) *entity.Interface {
	if h == nil {
		return nil
	}
	if boundID != "" && boundID != "0" {
		for i := range h.Interfaces {
			if h.Interfaces[i].ID == boundID {
				return &h.Interfaces[i]
			}
		}
	}
	for _, typ := range interfacePriority {
		for i := range h.Interfaces {
			if h.Interfaces[i].Type == typ && h.Interfaces[i].Main {
				return &h.Interfaces[i]
			}
		}
	}
	return nil
}

func hostValue(h *entity.Host, name string) (string, bool) {
	if h == nil {
		return "", false
	}
	switch name {
	case macroHostHost:
		return h.Host, true
	case macroHostName:
		return h.VisibleName(), true
	case macroHostDescription:
		return h.Description, true
	case macroHostID:
		return h.ID, true
	}
	return "", false
}

func interfaceValue(iface *entity.Interface, name string) (string, bool) {
	if iface == nil {
		return "", false
	}
	switch name {
	case macroHostIP:
		return iface.IP, true
	case macroHostDNS:
		return iface.DNS, true
	case macroHostConn:
		if iface.UseIP {
			return iface.IP, true
		}
		return iface.DNS, true
	case macroHostPort:
		return iface.Port, true
	}
	return "", false
}

// inventoryValue resolves INVENTORY.* only while the host's inventory is enabled.
// A field that exists but is empty resolves to the empty string.
func inventoryValue(h *entity.Host, name string) (string, bool) {
	if h == nil || !h.InventoryEnabled() {
		return "", false
	}
	field, ok := InventoryField(name)
	if !ok {
		return "", false
	}
	v, ok := h.Inventory[field]
	return v, ok
}
