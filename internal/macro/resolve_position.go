// file: internal/macro/resolve_position.go

package macro

import "macro-resolver/internal/entity"

// positionalRef returns the function reference for a 1-based index; 0 means 1.
// References to functions whose item no longer exists do not resolve.
func positionalRef(refs []entity.FunctionRef, index int) (entity.FunctionRef, bool) {
	if index == 0 {
		index = 1
	}
	if index < 1 || index > len(refs) {
		return entity.FunctionRef{}, false
	}
	ref := refs[index-1]
	if ref.ItemID == "" {
		return entity.FunctionRef{}, false
	}
	return ref, true
}

// functionByID finds the reference of a stored {functionid}
func functionByID(refs []entity.FunctionRef, id string) (entity.FunctionRef, bool) {
	for _, ref := range refs {
		if ref.FunctionID == id {
			return ref, ref.ItemID != ""
		}
	}
	return entity.FunctionRef{}, false
}

func itemValue(item *entity.Item, name string) (string, bool) {
	if item == nil {
		return "", false
	}
	switch name {
	case macroItemName:
		return item.Name, true
	case macroItemKey:
		return item.Key, true
	case macroItemID:
		return item.ID, true
	}
	return "", false
}
