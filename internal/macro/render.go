// file: internal/macro/render.go

package macro

// render resolves every distinct (scope, raw) once and rewrites each source
func (b *batch) render() []Result {
	results := make([]Result, len(b.sources))
	resolved := make(map[string]map[string]Fragment)
	marker := b.rc.Marker()
	linked := b.rc.Scenario().Linked()

	unresolved := 0
	for i, src := range b.sources {
		values := resolved[src.Scope]
		if values == nil {
			values = make(map[string]Fragment)
			resolved[src.Scope] = values
		}
		for _, t := range b.tokens[i] {
			if _, done := values[t.Raw]; done {
				continue
			}
			f, ok := b.value(i, t)
			if !ok {
				f = textFragment(marker)
				unresolved++
				b.e.metrics.IncMacros(t.Family.String(), "unresolved")
			} else {
				b.e.metrics.IncMacros(t.Family.String(), "resolved")
			}
			values[t.Raw] = f
		}

		r := Result{Scope: src.Scope}
		if linked {
			r.Fragments = Substitute(src.Text, b.tokens[i], values, marker)
			r.Text = Flatten(r.Fragments)
		} else {
			r.Text = SubstituteString(src.Text, b.tokens[i], values, marker)
		}
		results[i] = r
	}

	if unresolved > 0 {
		b.rc.Logger().Debug("macros left unresolved", "count", unresolved)
	}
	return results
}

// value routes one token to its resolver
func (b *batch) value(i int, t Token) (Fragment, bool) {
	var (
		v  string
		ok bool
	)
	switch t.Family {
	case FamilyHost:
		v, ok = hostValue(b.scopeHost(i, t.Index), t.Name)
	case FamilyInterface:
		host, bound := b.scopeInterfaceHost(i, t.Index)
		v, ok = interfaceValue(selectInterface(host, bound), t.Name)
		if ok {
			if expanded, found := b.ifaceFields[ifaceFieldKey(host.ID, v)]; found {
				v = expanded
			}
		}
	case FamilyInventory:
		v, ok = inventoryValue(b.scopeHost(i, t.Index), t.Name)
	case FamilyPositional:
		return b.positionalValue(i, t)
	case FamilyItemFunction:
		v, ok = b.itemFunctionValue(i, t)
	case FamilyUserMacro:
		v, ok = b.userMacros[b.sources[i].Scope][t.Raw]
	case FamilyReference:
		params := b.keyParams[i]
		if t.Index >= 1 && t.Index <= len(params) {
			v, ok = params[t.Index-1], true
		}
	case FamilyFunctionID:
		v, ok = b.functionIDValue(i, t)
	case FamilyTrigger:
		v, ok = b.sources[i].ID, b.sources[i].ID != ""
	}
	return textFragment(v), ok
}

// positionalValue resolves ITEM.* macros; in linked output the value macros
// become links to the item
func (b *batch) positionalValue(i int, t Token) (Fragment, bool) {
	ref, ok := positionalRef(b.refs(i), t.Index)
	if !ok {
		return Fragment{}, false
	}
	item := b.items[ref.ItemID]

	switch t.Name {
	case macroItemLastValue, macroItemValue:
		v, ok := b.lastValue(item)
		if !ok {
			return Fragment{}, false
		}
		if b.rc.Scenario().Linked() {
			return Fragment{Kind: FragmentLink, Text: v, ItemID: item.ID}, true
		}
		return textFragment(v), true
	default:
		v, ok := itemValue(item, t.Name)
		return textFragment(v), ok
	}
}
