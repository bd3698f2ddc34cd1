// file: internal/macro/resolve_usermacro.go

package macro

import (
	"context"
	"regexp"

	"macro-resolver/internal/entity"
	"macro-resolver/internal/logger"
)

// maxTemplateDepth bounds template inheritance walks
const maxTemplateDepth = 16

// MacroScope asks for the user macros of one scope. HostIDs are in precedence order.
type MacroScope struct {
	Key     string
	HostIDs []string
	Macros  []Token
}

type macroDefinition struct {
	ref   userMacroRef
	value string
	re    *regexp.Regexp
}

// UserMacroResolver resolves {$MACRO} tokens along the override chain:
// hosts of the scope, then linked templates nearest first, then global macros.
type UserMacroResolver struct {
	repo Repository
	log  *logger.Logger
}

func NewUserMacroResolver(repo Repository, log *logger.Logger) *UserMacroResolver {
	return &UserMacroResolver{repo: repo, log: log}
}

// macroIndex is the definition data loaded for one batch
type macroIndex struct {
	defs   map[string][]macroDefinition
	links  map[string][]string
	global []macroDefinition
}

// Resolve returns scope key -> raw token -> value. Tokens that are defined
// nowhere in their chain are absent.
func (r *UserMacroResolver) Resolve(ctx context.Context, scopes []MacroScope) (map[string]map[string]string, error) {
	var hostIDs []string
	for _, s := range scopes {
		hostIDs = append(hostIDs, s.HostIDs...)
	}

	ix, err := r.load(ctx, hostIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]string, len(scopes))
	for _, s := range scopes {
		if len(s.Macros) == 0 {
			continue
		}
		chain := ix.chain(s.HostIDs)
		values := out[s.Key]
		if values == nil {
			values = make(map[string]string, len(s.Macros))
			out[s.Key] = values
		}
		for _, t := range s.Macros {
			if _, done := values[t.Raw]; done {
				continue
			}
			if v, ok := lookupMacro(chain, t); ok {
				values[t.Raw] = v
			}
		}
	}
	return out, nil
}

// load walks template links one inheritance level per fetch, then fetches the
// macros of every host and template seen in one call
func (r *UserMacroResolver) load(ctx context.Context, hostIDs []string) (*macroIndex, error) {
	ix := &macroIndex{
		defs:  make(map[string][]macroDefinition),
		links: make(map[string][]string),
	}

	level := uniqueStrings(hostIDs)
	all := append([]string(nil), level...)
	visited := make(map[string]struct{}, len(level))
	for _, id := range level {
		visited[id] = struct{}{}
	}

	for depth := 0; len(level) > 0 && depth < maxTemplateDepth; depth++ {
		links, err := r.repo.FetchTemplateLinks(ctx, level)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, id := range level {
			ix.links[id] = links[id]
			for _, tpl := range links[id] {
				if _, seen := visited[tpl]; seen {
					continue
				}
				visited[tpl] = struct{}{}
				next = append(next, tpl)
			}
		}
		all = append(all, next...)
		level = next
	}

	if len(all) > 0 {
		macros, err := r.repo.FetchHostMacros(ctx, all)
		if err != nil {
			return nil, err
		}
		for id, list := range macros {
			ix.defs[id] = r.definitions(list)
		}
	}

	global, err := r.repo.FetchGlobalMacros(ctx)
	if err != nil {
		return nil, err
	}
	ix.global = r.definitions(global)
	return ix, nil
}

func (r *UserMacroResolver) definitions(list []entity.UserMacro) []macroDefinition {
	defs := make([]macroDefinition, 0, len(list))
	for _, m := range list {
		ref, end, ok := parseUserMacro(m.Macro, 0)
		if !ok || end != len(m.Macro) {
			r.log.Debug("skipping malformed user macro definition", "macro", m.Macro)
			continue
		}
		def := macroDefinition{ref: ref, value: m.Value}
		if ref.Regex {
			re, err := regexp.Compile(ref.Context)
			if err != nil {
				r.log.Debug("skipping user macro with invalid regex context", "macro", m.Macro, "error", err)
				continue
			}
			def.re = re
		}
		defs = append(defs, def)
	}
	return defs
}

// chain orders definition levels: scope hosts in order, then templates breadth
// first in link order, then global
func (ix *macroIndex) chain(hostIDs []string) [][]macroDefinition {
	var chain [][]macroDefinition
	visited := make(map[string]struct{})
	level := make([]string, 0, len(hostIDs))
	for _, id := range hostIDs {
		if _, seen := visited[id]; seen || id == "" {
			continue
		}
		visited[id] = struct{}{}
		level = append(level, id)
		chain = append(chain, ix.defs[id])
	}

	for depth := 0; len(level) > 0 && depth < maxTemplateDepth; depth++ {
		var next []string
		for _, id := range level {
			for _, tpl := range ix.links[id] {
				if _, seen := visited[tpl]; seen {
					continue
				}
				visited[tpl] = struct{}{}
				next = append(next, tpl)
				chain = append(chain, ix.defs[tpl])
			}
		}
		level = next
	}

	return append(chain, ix.global)
}

// lookupMacro applies the precedence for one token: an exact context along the
// whole chain, then regex contexts along the chain, then the plain macro.
func lookupMacro(chain [][]macroDefinition, t Token) (string, bool) {
	if t.HasContext {
		for _, level := range chain {
			for _, d := range level {
				if d.ref.Name == t.Name && d.ref.HasContext && !d.ref.Regex && d.ref.Context == t.Context {
					return d.value, true
				}
			}
		}
		for _, level := range chain {
			for _, d := range level {
				if d.ref.Name == t.Name && d.re != nil && d.re.MatchString(t.Context) {
					return d.value, true
				}
			}
		}
	}
	for _, level := range chain {
		for _, d := range level {
			if d.ref.Name == t.Name && !d.ref.HasContext {
				return d.value, true
			}
		}
	}
	return "", false
}
