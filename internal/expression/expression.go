// file: internal/expression/expression.go

// Package expression maps stored trigger expressions to the items and hosts
// their functions read from. It does not evaluate expressions.
package expression

import (
	"context"
	"fmt"

	"macro-resolver/internal/entity"
	"macro-resolver/internal/logger"
	"macro-resolver/internal/macro"
)

// Parser implements macro.ExpressionParser for expressions in stored form,
// where every function call is written as {functionid}
type Parser struct {
	logger *logger.Logger
}

func NewParser(log *logger.Logger) *Parser {
	return &Parser{logger: log}
}

// FunctionIDs returns the distinct {functionid} references of expr in order of
// first occurrence. Quoted string constants are skipped.
func FunctionIDs(expr string) []string {
	var (
		ids  []string
		seen = make(map[string]struct{})
	)
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '"':
			for i++; i < len(expr) && expr[i] != '"'; i++ {
				if expr[i] == '\\' {
					i++
				}
			}
		case '{':
			j := i + 1
			for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
				j++
			}
			if j == i+1 || j >= len(expr) || expr[j] != '}' {
				continue
			}
			id := expr[i+1 : j]
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
			i = j
		}
	}
	return ids
}

// MapFunctions resolves every expression with one function fetch and one item
// fetch for the whole batch. Functions or items that no longer exist keep
// their position with an empty item id.
func (p *Parser) MapFunctions(ctx context.Context, src macro.FunctionSource, expressions []string) (map[string][]entity.FunctionRef, error) {
	perExpr := make(map[string][]string, len(expressions))
	var all []string
	for _, expr := range expressions {
		if _, done := perExpr[expr]; done {
			continue
		}
		ids := FunctionIDs(expr)
		perExpr[expr] = ids
		all = append(all, ids...)
	}
	out := make(map[string][]entity.FunctionRef, len(perExpr))
	if len(all) == 0 {
		return out, nil
	}

	functions, err := src.FetchFunctions(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch functions: %w", err)
	}

	itemIDs := make([]string, 0, len(functions))
	for _, fn := range functions {
		itemIDs = append(itemIDs, fn.ItemID)
	}
	items, err := src.FetchItems(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch function items: %w", err)
	}

	missing := 0
	for expr, ids := range perExpr {
		refs := make([]entity.FunctionRef, len(ids))
		for n, id := range ids {
			refs[n].FunctionID = id
			fn, ok := functions[id]
			if !ok {
				missing++
				continue
			}
			refs[n].Function = fn.Name
			refs[n].Parameter = fn.Parameter
			if item, ok := items[fn.ItemID]; ok {
				refs[n].ItemID = item.ID
				refs[n].HostID = item.HostID
			} else {
				missing++
			}
		}
		out[expr] = refs
	}

	if missing > 0 {
		p.logger.Debug("expression references unknown functions or items", "count", missing)
	}
	return out, nil
}
