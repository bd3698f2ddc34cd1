// file: internal/macro/scenario.go

package macro

import (
	"errors"
	"fmt"
)

// ErrUnknownScenario is returned by ParseScenario for names outside the closed set
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario selects which families are legal and how the output is rendered
type Scenario int

const (
	ScenarioTriggerName Scenario = iota + 1
	ScenarioTriggerNameLinked
	ScenarioTriggerDescription
	ScenarioTriggerURL
	ScenarioTriggerExpression
	ScenarioItemKey
	ScenarioItemName
	ScenarioGraphName
	ScenarioMapElementLabel

	// ScenarioInterfaceField resolves user macros inside interface ip/dns/port values
	ScenarioInterfaceField
)

type scenarioDef struct {
	name       string
	families   FamilySet
	indexed    bool
	positional bool // host and item macros follow the record's expression
	linked     bool
	internal   bool
}

var (
	triggerFamilies = NewFamilySet(FamilyHost, FamilyInterface, FamilyPositional, FamilyItemFunction, FamilyUserMacro)

	scenarioDefs = map[Scenario]scenarioDef{
		ScenarioTriggerName: {
			name: "trigger-name", families: triggerFamilies, indexed: true, positional: true,
		},
		ScenarioTriggerNameLinked: {
			name: "trigger-name-linked", families: triggerFamilies, indexed: true, positional: true, linked: true,
		},
		ScenarioTriggerDescription: {
			name:     "trigger-description",
			families: triggerFamilies | NewFamilySet(FamilyInventory),
			indexed:  true, positional: true,
		},
		ScenarioTriggerURL: {
			name:     "trigger-url",
			families: NewFamilySet(FamilyHost, FamilyInterface, FamilyPositional, FamilyTrigger, FamilyUserMacro),
			indexed:  true, positional: true,
		},
		ScenarioTriggerExpression: {
			name: "trigger-expression", families: NewFamilySet(FamilyFunctionID), positional: true,
		},
		ScenarioItemKey: {
			name: "item-key", families: NewFamilySet(FamilyHost, FamilyInterface, FamilyUserMacro),
		},
		ScenarioItemName: {
			name: "item-name", families: NewFamilySet(FamilyReference, FamilyUserMacro),
		},
		ScenarioGraphName: {
			name: "graph-name", families: NewFamilySet(FamilyItemFunction),
		},
		ScenarioMapElementLabel: {
			name:     "map-element-label",
			families: NewFamilySet(FamilyHost, FamilyInterface, FamilyInventory, FamilyItemFunction, FamilyUserMacro),
		},
		ScenarioInterfaceField: {
			name: "interface-field", families: NewFamilySet(FamilyUserMacro), internal: true,
		},
	}
)

func (s Scenario) def() scenarioDef {
	return scenarioDefs[s]
}

func (s Scenario) String() string {
	if d, ok := scenarioDefs[s]; ok {
		return d.name
	}
	return fmt.Sprintf("scenario(%d)", int(s))
}

// Families returns the macro families legal in this scenario
func (s Scenario) Families() FamilySet { return s.def().families }

// Indexed reports whether macros may carry a 1..9 suffix
func (s Scenario) Indexed() bool { return s.def().indexed }

// Linked reports whether the output is a fragment list with links
func (s Scenario) Linked() bool { return s.def().linked }

func (s Scenario) positional() bool { return s.def().positional }

func (s Scenario) valid() bool {
	_, ok := scenarioDefs[s]
	return ok
}

// Scenarios lists the public scenarios in declaration order
func Scenarios() []Scenario {
	out := make([]Scenario, 0, len(scenarioDefs))
	for s := ScenarioTriggerName; s <= ScenarioMapElementLabel; s++ {
		out = append(out, s)
	}
	return out
}

// ParseScenario maps a transport level name such as "trigger-url" to its Scenario
func ParseScenario(name string) (Scenario, error) {
	for s, d := range scenarioDefs {
		if d.name == name && !d.internal {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}
