// file: internal/macro/token.go

package macro

import "strings"

// Family classifies a macro occurrence by the resolver that serves it
type Family int

const (
	FamilyHost Family = iota + 1
	FamilyInterface
	FamilyInventory
	FamilyItemFunction
	FamilyUserMacro
	FamilyPositional
	FamilyReference
	FamilyFunctionID
	FamilyTrigger
)

var familyNames = map[Family]string{
	FamilyHost:         "host",
	FamilyInterface:    "interface",
	FamilyInventory:    "inventory",
	FamilyItemFunction: "item-function",
	FamilyUserMacro:    "user-macro",
	FamilyPositional:   "positional",
	FamilyReference:    "reference",
	FamilyFunctionID:   "function-id",
	FamilyTrigger:      "trigger",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the family by name
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// FamilySet is a bitmask of allowed families
type FamilySet uint16

func NewFamilySet(families ...Family) FamilySet {
	var s FamilySet
	for _, f := range families {
		s |= 1 << uint(f)
	}
	return s
}

func (s FamilySet) Has(f Family) bool {
	return s&(1<<uint(f)) != 0
}

// Families lists the members in declaration order
func (s FamilySet) Families() []Family {
	var out []Family
	for f := FamilyHost; f <= FamilyTrigger; f++ {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FamilySet) String() string {
	names := make([]string, 0, 9)
	for _, f := range s.Families() {
		names = append(names, f.String())
	}
	return strings.Join(names, ",")
}

// Token is one matched macro occurrence. Start and Length are byte offsets
// into the source string the token was extracted from.
type Token struct {
	Family Family
	Raw    string
	Start  int
	Length int

	// Index is 0 when no suffix was written, 1..9 otherwise
	Index int

	// Name is the canonical catalogue name (HOST.NAME, ITEM.LASTVALUE, INVENTORY.OS.FULL),
	// the user macro name ($TIMEOUT), the function id digits or the reference digit.
	Name string

	// Item function parts. HostRef is set when the host was written as {HOST.HOST[n]}.
	Host     string
	HostRef  bool
	Key      string
	Function string
	Params   string

	// User macro context
	Context    string
	HasContext bool

	Scope string
}

// End returns the offset just past the token
func (t Token) End() int {
	return t.Start + t.Length
}

// Unique returns the tokens with distinct raw text, keeping first occurrences
func Unique(tokens []Token) []Token {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t.Raw]; ok {
			continue
		}
		seen[t.Raw] = struct{}{}
		out = append(out, t)
	}
	return out
}
