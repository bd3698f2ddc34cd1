// file: internal/macro/extractor.go

package macro

import "strings"

// matcher tries one grammar at pos and reports the token it matched
type matcher func(text string, pos int, families FamilySet, indexed bool) (Token, bool)

// matchers in tie-break order
var matchers = []matcher{
	matchItemFunction,
	matchUserMacro,
	matchFunctionID,
	matchSimple,
	matchReference,
}

// Extract returns the tokens found in text for the scenario, in ascending offset order.
// Substrings that look like macros but match no allowed grammar are not tokens.
func Extract(text string, scenario Scenario) []Token {
	return extract(text, scenario.Families(), scenario.Indexed())
}

func extract(text string, families FamilySet, indexed bool) []Token {
	var tokens []Token
	i := 0
	for i < len(text) {
		next := strings.IndexAny(text[i:], "{$")
		if next < 0 {
			break
		}
		i += next

		best, ok := longestMatch(text, i, families, indexed)
		if !ok {
			i++
			continue
		}
		tokens = append(tokens, best)
		i = best.End()
	}
	return tokens
}

func longestMatch(text string, pos int, families FamilySet, indexed bool) (Token, bool) {
	var (
		best  Token
		found bool
	)
	for _, m := range matchers {
		t, ok := m(text, pos, families, indexed)
		if !ok || !families.Has(t.Family) {
			continue
		}
		if !found || t.Length > best.Length {
			best, found = t, true
		}
	}
	return best, found
}

func isMacroNameChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// matchSimple matches catalogue macros such as {HOST.NAME} or {INVENTORY.OS3}
func matchSimple(text string, pos int, families FamilySet, indexed bool) (Token, bool) {
	if text[pos] != '{' {
		return Token{}, false
	}
	i := pos + 1
	for i < len(text) && isMacroNameChar(text[i]) {
		i++
	}
	if i == pos+1 || i >= len(text) || text[i] != '}' {
		return Token{}, false
	}

	entry, index, ok := lookupSimple(text[pos+1:i], indexed)
	if !ok {
		return Token{}, false
	}
	return Token{
		Family: entry.family,
		Raw:    text[pos : i+1],
		Start:  pos,
		Length: i + 1 - pos,
		Index:  index,
		Name:   entry.canonical,
	}, true
}

// matchUserMacro matches {$NAME}, {$NAME:context} and {$NAME:"quoted context"}
func matchUserMacro(text string, pos int, _ FamilySet, _ bool) (Token, bool) {
	ref, end, ok := parseUserMacro(text, pos)
	if !ok {
		return Token{}, false
	}
	context := ref.Context
	if ref.Regex {
		context = regexContextPrefix + context
	}
	return Token{
		Family:     FamilyUserMacro,
		Raw:        text[pos:end],
		Start:      pos,
		Length:     end - pos,
		Name:       ref.Name,
		Context:    context,
		HasContext: ref.HasContext,
	}, true
}

const regexContextPrefix = "regex:"

// userMacroRef is a parsed user macro reference or definition
type userMacroRef struct {
	Name       string
	Context    string
	HasContext bool
	Regex      bool
}

// parseUserMacro parses a user macro starting at pos and returns the offset past it
func parseUserMacro(text string, pos int) (userMacroRef, int, bool) {
	if pos+2 >= len(text) || text[pos] != '{' || text[pos+1] != '$' {
		return userMacroRef{}, 0, false
	}
	i := pos + 2
	for i < len(text) && isMacroNameChar(text[i]) {
		i++
	}
	if i == pos+2 || i >= len(text) {
		return userMacroRef{}, 0, false
	}

	ref := userMacroRef{Name: text[pos+1 : i]}
	switch text[i] {
	case '}':
		return ref, i + 1, true
	case ':':
	default:
		return userMacroRef{}, 0, false
	}

	ref.HasContext = true
	i = skipSpaces(text, i+1)
	if strings.HasPrefix(text[i:], regexContextPrefix) {
		ref.Regex = true
		i += len(regexContextPrefix)
	}

	if i < len(text) && text[i] == '"' {
		end := scanQuoted(text, i)
		if end < 0 {
			return userMacroRef{}, 0, false
		}
		ref.Context = unquote(text[i:end])
		i = skipSpaces(text, end)
		if i >= len(text) || text[i] != '}' {
			return userMacroRef{}, 0, false
		}
		return ref, i + 1, true
	}

	end := strings.IndexByte(text[i:], '}')
	if end < 0 {
		return userMacroRef{}, 0, false
	}
	ref.Context = text[i : i+end]
	return ref, i + end + 1, true
}

// matchFunctionID matches the stored expression reference {12345}
func matchFunctionID(text string, pos int, _ FamilySet, _ bool) (Token, bool) {
	if text[pos] != '{' {
		return Token{}, false
	}
	i := pos + 1
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	if i == pos+1 || i >= len(text) || text[i] != '}' {
		return Token{}, false
	}
	return Token{
		Family: FamilyFunctionID,
		Raw:    text[pos : i+1],
		Start:  pos,
		Length: i + 1 - pos,
		Name:   text[pos+1 : i],
	}, true
}

// matchReference matches the numbered key parameter references $1..$9
func matchReference(text string, pos int, _ FamilySet, _ bool) (Token, bool) {
	if text[pos] != '$' || pos+1 >= len(text) || text[pos+1] < '1' || text[pos+1] > '9' {
		return Token{}, false
	}
	return Token{
		Family: FamilyReference,
		Raw:    text[pos : pos+2],
		Start:  pos,
		Length: 2,
		Index:  int(text[pos+1] - '0'),
		Name:   text[pos+1 : pos+2],
	}, true
}

func isHostNameChar(c byte) bool {
	return isKeyNameChar(c) || c == ' '
}

// matchItemFunction matches {<host>:<key>.<func>(<params>)} where host is a
// technical host name or {HOST.HOST[n]}
func matchItemFunction(text string, pos int, families FamilySet, indexed bool) (Token, bool) {
	if text[pos] != '{' || pos+1 >= len(text) {
		return Token{}, false
	}
	t := Token{Family: FamilyItemFunction, Start: pos}

	i := pos + 1
	if text[i] == '{' {
		if !families.Has(FamilyHost) {
			return Token{}, false
		}
		ref, ok := matchSimple(text, i, families, indexed)
		if !ok || !isHostRefName(ref.Name) {
			return Token{}, false
		}
		t.HostRef = true
		t.Index = ref.Index
		t.Host = ref.Raw
		i = ref.End()
	} else {
		start := i
		for i < len(text) && isHostNameChar(text[i]) {
			i++
		}
		if i == start {
			return Token{}, false
		}
		t.Host = text[start:i]
	}

	if i >= len(text) || text[i] != ':' {
		return Token{}, false
	}
	i++

	keyStart := i
	nameEnd := scanKeyName(text, keyStart)
	if nameEnd == keyStart || nameEnd >= len(text) {
		return Token{}, false
	}

	var fnStart, fnEnd int
	if text[nameEnd] == '[' {
		paramsEnd := scanKeyParams(text, nameEnd, false, nil)
		if paramsEnd < 0 || paramsEnd >= len(text) || text[paramsEnd] != '.' {
			return Token{}, false
		}
		t.Key = text[keyStart:paramsEnd]
		fnStart = paramsEnd + 1
		fnEnd = fnStart
		for fnEnd < len(text) && text[fnEnd] >= 'a' && text[fnEnd] <= 'z' {
			fnEnd++
		}
	} else {
		dot := strings.LastIndexByte(text[keyStart:nameEnd], '.')
		if dot <= 0 {
			return Token{}, false
		}
		t.Key = text[keyStart : keyStart+dot]
		fnStart = keyStart + dot + 1
		fnEnd = nameEnd
		for j := fnStart; j < fnEnd; j++ {
			if text[j] < 'a' || text[j] > 'z' {
				return Token{}, false
			}
		}
	}
	if fnEnd == fnStart || fnEnd >= len(text) || text[fnEnd] != '(' {
		return Token{}, false
	}
	t.Function = text[fnStart:fnEnd]

	paramsEnd := scanFuncParams(text, fnEnd)
	if paramsEnd < 0 || paramsEnd >= len(text) || text[paramsEnd] != '}' {
		return Token{}, false
	}
	t.Params = text[fnEnd+1 : paramsEnd-1]

	t.Length = paramsEnd + 1 - pos
	t.Raw = text[pos : paramsEnd+1]
	t.Name = t.Function
	return t, true
}
