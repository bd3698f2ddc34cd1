// file: internal/macro/keyparser.go

package macro

import "strings"

func isKeyNameChar(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c == '_' || c == '.' || c == '-'
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// scanKeyName returns the offset just past [0-9A-Za-z_.-]+ starting at pos
func scanKeyName(s string, pos int) int {
	i := pos
	for i < len(s) && isKeyNameChar(s[i]) {
		i++
	}
	return i
}

// scanQuoted expects s[pos] == '"' and returns the offset just past the closing quote
func scanQuoted(s string, pos int) int {
	for i := pos + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && s[i+1] == '"' {
				i++
			}
		case '"':
			return i + 1
		}
	}
	return -1
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}

// scanKeyParams expects s[pos] == '[' and returns the offset just past the matching ']'.
// Parameters are quoted, unquoted or a single level of nested array. When out is
// non-nil the top level parameter values are appended to it.
func scanKeyParams(s string, pos int, nested bool, out *[]string) int {
	i := pos + 1
	for {
		i = skipSpaces(s, i)
		if i >= len(s) {
			return -1
		}

		start := i
		var value string
		switch s[i] {
		case '"':
			end := scanQuoted(s, i)
			if end < 0 {
				return -1
			}
			value = unquote(s[start:end])
			i = skipSpaces(s, end)
		case '[':
			if nested {
				return -1
			}
			end := scanKeyParams(s, i, true, nil)
			if end < 0 {
				return -1
			}
			value = s[start+1 : end-1]
			i = skipSpaces(s, end)
		default:
			for i < len(s) && s[i] != ',' && s[i] != ']' {
				i++
			}
			value = s[start:i]
		}

		if i >= len(s) {
			return -1
		}
		if out != nil {
			*out = append(*out, value)
		}

		switch s[i] {
		case ',':
			i++
		case ']':
			return i + 1
		default:
			return -1
		}
	}
}

// scanFuncParams expects s[pos] == '(' and returns the offset just past the closing ')'
func scanFuncParams(s string, pos int) int {
	for i := pos + 1; i < len(s); i++ {
		switch s[i] {
		case '"':
			end := scanQuoted(s, i)
			if end < 0 {
				return -1
			}
			i = end - 1
		case ')':
			return i + 1
		}
	}
	return -1
}

// ParseKeyParams splits an item key such as net.if.in["eth0",bytes] into its
// name and top level parameters. Quoted parameters are unquoted, nested arrays
// are returned without their brackets.
func ParseKeyParams(key string) (string, []string, bool) {
	end := scanKeyName(key, 0)
	if end == 0 {
		return "", nil, false
	}
	if end == len(key) {
		return key, nil, true
	}
	if key[end] != '[' {
		return "", nil, false
	}

	var params []string
	if scanKeyParams(key, end, false, &params) != len(key) {
		return "", nil, false
	}
	return key[:end], params, true
}
