// file: internal/macro/substitute.go

package macro

import (
	"sort"
	"strings"
)

// FragmentKind distinguishes plain text from link fragments
type FragmentKind int

const (
	FragmentText FragmentKind = iota
	FragmentLink
)

func (k FragmentKind) String() string {
	if k == FragmentLink {
		return "link"
	}
	return "text"
}

// Fragment is one piece of structured output
type Fragment struct {
	Kind   FragmentKind `json:"-"`
	Text   string       `json:"text"`
	ItemID string       `json:"itemid,omitempty"`
}

func textFragment(s string) Fragment {
	return Fragment{Kind: FragmentText, Text: s}
}

// Substitute walks the tokens in ascending offset order over the immutable
// source and emits literal slices and resolved values. Tokens without a value
// become the marker. Adjacent text fragments are merged.
func Substitute(src string, tokens []Token, values map[string]Fragment, marker string) []Fragment {
	if len(tokens) == 0 {
		if src == "" {
			return nil
		}
		return []Fragment{textFragment(src)}
	}

	ordered := nonOverlapping(tokens)
	out := make([]Fragment, 0, 2*len(ordered)+1)
	emit := func(f Fragment) {
		if f.Kind == FragmentText {
			if f.Text == "" {
				return
			}
			if n := len(out); n > 0 && out[n-1].Kind == FragmentText {
				out[n-1].Text += f.Text
				return
			}
		}
		out = append(out, f)
	}

	cursor := 0
	for _, t := range ordered {
		emit(textFragment(src[cursor:t.Start]))
		if v, ok := values[t.Raw]; ok {
			emit(v)
		} else {
			emit(textFragment(marker))
		}
		cursor = t.End()
	}
	emit(textFragment(src[cursor:]))
	return out
}

// Flatten joins fragments into a plain string
func Flatten(fragments []Fragment) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.Text)
	}
	return b.String()
}

// SubstituteString is the flat output mode of Substitute
func SubstituteString(src string, tokens []Token, values map[string]Fragment, marker string) string {
	if len(tokens) == 0 {
		return src
	}
	return Flatten(Substitute(src, tokens, values, marker))
}

// SpliceBackward rewrites src by applying replacements in descending offset
// order, so earlier offsets stay valid while later text is edited. It yields
// the same result as SubstituteString.
func SpliceBackward(src string, tokens []Token, values map[string]Fragment, marker string) string {
	ordered := nonOverlapping(tokens)
	buf := []byte(src)
	for i := len(ordered) - 1; i >= 0; i-- {
		t := ordered[i]
		value := marker
		if v, ok := values[t.Raw]; ok {
			value = v.Text
		}
		tail := append([]byte(value), buf[t.End():]...)
		buf = append(buf[:t.Start], tail...)
	}
	return string(buf)
}

// nonOverlapping orders tokens by offset and drops any token that overlaps an earlier one
func nonOverlapping(tokens []Token) []Token {
	ordered := make([]Token, len(tokens))
	copy(ordered, tokens)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	out := ordered[:0]
	cursor := 0
	for _, t := range ordered {
		if t.Start < cursor {
			continue
		}
		out = append(out, t)
		cursor = t.End()
	}
	return out
}
