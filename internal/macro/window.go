// file: internal/macro/window.go

package macro

import (
	"strconv"
	"strings"
	"time"
)

var windowUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseWindow parses a look-back window such as "300", "5m" or "1w".
// A missing suffix means seconds. Zero, negative and malformed windows are rejected.
func ParseWindow(literal string) (time.Duration, bool) {
	s := strings.TrimSpace(unquote(strings.TrimSpace(literal)))
	if s == "" {
		return 0, false
	}

	unit := time.Second
	if d, ok := windowUnits[s[len(s)-1]]; ok {
		unit = d
		s = s[:len(s)-1]
	}
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > int64(1<<62)/int64(unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// firstParam returns the first comma separated function parameter
func firstParam(params string) string {
	if i := strings.IndexByte(params, ','); i >= 0 {
		return params[:i]
	}
	return params
}
