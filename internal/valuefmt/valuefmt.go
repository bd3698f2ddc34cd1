// file: internal/valuefmt/valuefmt.go

// Package valuefmt renders item values with their units and value maps.
package valuefmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"macro-resolver/internal/entity"
)

var (
	// units that are printed as-is, never scaled with a prefix
	unscaledUnits = map[string]struct{}{
		"%":   {},
		"ms":  {},
		"rpm": {},
		"RPM": {},
	}

	// units scaled with base 1024
	binaryUnits = map[string]struct{}{
		"B":   {},
		"Bps": {},
	}

	prefixes = []string{"", "K", "M", "G", "T", "P", "E", "Z", "Y"}
)

const unixtimeLayout = "2006.01.02 15:04:05"

// Formatter implements the value formatting used by the macro engine
type Formatter struct {
	// Location is used for unixtime values; UTC when nil
	Location *time.Location
}

func New() *Formatter {
	return &Formatter{}
}

// FormatValue renders raw with units. Text item types and non-numeric values
// are returned unchanged.
func (f *Formatter) FormatValue(raw, units string, valueType int) string {
	if valueType != entity.ValueFloat && valueType != entity.ValueUnsigned {
		return raw
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return raw
	}

	switch units {
	case "":
		return formatNumber(v)
	case "unixtime":
		return f.formatUnixtime(v)
	case "uptime":
		return formatUptime(v)
	case "s":
		return formatSeconds(v)
	}

	if _, ok := unscaledUnits[units]; ok {
		return formatNumber(v) + " " + units
	}

	base := 1000.0
	if _, ok := binaryUnits[units]; ok {
		base = 1024
	}
	scaled, prefix := scale(v, base)
	return formatNumber(scaled) + " " + prefix + units
}

// ApplyValueMap replaces a mapped raw value with "mapping (formatted)"
func (f *Formatter) ApplyValueMap(formatted, raw string, vm *entity.ValueMap) string {
	if vm == nil {
		return formatted
	}
	mapped, ok := vm.Mappings[strings.TrimSpace(raw)]
	if !ok {
		return formatted
	}
	return fmt.Sprintf("%s (%s)", mapped, formatted)
}

func scale(v, base float64) (float64, string) {
	abs := math.Abs(v)
	i := 0
	for abs >= base && i < len(prefixes)-1 {
		abs /= base
		v /= base
		i++
	}
	return v, prefixes[i]
}

// formatNumber rounds to 2 decimals, or 6 for values below 0.01, and trims zeros
func formatNumber(v float64) string {
	precision := 2
	if abs := math.Abs(v); abs > 0 && abs < 0.01 {
		precision = 6
	}
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

func (f *Formatter) formatUnixtime(v float64) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(int64(v), 0).In(loc).Format(unixtimeLayout)
}

// formatUptime renders "N days, HH:MM:SS"
func formatUptime(v float64) string {
	secs := int64(math.Abs(v))
	days := secs / 86400
	secs %= 86400
	clock := fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	if days == 0 {
		return sign + clock
	}
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%s%d %s, %s", sign, days, unit, clock)
}

// formatSeconds renders up to the three largest non-zero units, e.g. "1d 2h 5m"
func formatSeconds(v float64) string {
	abs := math.Abs(v)
	if abs < 1 {
		if abs == 0 {
			return "0s"
		}
		return formatNumber(v*1000) + "ms"
	}

	units := []struct {
		suffix string
		size   float64
	}{
		{"y", 365 * 86400}, {"M", 30 * 86400}, {"d", 86400}, {"h", 3600}, {"m", 60}, {"s", 1},
	}
	var parts []string
	rest := math.Floor(abs)
	for _, u := range units {
		if len(parts) == 3 {
			break
		}
		n := math.Floor(rest / u.size)
		if n == 0 {
			continue
		}
		parts = append(parts, strconv.FormatFloat(n, 'f', 0, 64)+u.suffix)
		rest -= n * u.size
	}
	out := strings.Join(parts, " ")
	if v < 0 {
		out = "-" + out
	}
	return out
}
