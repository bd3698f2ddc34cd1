package valuefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"macro-resolver/internal/entity"
)

func TestFormatValue(t *testing.T) {
	f := New()

	tests := []struct {
		name      string
		raw       string
		units     string
		valueType int
		want      string
	}{
		{"percent is not scaled", "42", "%", entity.ValueUnsigned, "42 %"},
		{"float rounds to two decimals", "3.14159", "", entity.ValueFloat, "3.14"},
		{"trailing zeros trimmed", "2.50", "", entity.ValueFloat, "2.5"},
		{"small values keep precision", "0.00123", "", entity.ValueFloat, "0.00123"},
		{"bytes use base 1024", "1536", "B", entity.ValueUnsigned, "1.5 KB"},
		{"bits per second use base 1000", "2500000", "bps", entity.ValueUnsigned, "2.5 Mbps"},
		{"below base keeps no prefix", "999", "bps", entity.ValueUnsigned, "999 bps"},
		{"ms not scaled", "15000", "ms", entity.ValueFloat, "15000 ms"},
		{"rpm not scaled", "3000", "rpm", entity.ValueUnsigned, "3000 rpm"},
		{"text items unchanged", "hello", "B", entity.ValueText, "hello"},
		{"non numeric unchanged", "n/a", "%", entity.ValueFloat, "n/a"},
		{"uptime", "90061", "uptime", entity.ValueUnsigned, "1 day, 01:01:01"},
		{"seconds", "3725", "s", entity.ValueFloat, "1h 2m 5s"},
		{"sub second", "0.25", "s", entity.ValueFloat, "250ms"},
		{"unixtime", "0", "unixtime", entity.ValueUnsigned, "1970.01.01 00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.FormatValue(tt.raw, tt.units, tt.valueType))
		})
	}
}

func TestFormatValueUnixtimeLocation(t *testing.T) {
	f := &Formatter{Location: time.FixedZone("UTC+2", 2*3600)}
	assert.Equal(t, "1970.01.01 02:00:00", f.FormatValue("0", "unixtime", entity.ValueUnsigned))
}

func TestApplyValueMap(t *testing.T) {
	f := New()
	vm := &entity.ValueMap{ID: "1", Name: "Service state", Mappings: map[string]string{"0": "Down", "1": "Up"}}

	assert.Equal(t, "Up (1)", f.ApplyValueMap("1", "1", vm))
	assert.Equal(t, "7", f.ApplyValueMap("7", "7", vm), "unmapped values pass through")
	assert.Equal(t, "1", f.ApplyValueMap("1", "1", nil))
}
