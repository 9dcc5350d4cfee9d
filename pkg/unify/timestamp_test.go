package unify

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTime(t *testing.T) {
	want := time.Unix(1700000000, 0).UTC()
	ist := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name string
		in   any
		want time.Time
		ok   bool
	}{
		{"nil", nil, time.Time{}, false},
		{"epoch seconds int", 1700000000, want, true},
		{"epoch seconds float", float64(1700000000), want, true},
		{"epoch millis int64", int64(1700000000000), want, true},
		{"epoch millis float", float64(1700000000000), want, true},
		{"fractional seconds", 1700000000.5, want.Add(500 * time.Millisecond), true},
		{"numeric string", "1700000000", want, true},
		{"json number millis", json.Number("1700000000000"), want, true},
		{"rfc3339 utc", "2023-11-14T22:13:20Z", want, true},
		{"rfc3339 offset", "2023-11-15T03:43:20+05:30", want, true},
		{"naive string is utc", "2023-11-14 22:13:20", want, true},
		{"time with zone", want.In(ist), want, true},
		{"zero time", time.Time{}, time.Time{}, false},
		{"garbage", "yesterday-ish", time.Time{}, false},
		{"empty string", "   ", time.Time{}, false},
		{"epoch zero", 0, time.Unix(0, 0).UTC(), true},
		{"epoch zero string", "0", time.Unix(0, 0).UTC(), true},
		{"negative seconds", -5, time.Unix(-5, 0).UTC(), true},
		{"negative fractional", -1.5, time.Unix(-2, 500_000_000).UTC(), true},
		{"negative millis", int64(-1700000000000), time.Unix(-1700000000, 0).UTC(), true},
		{"infinity", math.Inf(-1), time.Time{}, false},
		{"nan", math.NaN(), time.Time{}, false},
		{"unsupported type", true, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
