package unify

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// millisThreshold separates epoch seconds from epoch milliseconds. No post
// plausibly carries a seconds value this large (year 33658).
const millisThreshold = 1e12

// NormalizeTime converts a source timestamp into a UTC time.
//
// Accepted inputs are epoch numbers (seconds, or milliseconds when the
// magnitude exceeds 10^12), numeric strings, ISO-like strings and time.Time values.
// Strings without zone information are read as UTC. The second return
// value is false when v is absent or cannot be parsed. Epoch 0 and
// pre-1970 epochs are valid instants.
func NormalizeTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return NormalizeTime(*t)
	case int:
		return fromEpochInt(int64(t))
	case int32:
		return fromEpochInt(int64(t))
	case int64:
		return fromEpochInt(t)
	case uint:
		return fromEpochInt(int64(t))
	case uint32:
		return fromEpochInt(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return time.Time{}, false
		}
		return fromEpochInt(int64(t))
	case float32:
		return fromEpochFloat(float64(t))
	case float64:
		return fromEpochFloat(t)
	case json.Number:
		return parseTimeString(t.String())
	case string:
		return parseTimeString(t)
	default:
		return time.Time{}, false
	}
}

func fromEpochInt(n int64) (time.Time, bool) {
	if n > millisThreshold || n < -millisThreshold {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

func fromEpochFloat(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	if math.Abs(f) > millisThreshold {
		f /= 1000
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), true
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Epoch values sometimes arrive as strings (scraped attributes, JSON numbers).
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromEpochInt(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochFloat(f)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
