package r4r

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Values above this are taken to be unix milliseconds rather than seconds.
const millisThreshold = 1e11

// maxUnixMillis is 9999-12-31T23:59:59.999Z. Larger values are rejected.
const maxUnixMillis = 253402300799999

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeTimestamp converts an upstream timestamp into a UTC time. It
// accepts unix seconds or milliseconds (as numbers or numeric strings) and
// ISO-8601 strings. The second return value is false when nothing could be
// parsed.
func NormalizeTimestamp(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v.UTC(), !v.IsZero()
	case float64:
		return fromUnixNumber(v)
	case float32:
		return fromUnixNumber(float64(v))
	case int:
		return fromUnixNumber(float64(v))
	case int64:
		return fromUnixNumber(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromUnixNumber(f)
	case json.RawMessage:
		return normalizeRaw(v)
	case string:
		return parseTimestampString(v)
	}
	return time.Time{}, false
}

func normalizeRaw(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseTimestampString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return fromUnixNumber(f)
	}
	return time.Time{}, false
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnixNumber(f)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func fromUnixNumber(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, false
	}
	ms := f
	if f < millisThreshold {
		ms = f * 1000
	}
	if ms > maxUnixMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// minutesBetween returns |b - a| in minutes, computed on epoch milliseconds.
func minutesBetween(a, b time.Time) float64 {
	diff := b.UnixMilli() - a.UnixMilli()
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / 60000
}
