package reader

import (
	"time"
)

// epochMillisThreshold separates second-resolution epochs from
// millisecond-resolution ones. Anything above it is treated as milliseconds.
const epochMillisThreshold = 1e12

// timestampLayouts are tried in order after RFC 3339 parsing fails.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999-07:00",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseEpoch converts a numeric epoch to UTC time, auto-detecting second vs
// millisecond resolution.
func ParseEpoch(ts float64) time.Time {
	if ts > epochMillisThreshold {
		ts = ts / 1000
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// ParseTimestamp parses the timestamp shapes seen across tool logs: numeric
// epochs (seconds or milliseconds), RFC 3339 strings, and a handful of
// near-ISO variants. It returns the zero time when nothing matches.
func ParseTimestamp(v any) time.Time {
	switch ts := v.(type) {
	case float64:
		return ParseEpoch(ts)
	case int64:
		return ParseEpoch(float64(ts))
	case int:
		return ParseEpoch(float64(ts))
	case string:
		return parseTimestampString(ts)
	}
	return time.Time{}
}

func parseTimestampString(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
