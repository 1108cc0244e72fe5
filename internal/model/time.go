package model

import (
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatTimestamp renders t the way completion and deadline stamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// NormalizeDeadline re-encodes a parsable deadline as an ISO-8601 UTC stamp and
// keeps anything else verbatim.
func NormalizeDeadline(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	t, err := parseTime(raw)
	if err != nil {
		return raw
	}
	return FormatTimestamp(t)
}
