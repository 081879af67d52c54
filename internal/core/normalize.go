package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValidateHeader checks that row is exactly Title,Description,Duration,Level.
func ValidateHeader(row []string) error {
	if len(row) != len(CSVHeader) {
		return fmt.Errorf("%w: got %q, want %q", ErrInvalidHeader, row, CSVHeader)
	}
	for i, want := range CSVHeader {
		if row[i] != want {
			return fmt.Errorf("%w: got %q, want %q", ErrInvalidHeader, row, CSVHeader)
		}
	}
	return nil
}

// NormalizeRow maps a CSV data row to a Talk. It returns false when the
// title is empty; it never fails otherwise.
func NormalizeRow(row []string) (Talk, bool) {
	title := strings.TrimSpace(cell(row, 0))
	if title == "" {
		return Talk{}, false
	}

	return Talk{
		Title:       title,
		Description: orDefault(strings.TrimSpace(cell(row, 1)), DefaultDescription),
		Duration:    ParseDuration(cell(row, 2)),
		Level:       orDefault(strings.TrimSpace(cell(row, 3)), DefaultLevel),
	}, true
}

// NormalizeAPITalk maps a decoded JSON talk object to a Talk using the same
// defaults as NormalizeRow. Non-string text fields are ignored. Duration may
// be a number or numeric string; when absent it is derived from Sessionize
// startsAt/endsAt timestamps.
func NormalizeAPITalk(raw map[string]any) (Talk, bool) {
	title := strings.TrimSpace(stringField(raw, "title"))
	if title == "" {
		return Talk{}, false
	}

	duration, ok := durationValue(raw["duration"])
	if !ok {
		duration = spanMinutes(stringField(raw, "startsAt"), stringField(raw, "endsAt"))
	}

	return Talk{
		Title:       title,
		Description: orDefault(strings.TrimSpace(stringField(raw, "description")), DefaultDescription),
		Duration:    duration,
		Level:       orDefault(strings.TrimSpace(stringField(raw, "level")), DefaultLevel),
		Pitch:       stringField(raw, "pitch"),
		Notes:       stringField(raw, "notes"),
	}, true
}

// NormalizeTalk validates a manually entered talk. The title is trimmed and
// required; the level defaults to Beginner; the description is kept as given.
func NormalizeTalk(t Talk) (Talk, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return Talk{}, ErrTitleRequired
	}
	t.Level = orDefault(strings.TrimSpace(t.Level), DefaultLevel)
	if t.Duration < 0 {
		t.Duration = 0
	}
	return t, nil
}

// ParseDuration parses the leading integer of s, so "45 min" is 45.
// Unparsable and negative values yield 0.
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// durationValue coerces a JSON duration value. The bool is false when the
// value is absent or null.
func durationValue(v any) (int, bool) {
	switch d := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		if n, err := d.Int64(); err == nil {
			return clampDuration(float64(n)), true
		}
		f, err := d.Float64()
		if err != nil {
			return 0, true
		}
		return clampDuration(f), true
	case float64:
		return clampDuration(d), true
	case int:
		return clampDuration(float64(d)), true
	case string:
		return ParseDuration(d), true
	default:
		return 0, true
	}
}

func clampDuration(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// Sessionize timestamps are local times without an offset.
var sessionTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func spanMinutes(startsAt, endsAt string) int {
	if startsAt == "" || endsAt == "" {
		return 0
	}
	start, ok := parseSessionTime(startsAt)
	if !ok {
		return 0
	}
	end, ok := parseSessionTime(endsAt)
	if !ok || !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

func parseSessionTime(s string) (time.Time, bool) {
	for _, layout := range sessionTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func stringField(raw map[string]any, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
