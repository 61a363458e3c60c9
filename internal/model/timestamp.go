package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for event datetimes. Values without an offset are read in
// time.Local, matching how the events file has always been interpreted.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02",
	}
)

// Timestamp is an ISO-8601 datetime that keeps its original text so the
// events file round-trips unchanged.
type Timestamp struct {
	t   time.Time
	raw string
}

// ParseTimestamp parses an ISO-8601 date or datetime.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, fmt.Errorf("timestamp: empty value")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t: t, raw: s}, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{t: t, raw: s}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("timestamp: %q is not an ISO-8601 datetime", s)
}

// MustTimestamp is ParseTimestamp for literals; it panics on bad input.
func MustTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

// TimestampOf wraps t, rendering it as RFC 3339 with milliseconds in UTC.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{t: t, raw: t.UTC().Format("2006-01-02T15:04:05.000Z07:00")}
}

func (ts Timestamp) Time() time.Time { return ts.t }

func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

func (ts Timestamp) String() string { return ts.raw }

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.raw)
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
