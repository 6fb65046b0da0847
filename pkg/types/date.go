package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date accepts either a calendar date ("2025-08-17") or an RFC3339 instant and keeps
// the instant as given. Day returns the UTC midnight used for storage.
type Date struct {
	time.Time
}

// ParseDate parses a calendar date or an RFC3339 instant.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return Date{Time: t.UTC()}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", value)
	}
	return Date{Time: t.UTC()}, nil
}

// NewDate wraps t as a Date.
func NewDate(t time.Time) Date {
	return Date{Time: t.UTC()}
}

// Day truncates to UTC midnight.
func (d Date) Day() time.Time {
	return StartOfDay(d.Time)
}

// StartOfDay returns UTC midnight of the day t falls on in UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON renders the calendar date.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.UTC().Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string")
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NullableDate tracks whether a date field was present in JSON and whether it was null.
type NullableDate struct {
	Valid bool
	Value *Date
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableDate) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		n.Valid = true
		n.Value = nil
		return nil
	}
	var parsed Date
	if err := parsed.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	n.Valid = true
	n.Value = &parsed
	return nil
}
