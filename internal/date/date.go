// Package date provides a calendar Date type that marshals as YYYY-MM-DD.
package date

import (
	"encoding/json"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"
)

const (
	format    = "2006-01-02"
	isoFormat = "2006-01-02T15:04:05.000Z07:00"
)

// Date represents a calendar date. The embedded time is always midnight UTC.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day. Out-of-range values normalize
// the way time.Date does.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day in t's own location.
func FromTime(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Today returns today's date in the given location (UTC when nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(time.Now().In(loc))
}

// Parse parses a YYYY-MM-DD string into a Date. Full RFC 3339 timestamps
// are accepted and truncated to their calendar day.
func Parse(s string) (Date, error) {
	if t, err := time.Parse(format, s); err == nil {
		return Date{t}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return FromTime(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(format)
}

// ISO returns the start of the day as a canonical UTC timestamp,
// e.g. 2024-03-11T00:00:00.000Z.
func (d Date) ISO() string {
	return d.UTC().Format(isoFormat)
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return New(d.Year(), d.Month(), d.Day()+n)
}

// AddMonths adds n calendar months. When the day does not exist in the
// target month it is clamped to that month's last day, so Jan 31 + 1 month
// is Feb 28 (or 29).
func (d Date) AddMonths(n int) Date {
	first := New(d.Year(), d.Month()+time.Month(n), 1)
	day := min(d.Day(), DaysIn(first.Year(), first.Month()))
	return New(first.Year(), first.Month(), day)
}

// AddYears adds n calendar years with the same clamping as AddMonths.
func (d Date) AddYears(n int) Date {
	return d.AddMonths(12 * n) //nolint:mnd // months per year
}

// WithDay returns the date moved to the given day of its month, clamped
// to the range 1..last day of the month.
func (d Date) WithDay(day int) Date {
	last := DaysIn(d.Year(), d.Month())
	day = max(1, min(day, last))
	return New(d.Year(), d.Month(), day)
}

// Equal reports whether two dates are the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.v3 Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
