// Package recurrence computes next due dates for recurring tasks.
//
// A recurrence rule is a Frequency label plus a Params payload whose shape
// depends on the label. NextDueDate is pure and total: malformed or missing
// parameters degrade to the label's natural interval instead of failing.
package recurrence

import "strings"

// Frequency is the enumerated recurrence kind of a task.
type Frequency string

// Frequency labels. The string values are the canonical stored form.
const (
	OneTime      Frequency = "One Time"
	Daily        Frequency = "Daily"
	Weekly       Frequency = "Weekly"
	Monthly      Frequency = "Monthly"
	Quarterly    Frequency = "Quarterly"
	HalfYearly   Frequency = "Half-yearly"
	Yearly       Frequency = "Yearly"
	SpecificDays Frequency = "Specific Day's"
)

// aliases maps lowercased spellings seen in stored data to canonical labels.
var aliases = map[string]Frequency{
	"one time":       OneTime,
	"one-time":       OneTime,
	"onetime":        OneTime,
	"daily":          Daily,
	"weekly":         Weekly,
	"monthly":        Monthly,
	"quarterly":      Quarterly,
	"half-yearly":    HalfYearly,
	"half yearly":    HalfYearly,
	"halfyearly":     HalfYearly,
	"yearly":         Yearly,
	"specific day's": SpecificDays,
	"specific days":  SpecificDays,
	"specific-day's": SpecificDays,
	"specific-days":  SpecificDays,
}

// Frequencies returns every canonical label in display order.
func Frequencies() []Frequency {
	return []Frequency{OneTime, Daily, Weekly, Monthly, Quarterly, HalfYearly, Yearly, SpecificDays}
}

// ParseFrequency resolves a label or one of its aliases, case-insensitively.
func ParseFrequency(s string) (Frequency, bool) {
	f, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// Canonical returns the canonical spelling of f, or f unchanged when the
// label is unknown.
func (f Frequency) Canonical() Frequency {
	if c, ok := ParseFrequency(string(f)); ok {
		return c
	}
	return f
}

// Known reports whether f is a recognised label (after alias resolution).
func (f Frequency) Known() bool {
	_, ok := ParseFrequency(string(f))
	return ok
}

// Recurs reports whether completing a task with this frequency should
// produce a successor. Empty labels are treated as One Time.
func (f Frequency) Recurs() bool {
	if f == "" {
		return false
	}
	return f.Canonical() != OneTime
}

// String implements fmt.Stringer.
func (f Frequency) String() string { return string(f) }
