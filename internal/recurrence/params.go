package recurrence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
)

// Params is the frequency-specific payload of a recurrence rule. Each label
// has its own variant; Empty returns the zero variant for a label.
type Params interface {
	// Frequency returns the label this variant belongs to.
	Frequency() Frequency
	params()
}

// DailyParams carries nothing; a daily rule always advances one day.
type DailyParams struct{}

// WeeklyParams pins a weekly rule to a weekday name ("Monday").
type WeeklyParams struct {
	DayOfWeek string `json:"dayOfWeek,omitempty" yaml:"dayOfWeek,omitempty"`
}

// MonthlyParams pins a monthly rule to a day of the month (1-31).
type MonthlyParams struct {
	DateOfMonth int `json:"dateOfMonth,omitempty" yaml:"dateOfMonth,omitempty"`
}

// IntervalParams belongs to Quarterly, Half-yearly and Yearly rules.
// FirstDate records the first occurrence chosen at creation time.
type IntervalParams struct {
	Every     Frequency `json:"-" yaml:"-"`
	FirstDate string    `json:"firstDate,omitempty" yaml:"firstDate,omitempty"`
}

// SpecificDayParams describes rules like "2nd Tuesday of the month".
// Period is kept for display; the next occurrence is always searched in the
// month following the reference date.
type SpecificDayParams struct {
	Occurrence string `json:"occurrence,omitempty" yaml:"occurrence,omitempty"`
	Day        string `json:"day,omitempty" yaml:"day,omitempty"`
	Period     string `json:"period,omitempty" yaml:"period,omitempty"`
}

// OneTimeParams carries the explicit due date of a one-off task.
type OneTimeParams struct {
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
}

func (DailyParams) Frequency() Frequency       { return Daily }
func (WeeklyParams) Frequency() Frequency      { return Weekly }
func (MonthlyParams) Frequency() Frequency     { return Monthly }
func (p IntervalParams) Frequency() Frequency  { return p.Every }
func (SpecificDayParams) Frequency() Frequency { return SpecificDays }
func (OneTimeParams) Frequency() Frequency     { return OneTime }

func (DailyParams) params()       {}
func (WeeklyParams) params()      {}
func (MonthlyParams) params()     {}
func (IntervalParams) params()    {}
func (SpecificDayParams) params() {}
func (OneTimeParams) params()     {}

// Empty returns the zero-valued variant for a label, or nil for unknown labels.
func Empty(f Frequency) Params {
	switch f = f.Canonical(); f {
	case Daily:
		return DailyParams{}
	case Weekly:
		return WeeklyParams{}
	case Monthly:
		return MonthlyParams{}
	case Quarterly, HalfYearly, Yearly:
		return IntervalParams{Every: f}
	case SpecificDays:
		return SpecificDayParams{}
	case OneTime:
		return OneTimeParams{}
	default:
		return nil
	}
}

// Decode parses a serialized payload for the given label. The payload may
// be a JSON object or a JSON string containing an object (double-encoded
// rows). Anything unparseable yields Empty(f).
func Decode(f Frequency, data []byte) Params {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Empty(f)
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Empty(f)
		}
		return Decode(f, []byte(inner))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Empty(f)
	}
	return FromMap(f, m)
}

// FromMap builds the variant for f from a loosely typed mapping, as
// produced by JSON or YAML decoding. Unknown keys are ignored.
func FromMap(f Frequency, m map[string]any) Params {
	p := Empty(f)
	if m == nil {
		return p
	}
	switch v := p.(type) {
	case WeeklyParams:
		v.DayOfWeek = stringField(m, "dayOfWeek")
		return v
	case MonthlyParams:
		v.DateOfMonth = intField(m, "dateOfMonth")
		return v
	case IntervalParams:
		v.FirstDate = stringField(m, "firstDate")
		return v
	case SpecificDayParams:
		v.Occurrence = stringField(m, "occurrence")
		v.Day = stringField(m, "day")
		v.Period = stringField(m, "period")
		return v
	case OneTimeParams:
		v.Date = stringField(m, "date")
		return v
	}
	return p
}

// Normalize returns p adjusted to f: nil becomes Empty(f) and interval
// params take f as their label. Params of a different label are replaced by
// Empty(f).
func Normalize(f Frequency, p Params) Params {
	f = f.Canonical()
	if p == nil {
		return Empty(f)
	}
	if ip, ok := p.(IntervalParams); ok && (f == Quarterly || f == HalfYearly || f == Yearly) {
		ip.Every = f
		return ip
	}
	if p.Frequency().Canonical() != f {
		return Empty(f)
	}
	return p
}

// Marshal serializes params as a JSON object. Nil params encode as {}.
func Marshal(p Params) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Validation errors returned by Validate.
var (
	ErrMissingField = errors.New("missing required parameter")
	ErrInvalidField = errors.New("invalid parameter")
)

// Validate reports whether p is structurally valid for f. NextDueDate never
// calls it; it backs the stricter creation mode.
func Validate(f Frequency, p Params) error {
	if !f.Known() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidField, f)
	}
	f = f.Canonical()
	if p == nil {
		p = Empty(f)
	}
	if ip, ok := p.(IntervalParams); ok && ip.Every == "" {
		p = Normalize(f, ip)
	}
	if p.Frequency().Canonical() != f {
		return fmt.Errorf("%w: %s parameters given for %s", ErrInvalidField, p.Frequency(), f)
	}
	switch v := p.(type) {
	case WeeklyParams:
		if v.DayOfWeek == "" {
			return fmt.Errorf("%w: dayOfWeek", ErrMissingField)
		}
		if _, ok := ParseWeekday(v.DayOfWeek); !ok {
			return fmt.Errorf("%w: dayOfWeek %q", ErrInvalidField, v.DayOfWeek)
		}
	case MonthlyParams:
		if v.DateOfMonth < 0 || v.DateOfMonth > 31 {
			return fmt.Errorf("%w: dateOfMonth %d", ErrInvalidField, v.DateOfMonth)
		}
	case SpecificDayParams:
		if v.Occurrence == "" || v.Day == "" {
			return fmt.Errorf("%w: occurrence and day", ErrMissingField)
		}
		if _, _, ok := ParseOccurrence(v.Occurrence); !ok {
			return fmt.Errorf("%w: occurrence %q", ErrInvalidField, v.Occurrence)
		}
		if _, ok := ParseWeekday(v.Day); !ok {
			return fmt.Errorf("%w: day %q", ErrInvalidField, v.Day)
		}
	case IntervalParams:
		if v.FirstDate != "" {
			if _, err := date.Parse(v.FirstDate); err != nil {
				return fmt.Errorf("%w: firstDate: %w", ErrInvalidField, err)
			}
		}
	case OneTimeParams:
		if v.Date != "" {
			if _, err := date.Parse(v.Date); err != nil {
				return fmt.Errorf("%w: date: %w", ErrInvalidField, err)
			}
		}
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday resolves a weekday name or three-letter abbreviation.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

var occurrences = map[string]int{
	"1st": 1, "first": 1, "1": 1,
	"2nd": 2, "second": 2, "2": 2,
	"3rd": 3, "third": 3, "3": 3,
	"4th": 4, "fourth": 4, "4": 4,
}

// ParseOccurrence resolves "1st".."4th" to 1..4, or "Last" to last=true.
func ParseOccurrence(s string) (n int, last bool, ok bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "last" {
		return 0, true, true
	}
	n, ok = occurrences[key]
	return n, false, ok
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v) //nolint:gosec // day of month
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
