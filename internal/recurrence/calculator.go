package recurrence

import (
	"time"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
)

const daysPerWeek = 7

// NextDueDate returns the next due date after ref for the given rule.
//
// ref is truncated to its calendar day in its own location first; the result
// is the start of the resulting day in UTC. Params that do not match freq, or
// that are missing fields, fall back to the label's natural interval. Unknown
// labels and One Time return the truncated ref unchanged.
func NextDueDate(ref time.Time, freq Frequency, p Params) date.Date {
	d := date.FromTime(ref)

	switch freq.Canonical() {
	case Daily:
		return d.AddDays(1)
	case Weekly:
		wp, _ := p.(WeeklyParams)
		return nextWeekly(d, wp)
	case Monthly:
		mp, _ := p.(MonthlyParams)
		next := d.AddMonths(1)
		if mp.DateOfMonth > 0 {
			next = next.WithDay(mp.DateOfMonth)
		}
		return next
	case Quarterly:
		return d.AddMonths(3) //nolint:mnd // months per quarter
	case HalfYearly:
		return d.AddMonths(6) //nolint:mnd // months per half year
	case Yearly:
		return d.AddYears(1)
	case SpecificDays:
		sp, _ := p.(SpecificDayParams)
		return nextSpecificDay(d, sp)
	default:
		return d
	}
}

// nextWeekly returns the next date falling on the configured weekday,
// never d itself. Without a usable weekday it advances one week.
func nextWeekly(d date.Date, p WeeklyParams) date.Date {
	target, ok := ParseWeekday(p.DayOfWeek)
	if !ok {
		return d.AddDays(daysPerWeek)
	}
	offset := (int(target) - int(d.Weekday()) + daysPerWeek) % daysPerWeek
	if offset == 0 {
		offset = daysPerWeek
	}
	return d.AddDays(offset)
}

// nextSpecificDay finds the nth (or last) weekday in the month after d.
func nextSpecificDay(d date.Date, p SpecificDayParams) date.Date {
	day, dayOK := ParseWeekday(p.Day)
	if p.Occurrence == "" || !dayOK {
		return d.AddDays(1)
	}
	n, last, ok := ParseOccurrence(p.Occurrence)
	if !ok {
		n = 1
	}

	first := date.New(d.Year(), d.Month()+1, 1)
	hit := first.AddDays(weekdayOffset(first.Weekday(), day))

	if last {
		for next := hit.AddDays(daysPerWeek); next.Month() == first.Month(); next = next.AddDays(daysPerWeek) {
			hit = next
		}
		return hit
	}
	return hit.AddDays((n - 1) * daysPerWeek)
}

// weekdayOffset returns the days from one weekday forward to another (0-6).
func weekdayOffset(from, to time.Weekday) int {
	return (int(to) - int(from) + daysPerWeek) % daysPerWeek
}
