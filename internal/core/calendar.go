// Package core provides the domain model for the goal-pacing calendar:
// calendar math over a working-day mask, goal definitions and ledger
// entry validation. Everything here is pure; persistence and transport
// live elsewhere.
package core

import "time"

// DayKey is the canonical ISO key (YYYY-MM-DD) for one local calendar day.
const DayKeyLayout = "2006-01-02"

// WeekdayMask flags which weekdays (Sunday=0 .. Saturday=6) count as working.
type WeekdayMask [7]bool

// DefaultWeekdayMask enables Monday through Saturday.
func DefaultWeekdayMask() WeekdayMask {
	return WeekdayMask{false, true, true, true, true, true, true}
}

// Working reports whether the given weekday is enabled in the mask.
func (m WeekdayMask) Working(d time.Weekday) bool {
	return m[int(d)]
}

// Count returns the number of enabled weekdays.
func (m WeekdayMask) Count() int {
	n := 0
	for _, on := range m {
		if on {
			n++
		}
	}
	return n
}

// StartOfDay normalizes t to 00:00:00.000 in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay normalizes t to 23:59:59.999 in its own location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DaysInMonth returns the calendar length of the given month (1-12).
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WorkingDaysInRange counts the dates in [StartOfDay(start), EndOfDay(end)]
// whose weekday is enabled in mask. A zero bound or end before start yields 0.
// The range is walked day by day rather than computed in closed form so that
// calendar irregularities such as DST transitions cannot skew the count.
func WorkingDaysInRange(start, end time.Time, mask WeekdayMask) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	s := StartOfDay(start)
	e := EndOfDay(end)
	if e.Before(s) {
		return 0
	}
	count := 0
	for cur := s; !cur.After(e); cur = cur.AddDate(0, 0, 1) {
		if mask.Working(cur.Weekday()) {
			count++
		}
	}
	return count
}

// WeekBounds returns the Sunday-start week containing t.
func WeekBounds(t time.Time) (start, end time.Time) {
	s := StartOfDay(t).AddDate(0, 0, -int(t.Weekday()))
	return s, s.AddDate(0, 0, 6)
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year, month int, loc *time.Location) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// QuarterBounds returns the fiscal quarter containing the given month.
// Quarters are the three-month blocks starting in January, April, July
// and October.
func QuarterBounds(year, month int, loc *time.Location) (start, end time.Time) {
	qm := ((month - 1) / 3 * 3) + 1
	start = time.Date(year, time.Month(qm), 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 3, -1)
	return start, end
}

// FormatDay renders t as its ISO day key.
func FormatDay(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDay parses an ISO day key into a local midnight time.
func ParseDay(key string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, key, time.Local)
}
