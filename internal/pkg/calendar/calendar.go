package calendar

import "time"

// Clock abstracts "now" so services and tests can control the current date.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant. Used by tests to freeze time.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AddDays returns t shifted by the given number of calendar days.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// AddMonths adds whole months and clamps the day of month so that e.g.
// Jan 31 + 1 month yields Feb 28/29 instead of rolling into March.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, months, 0)
	last := DaysInMonth(shifted.Year(), shifted.Month())
	if day > last {
		day = last
	}
	return time.Date(shifted.Year(), shifted.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// WithDayOfMonth moves t to the given day in its month, clamped to the month's
// last day. Installment due dates anchor to the enrollment's chosen due day.
func WithDayOfMonth(t time.Time, day int) time.Time {
	if day < 1 {
		day = 1
	}
	last := DaysInMonth(t.Year(), t.Month())
	if day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// FirstDayOfNextMonth returns midnight on the first day of the month after t.
func FirstDayOfNextMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
}

// DaysInMonth reports the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysPast reports how many whole calendar days due lies before today.
// Returns 0 when due is today or in the future.
func DaysPast(due, today time.Time) int {
	d := int(StartOfDay(today).Sub(StartOfDay(due)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// IsBeforeToday reports whether t falls on a calendar day before today.
func IsBeforeToday(t, today time.Time) bool {
	return StartOfDay(t).Before(StartOfDay(today))
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
