package core

import "time"

// DaysInMonth is the day before the first day of the following month.
func DaysInMonth(year, month int) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, 0).AddDate(0, 0, -1).Day()
}

// MonthRange returns [first day of month, first day of next month).
func MonthRange(year, month int) (Date, Date) {
	start := NewDate(year, month, 1)
	return start, Date{Time: start.AddDate(0, 1, 0)}
}

// YearRange returns [Jan 1, Jan 1 of the next year).
func YearRange(year int) (Date, Date) {
	return NewDate(year, 1, 1), NewDate(year+1, 1, 1)
}

// SameMonth reports whether d falls in the calendar month of t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == int(t.Month())
}
