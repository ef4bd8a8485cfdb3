package tenancy

import "time"

// MonthStart returns the first instant of t's calendar month in UTC.
// All billing windows are computed in UTC regardless of the server or
// client timezone.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DayStart returns t truncated to its UTC calendar day. Ledger rows are
// bucketed by this value.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
