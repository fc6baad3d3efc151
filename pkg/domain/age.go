package domain

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// AgeOn returns the number of whole years elapsed between birthDate and on.
// A birthday later in the year than on has not happened yet, so it does not count.
func AgeOn(birthDate, on time.Time) int {
	by, bm, bd := birthDate.Date()
	oy, om, od := on.Date()
	age := oy - by
	if om < bm || (om == bm && od < bd) {
		age--
	}
	return age
}

// DaysBetween returns the number of calendar days from a to b, ignoring the
// time of day. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// TruncateToDate drops the clock portion of t and normalizes to UTC.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
