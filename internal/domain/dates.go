package domain

import "time"

// Calendar-day helpers. All pipeline dates are UTC midnights so they can be
// used directly as map keys for lag and target lookups.

// Date constructs a UTC-midnight calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight truncates t to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b (positive when
// b is after a). Both arguments must be UTC midnights.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// EndOfDay returns 23:59:59 UTC on d's calendar date. This is the as-of
// instant for the event knowledge gate: an event announced at any time on the
// observation's own calendar day counts as known.
func EndOfDay(d time.Time) time.Time {
	u := d.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 0, time.UTC)
}
