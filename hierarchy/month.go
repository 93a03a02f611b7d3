package hierarchy

import "time"

// =============================================================================
// MONTH - Calendar-month key for rollup rows
// =============================================================================

// Month is a calendar month in "YYYY-MM" form, the key of monthly rollups.
type Month string

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format("2006-01"))
}

// Time returns the first instant of the month, or the zero time if the
// value is malformed.
func (m Month) Time() time.Time {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (m Month) String() string { return string(m) }

// Before reports whether m sorts before other. Lexicographic order matches
// chronological order for the fixed "YYYY-MM" layout.
func (m Month) Before(other Month) bool { return m < other }
