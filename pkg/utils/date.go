package utils

import (
	"time"
)

// DateLayout is the calendar-date format used on the HTTP surface.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// TruncateToDate drops the clock part, keeping the calendar date in UTC.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PrettyDate renders t for human-facing messages.
func PrettyDate(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006 15:04:05 MST")
}
