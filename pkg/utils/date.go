package utils

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used in files, prompts and URLs.
const DateLayout = "2006-01-02"

// TimeNowUTC returns the current time in UTC.
func TimeNowUTC() time.Time {
	return time.Now().UTC()
}

// TruncateDate drops the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DefaultAsOf returns the day before now: the last session with a known close.
func DefaultAsOf(now time.Time) time.Time {
	return TruncateDate(now.UTC()).AddDate(0, 0, -1)
}
