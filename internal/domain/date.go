package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used as the day key.
const DateLayout = "2006-01-02"

// LocalDate returns the calendar date of t on the wall clock of loc.
// A nil loc means UTC.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate validates an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, NewValidationError("date", fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
	}
	return d, nil
}

// AddDays shifts an ISO calendar date by n days.
// The arithmetic is done on the calendar, never on instants, so DST and
// UTC offsets cannot move the result to a neighbouring day.
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(DateLayout), nil
}

// DateRange returns the n dates ending at (and including) end, oldest first.
func DateRange(end string, n int) ([]string, error) {
	d, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []string{}, nil
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = d.AddDate(0, 0, i-n+1).Format(DateLayout)
	}
	return out, nil
}

// ParseTimezone parses an IANA timezone name, returning UTC as fallback.
func ParseTimezone(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
