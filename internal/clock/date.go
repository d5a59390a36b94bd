package clock

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for appointment dates.
const DateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" calendar date. No timezone offset is
// applied; the result is midnight UTC of that civil day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, ErrInvalidFormat)
	}
	return t, nil
}

// ValidateDate reports whether s is a well-formed calendar date.
func ValidateDate(s string) error {
	_, err := ParseDate(s)
	return err
}

// Weekday returns the Gregorian day of week for a date string, Sunday = 0.
func Weekday(s string) (time.Weekday, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// AddDays shifts a date string by n days.
func AddDays(s string, n int) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// Today renders now as a date string in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}
