// Package clock converts between "HH:MM" clock labels, minute offsets and
// calendar-date strings. Everything here is pure.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSlotInterval is the width of a bookable slot in minutes.
	DefaultSlotInterval = 30

	minutesPerDay = 24 * 60
)

// ErrInvalidFormat is returned for malformed time or date input.
var ErrInvalidFormat = errors.New("invalid format")

// ParseClockTime converts a 24-hour "HH:MM" label into minutes since midnight.
func ParseClockTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock time %q: %w", s, ErrInvalidFormat)
	}

	hour, err := parseComponent(parts[0])
	if err != nil || hour > 23 {
		return 0, fmt.Errorf("clock time %q: hour: %w", s, ErrInvalidFormat)
	}

	minute, err := parseComponent(parts[1])
	if err != nil || minute > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("clock time %q: minute: %w", s, ErrInvalidFormat)
	}

	return hour*60 + minute, nil
}

// parseComponent accepts one or two ASCII digits. strconv.Atoi alone would
// let signs through.
func parseComponent(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, ErrInvalidFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidFormat
		}
	}
	return strconv.Atoi(s)
}

// FormatClockTime renders minutes since midnight as zero-padded "HH:MM".
func FormatClockTime(minutes int) string {
	minutes = normalize(minutes)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClockTime parses and re-renders a label so "9:00" and "09:00"
// compare equal.
func NormalizeClockTime(s string) (string, error) {
	m, err := ParseClockTime(s)
	if err != nil {
		return "", err
	}
	return FormatClockTime(m), nil
}

// GenerateSlotSequence returns the minute offsets start, start+interval, ...
// that are strictly less than end. It is empty when start >= end or the
// interval is not positive.
func GenerateSlotSequence(start, end, interval int) []int {
	if interval <= 0 || start >= end {
		return []int{}
	}

	seq := make([]int, 0, (end-start+interval-1)/interval)
	for cur := start; cur < end; cur += interval {
		seq = append(seq, cur)
	}
	return seq
}

// FormatForDisplay renders minutes since midnight as a 12-hour "H:MM AM" label.
func FormatForDisplay(minutes int) string {
	minutes = normalize(minutes)
	h, m := minutes/60, minutes%60

	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, period)
}

// FormatLabelForDisplay is FormatForDisplay for an "HH:MM" label.
func FormatLabelForDisplay(label string) (string, error) {
	m, err := ParseClockTime(label)
	if err != nil {
		return "", err
	}
	return FormatForDisplay(m), nil
}

func normalize(minutes int) int {
	minutes %= minutesPerDay
	if minutes < 0 {
		minutes += minutesPerDay
	}
	return minutes
}
