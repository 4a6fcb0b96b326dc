// Package calendar builds month views and owns the date key format used to
// bucket appointments by day.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidKey is returned when a string is not a well-formed date key.
var ErrInvalidKey = errors.New("invalid date key")

// Date is a calendar day with a zero-based month index.
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateKey formats a day as "{year}-{monthIndex}-{day}". The month index is
// zero-based and no component is zero-padded, so 5 Feb 2024 is "2024-1-5".
func DateKey(year, monthIndex, day int) string {
	return fmt.Sprintf("%d-%d-%d", year, monthIndex, day)
}

// KeyFor returns the key for t's local wall-clock date.
func KeyFor(t time.Time) string {
	y, m, d := t.Date()
	return DateKey(y, int(m)-1, d)
}

// Key returns the date key for d.
func (d Date) Key() string {
	return DateKey(d.Year, d.Month, d.Day)
}

// ParseDateKey parses a key produced by DateKey. The day must exist in the
// given month.
func ParseDateKey(key string) (Date, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || strconv.Itoa(v) != p {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		n[i] = v
	}

	d := Date{Year: n[0], Month: n[1], Day: n[2]}
	if d.Month > 11 || d.Day < 1 || d.Day > (Month{Year: d.Year, Index: d.Month}).DaysIn() {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return d, nil
}
