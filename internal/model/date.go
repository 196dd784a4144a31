package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO layout used everywhere a Date is rendered.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Date is a civil calendar day stored as days since 1970-01-01.
// Dates are comparable with the ordinary operators and usable as map keys.
type Date int

// OpenEnded is the sentinel valid_to of a rule version with no end.
var OpenEnded = DateOf(9999, time.December, 31)

// DateOf builds a Date from its calendar parts.
func DateOf(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date(floorDiv(t.Unix(), secondsPerDay))
}

// DateFromTime returns the calendar day of t in t's own location.
func DateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return DateOf(y, m, d)
}

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: must be YYYY-MM-DD", s)
	}
	return DateFromTime(t), nil
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

// IsOpenEnded reports whether d is the open-ended sentinel.
func (d Date) IsOpenEnded() bool {
	return d == OpenEnded
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
