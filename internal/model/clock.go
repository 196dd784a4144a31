package model

import "time"

// Clock supplies "today" for defaulted valid_from dates.
type Clock interface {
	Today() Date
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Today returns the current local calendar day.
func (SystemClock) Today() Date {
	return DateFromTime(time.Now())
}
