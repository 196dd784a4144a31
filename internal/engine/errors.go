package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tally/internal/model"
)

// Source identifies which part of a day produced a scored row.
type Source string

const (
	SourceHabit Source = "habit"
	SourceSleep Source = "sleep"
	SourceTask  Source = "task"
)

// ObservationError ties a scoring failure to the observation that caused it.
// The wrapped error is usually a *model.Error, so model.IsTypeMismatch and
// friends work through it.
type ObservationError struct {
	Source Source
	Name   string
	Date   model.Date
	Err    error
}

// Error implements the error interface.
func (e *ObservationError) Error() string {
	return fmt.Sprintf("%s %q on %s: %v", e.Source, e.Name, e.Date, e.Err)
}

// Unwrap returns the underlying error.
func (e *ObservationError) Unwrap() error {
	return e.Err
}

// AsObservationError extracts an ObservationError from err.
func AsObservationError(err error) (*ObservationError, bool) {
	var oe *ObservationError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
