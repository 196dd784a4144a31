package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeNotFound indicates no rule version is active for a habit on a date.
	// It is an "unscored" outcome, not a failure.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeTypeMismatch indicates an observation's value kind disagrees with
	// the rule's kind.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// CodeIntegrity indicates ambiguous or invalid rule data: duplicate keys
	// at load time, an empty drop filter, or a malformed record.
	CodeIntegrity ErrorCode = "INTEGRITY"
)

// Error is the structured error type returned by the rule stores and
// evaluators. Compare against the sentinels with errors.Is.
type Error struct {
	Code    ErrorCode
	Message string
	Habit   string
	Date    string
}

// Sentinels for errors.Is. Any *Error with the same Code matches.
var (
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrTypeMismatch = &Error{Code: CodeTypeMismatch}
	ErrIntegrity    = &Error{Code: CodeIntegrity}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	switch {
	case e.Habit != "" && e.Date != "":
		return fmt.Sprintf("%s: %s (habit=%s, date=%s)", e.Code, msg, e.Habit, e.Date)
	case e.Habit != "":
		return fmt.Sprintf("%s: %s (habit=%s)", e.Code, msg, e.Habit)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewNotFound reports that habit has no active rule on date.
func NewNotFound(habit string, on Date) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: "no active rule",
		Habit:   habit,
		Date:    on.String(),
	}
}

// NewTypeMismatch reports an observation whose kind differs from the rule's.
func NewTypeMismatch(habit string, on Date, want, got Kind) *Error {
	return &Error{
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("rule expects %s value, observation is %s", want, got),
		Habit:   habit,
		Date:    on.String(),
	}
}

// NewIntegrityError reports invalid or ambiguous rule data.
func NewIntegrityError(format string, args ...any) *Error {
	return &Error{
		Code:    CodeIntegrity,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsNotFound returns true if err is (or wraps) a NOT_FOUND error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTypeMismatch returns true if err is (or wraps) a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// IsIntegrity returns true if err is (or wraps) an INTEGRITY error.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}
