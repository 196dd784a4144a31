package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/tally/internal/model"
)

// Validation error codes (E100-E199)
const (
	// Habit rule errors (E101-E109)
	ErrInvalidRule      = "E101" // rule fails its own integrity checks
	ErrDuplicateVersion = "E102" // two versions of a habit share valid_from

	// Sleep band errors (E110-E119)
	ErrInvalidBand          = "E110" // band fails its own integrity checks
	ErrDuplicateBandVersion = "E111" // two versions share marker, threshold and valid_from
)

// ValidationError represents a semantic error in a compiled rules file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled rule set. Returns all errors found (does not
// fail-fast).
func Validate(rs *RuleSet) []ValidationError {
	var errs []ValidationError

	seen := make(map[model.Key]bool)
	for i, r := range rs.Rules {
		field := fmt.Sprintf("habit.%q", r.Habit)
		line := lineOf(rs.rulePos, i)

		if err := r.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: message(err), Code: ErrInvalidRule, Line: line})
		}

		key := model.Key{Habit: model.NormalizeName(r.Habit), ValidFrom: r.ValidFrom}
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate version from %s", r.ValidFrom),
				Code:    ErrDuplicateVersion,
				Line:    line,
			})
		}
		seen[key] = true
	}

	seenBands := make(map[model.BandKey]bool)
	for i, b := range rs.Bands {
		field := fmt.Sprintf("sleep.%s[%s]", b.Marker, b.Threshold)
		line := lineOf(rs.bandPos, i)

		if err := b.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: message(err), Code: ErrInvalidBand, Line: line})
		}
		if seenBands[b.Key()] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate band version from %s", b.ValidFrom),
				Code:    ErrDuplicateBandVersion,
				Line:    line,
			})
		}
		seenBands[b.Key()] = true
	}

	return errs
}

func lineOf(pos []token.Pos, i int) int {
	if i < len(pos) && pos[i].IsValid() {
		return pos[i].Line()
	}
	return 0
}

// message strips the code prefix of a model error.
func message(err error) string {
	var me *model.Error
	if errors.As(err, &me) {
		return me.Message
	}
	return err.Error()
}
