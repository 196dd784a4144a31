package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tally/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Day      *DayTrace  // Stored rows of the day, if it was scored
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Day != nil {
		fmt.Fprintf(&buf, "\nScores on %s:\n", e.Day.Date)
		for i, row := range e.Day.Scores {
			fmt.Fprintf(&buf, "  [%d] %s %s = %s reward=%d completed=%t scored=%t\n",
				i+1, row.Source, row.Name, row.Display, row.Reward, row.Completed, row.Scored)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	day, ok := result.Day(a.Date)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: "day " + a.Date + " to be scored", Actual: "day not in scenario"}
	}
	switch a.Type {
	case AssertScore:
		return assertScore(day, a)
	case AssertTotals:
		return assertTotals(day, a)
	case AssertFailure:
		return assertFailure(day, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func findRow(day DayTrace, a Assertion) (store.ScoreRow, bool) {
	source := a.Source
	if source == "" {
		source = "habit"
	}
	for _, row := range day.Scores {
		if row.Source == source && row.Name == a.Name {
			return row, true
		}
	}
	return store.ScoreRow{}, false
}

func assertScore(day DayTrace, a Assertion) error {
	row, ok := findRow(day, a)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("a row for %q", a.Name), Actual: "no such row", Day: &day}
	}
	if row.Error != "" {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q scored", a.Name), Actual: "failed: " + row.Error, Day: &day}
	}

	var mismatches []string
	if a.Reward != nil && row.Reward != *a.Reward {
		mismatches = append(mismatches, fmt.Sprintf("reward %d, want %d", row.Reward, *a.Reward))
	}
	if a.Completed != nil && row.Completed != *a.Completed {
		mismatches = append(mismatches, fmt.Sprintf("completed %t, want %t", row.Completed, *a.Completed))
	}
	if a.Scored != nil && row.Scored != *a.Scored {
		mismatches = append(mismatches, fmt.Sprintf("scored %t, want %t", row.Scored, *a.Scored))
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%q on %s to match", a.Name, a.Date),
			Actual:   strings.Join(mismatches, "; "),
			Day:      &day,
		}
	}
	return nil
}

func assertTotals(day DayTrace, a Assertion) error {
	var mismatches []string
	check := func(field string, got int, want *int) {
		if want != nil && got != *want {
			mismatches = append(mismatches, fmt.Sprintf("%s %d, want %d", field, got, *want))
		}
	}
	check("reward", day.Reward, a.Reward)
	check("fine", day.Fine, a.Fine)
	check("total", day.Total, a.Total)
	if a.Slept != nil {
		switch {
		case day.SleptMinutes == nil:
			mismatches = append(mismatches, fmt.Sprintf("slept unknown, want %d", *a.Slept))
		case *day.SleptMinutes != *a.Slept:
			mismatches = append(mismatches, fmt.Sprintf("slept %d, want %d", *day.SleptMinutes, *a.Slept))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: "totals on " + a.Date + " to match",
			Actual:   strings.Join(mismatches, "; "),
			Day:      &day,
		}
	}
	return nil
}

func assertFailure(day DayTrace, a Assertion) error {
	row, ok := findRow(day, a)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("a row for %q", a.Name), Actual: "no such row", Day: &day}
	}
	if !strings.Contains(row.Error, a.Code) {
		actual := "no error"
		if row.Error != "" {
			actual = row.Error
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q to fail with %s", a.Name, a.Code), Actual: actual, Day: &day}
	}
	return nil
}
