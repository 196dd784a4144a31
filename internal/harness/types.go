package harness

import (
	"github.com/roach88/tally/internal/store"
)

// DayTrace is the stored outcome of one scenario day.
type DayTrace struct {
	Date         string           `json:"date"`
	RunID        string           `json:"run_id"`
	SleptMinutes *int             `json:"slept_minutes,omitempty"`
	Reward       int              `json:"reward"`
	Fine         int              `json:"fine"`
	Total        int              `json:"total"`
	Scores       []store.ScoreRow `json:"scores"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Days holds the stored scores of each scenario day, in order.
	Days []DayTrace `json:"days"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Days:   []DayTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Day returns the trace of date, if the scenario scored it.
func (r *Result) Day(date string) (DayTrace, bool) {
	for _, d := range r.Days {
		if d.Date == date {
			return d, true
		}
	}
	return DayTrace{}, false
}
