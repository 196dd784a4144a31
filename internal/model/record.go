package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one effective-dated version of a habit's reward rule.
type Record struct {
	Habit      string `json:"name"`
	Kind       Kind   `json:"kind"`
	Target     Value  `json:"-"`
	Reward     int    `json:"reward"`
	IsNegative bool   `json:"is_negative"`
	ValidFrom  Date   `json:"valid_from"`
	ValidTo    Date   `json:"valid_to"`
	Unit       string `json:"unit,omitempty"`
}

// MarshalJSON renders the target in its textual form next to the kind.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	target := ""
	if r.Target != nil {
		target = r.Target.String()
	}
	return json.Marshal(struct {
		plain
		Target string `json:"target"`
	}{plain(r), target})
}

// Key identifies a rule version. No two records in a store share a Key.
type Key struct {
	Habit     string
	ValidFrom Date
}

// Key returns the record's compound store key.
func (r Record) Key() Key {
	return Key{Habit: r.Habit, ValidFrom: r.ValidFrom}
}

// Active reports whether the record is in effect on day:
// ValidFrom <= day < ValidTo.
func (r Record) Active(day Date) bool {
	return r.ValidFrom <= day && day < r.ValidTo
}

// Validate checks the record's structural invariants.
func (r Record) Validate() error {
	if r.Habit == "" {
		return NewIntegrityError("habit name is required")
	}
	if r.Target == nil {
		return NewIntegrityError("rule %q has no target", r.Habit)
	}
	switch r.Kind {
	case KindBool, KindNumeric, KindText, KindTimeOfDay, KindChoice:
	default:
		return NewIntegrityError("rule %q has unknown kind %v", r.Habit, r.Kind)
	}
	if r.Target.Kind() != r.Kind {
		return NewIntegrityError("rule %q: %s target for %s kind", r.Habit, r.Target.Kind(), r.Kind)
	}
	if choices, ok := r.Target.(Choices); ok {
		if err := choices.Validate(); err != nil {
			return NewIntegrityError("rule %q: %v", r.Habit, err)
		}
		if r.IsNegative {
			return NewIntegrityError("rule %q: choice rules cannot be negative", r.Habit)
		}
		if r.Reward != choices.Best() {
			return NewIntegrityError("rule %q: reward %d must equal the best choice reward %d", r.Habit, r.Reward, choices.Best())
		}
	}
	if r.ValidTo <= r.ValidFrom {
		return NewIntegrityError("rule %q: valid_to %s must be after valid_from %s", r.Habit, r.ValidTo, r.ValidFrom)
	}
	return nil
}

// Describe renders the rule the way an operator reads it, e.g.
// "Steps: greater than 8000 steps, reward 3".
func (r Record) Describe() string {
	var cond string
	switch r.Kind {
	case KindBool:
		want := bool(r.Target.(Bool))
		if r.IsNegative {
			want = !want
		}
		if want {
			cond = "completed"
		} else {
			cond = "missed"
		}
	case KindNumeric:
		if r.IsNegative {
			cond = "less than " + r.Target.String()
		} else {
			cond = "at least " + r.Target.String()
		}
	case KindText:
		if r.IsNegative {
			cond = "not " + r.Target.String()
		} else {
			cond = "equals " + r.Target.String()
		}
	case KindTimeOfDay:
		if r.IsNegative {
			cond = "earlier than " + r.Target.String()
		} else {
			cond = "later than " + r.Target.String()
		}
	case KindChoice:
		var parts []string
		for _, ch := range r.Target.(Choices) {
			parts = append(parts, fmt.Sprintf("%s (%d)", ch.Value, ch.Reward))
		}
		cond = "one of " + strings.Join(parts, ", ")
	}
	cond = strings.TrimSpace(cond + " " + r.Unit)
	return fmt.Sprintf("%s: %s, reward %d", r.Habit, cond, r.Reward)
}

// Filter selects records for Drop. Nil fields are not constrained; set
// fields are combined with AND.
type Filter struct {
	Habit     *string
	ValidFrom *Date
	ValidTo   *Date
	Reward    *int
}

// Empty reports whether no predicate is set.
func (f Filter) Empty() bool {
	return f.Habit == nil && f.ValidFrom == nil && f.ValidTo == nil && f.Reward == nil
}

// Matches reports whether r satisfies every set predicate.
func (f Filter) Matches(r Record) bool {
	if f.Habit != nil && NormalizeName(*f.Habit) != r.Habit {
		return false
	}
	if f.ValidFrom != nil && *f.ValidFrom != r.ValidFrom {
		return false
	}
	if f.ValidTo != nil && *f.ValidTo != r.ValidTo {
		return false
	}
	if f.Reward != nil && *f.Reward != r.Reward {
		return false
	}
	return true
}

// Observation is one parsed (habit, value, date) fact from a daily note.
type Observation struct {
	Habit string
	Value Value
	Date  Date
}

// ScoreResult is the engine's verdict on one observation.
// Scored is false when no rule was active (the habit is untracked that day).
// MaxReward is the most the observation could have earned under the same
// rules; it is zero for fines.
type ScoreResult struct {
	EarnedReward int
	Completed    bool
	TargetUsed   Value
	DisplayValue string
	Scored       bool
	MaxReward    int
}

// Task is a checklist item from a daily note. A done task earns Reward.
type Task struct {
	Name   string
	Done   bool
	Reward int
}

// Earned returns the reward the task contributes to its day.
func (t Task) Earned() int {
	if t.Done {
		return t.Reward
	}
	return 0
}

// Day bundles everything a note contributes for one date.
type Day struct {
	Date         Date
	Observations []Observation
	Sleep        []SleepObservation
	Tasks        []Task
	// SleptMinutes is the time between the previous day's end marker and
	// this day's begin marker; nil when either note is missing it.
	SleptMinutes *int
}
