package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tally/internal/store"
)

func scoreRow(source, name, display string, reward int) store.ScoreRow {
	return store.ScoreRow{
		Source:    source,
		Name:      name,
		Display:   display,
		Reward:    reward,
		Completed: reward != 0,
		Scored:    true,
		RunID:     "test-run-default",
	}
}

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func TestEvaluateAssertions(t *testing.T) {
	slept := 420
	result := NewResult()
	result.Days = []DayTrace{{
		Date:         "2025-03-10",
		SleptMinutes: &slept,
		Reward:       3,
		Fine:         -1,
		Total:        2,
		Scores: []store.ScoreRow{
			scoreRow("habit", "Steps", "9000", 3),
			scoreRow("task", "Steps", "true", -1),
			{Source: "habit", Name: "Mood", Display: "7", Error: "habit \"Mood\": TYPE_MISMATCH: bad"},
		},
	}}

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"score matches", Assertion{Type: AssertScore, Date: "2025-03-10", Name: "Steps", Reward: intPtr(3), Completed: boolPtr(true)}, ""},
		{"source selects row", Assertion{Type: AssertScore, Date: "2025-03-10", Source: "task", Name: "Steps", Reward: intPtr(-1)}, ""},
		{"score mismatch", Assertion{Type: AssertScore, Date: "2025-03-10", Name: "Steps", Reward: intPtr(4)}, "reward 3, want 4"},
		{"score on failed row", Assertion{Type: AssertScore, Date: "2025-03-10", Name: "Mood"}, "failed:"},
		{"totals match", Assertion{Type: AssertTotals, Date: "2025-03-10", Reward: intPtr(3), Fine: intPtr(-1), Total: intPtr(2), Slept: intPtr(420)}, ""},
		{"totals mismatch", Assertion{Type: AssertTotals, Date: "2025-03-10", Total: intPtr(5)}, "total 2, want 5"},
		{"slept mismatch", Assertion{Type: AssertTotals, Date: "2025-03-10", Slept: intPtr(400)}, "slept 420, want 400"},
		{"failure matches", Assertion{Type: AssertFailure, Date: "2025-03-10", Name: "Mood", Code: "TYPE_MISMATCH"}, ""},
		{"failure expected but scored", Assertion{Type: AssertFailure, Date: "2025-03-10", Name: "Steps", Code: "TYPE_MISMATCH"}, "no error"},
		{"unknown day", Assertion{Type: AssertTotals, Date: "2025-03-11"}, "day not in scenario"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			if assert.Len(t, errs, 1) {
				assert.Contains(t, errs[0], tt.wantErr)
			}
		})
	}
}
