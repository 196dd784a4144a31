package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericRule(habit string, target int64, reward int, negative bool) Record {
	return Record{
		Habit:      habit,
		Kind:       KindNumeric,
		Target:     NewNumberFromInt(target),
		Reward:     reward,
		IsNegative: negative,
		ValidFrom:  MustParseDate("2025-01-01"),
		ValidTo:    OpenEnded,
	}
}

func TestRecordValidate(t *testing.T) {
	ok := numericRule("Steps", 8000, 3, false)
	require.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"empty habit", func(r *Record) { r.Habit = "" }},
		{"nil target", func(r *Record) { r.Target = nil }},
		{"kind mismatch", func(r *Record) { r.Target = Text("x") }},
		{"unknown kind", func(r *Record) { r.Kind = Kind(99) }},
		{"inverted range", func(r *Record) { r.ValidTo = r.ValidFrom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ok
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, IsIntegrity(err))
		})
	}
}

func TestRecordActive(t *testing.T) {
	r := numericRule("Steps", 8000, 3, false)
	r.ValidTo = MustParseDate("2025-02-01")

	assert.False(t, r.Active(MustParseDate("2024-12-31")))
	assert.True(t, r.Active(MustParseDate("2025-01-01")))
	assert.True(t, r.Active(MustParseDate("2025-01-31")))
	assert.False(t, r.Active(MustParseDate("2025-02-01")), "valid_to is exclusive")
}

func TestRecordDescribe(t *testing.T) {
	r := numericRule("Screen time", 120, -2, true)
	r.Unit = "min"
	assert.Equal(t, "Screen time: less than 120 min, reward -2", r.Describe())

	b := Record{Habit: "Smoking", Kind: KindBool, Target: Bool(true), Reward: 5, IsNegative: true}
	assert.Equal(t, "Smoking: missed, reward 5", b.Describe())
}

func TestRecordMarshalJSON(t *testing.T) {
	r := numericRule("Steps", 8000, 3, false)
	r.Unit = "steps"
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Steps", got["name"])
	assert.Equal(t, "numeric", got["kind"])
	assert.Equal(t, "8000", got["target"])
	assert.Equal(t, "2025-01-01", got["valid_from"])
	assert.Equal(t, "9999-12-31", got["valid_to"])
}

func TestFilter(t *testing.T) {
	r := numericRule("Steps", 8000, 3, false)
	assert.True(t, Filter{}.Empty())

	habit := "Steps"
	reward := 3
	other := 4
	assert.True(t, Filter{Habit: &habit}.Matches(r))
	assert.True(t, Filter{Habit: &habit, Reward: &reward}.Matches(r))
	assert.False(t, Filter{Habit: &habit, Reward: &other}.Matches(r))
}

func TestErrorIs(t *testing.T) {
	err := NewNotFound("Steps", MustParseDate("2025-01-01"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsIntegrity(err))
	assert.Contains(t, err.Error(), "habit=Steps")
	assert.Contains(t, err.Error(), "date=2025-01-01")
}

func TestNormalizeName(t *testing.T) {
	composed := "\u0439"
	decomposed := "\u0438\u0306"
	require.NotEqual(t, composed, decomposed)
	assert.Equal(t, composed, NormalizeName("  "+decomposed+" "))
}

func TestBandSatisfied(t *testing.T) {
	ceiling := Band{Marker: MarkerBegin, Threshold: 420, IsNegative: true}
	assert.True(t, ceiling.Satisfied(419))
	assert.False(t, ceiling.Satisfied(420))

	floor := Band{Marker: MarkerEnd, Threshold: 1380}
	assert.True(t, floor.Satisfied(1380))
	assert.False(t, floor.Satisfied(1379))
}

func choiceRule(habit string, choices Choices) Record {
	return Record{
		Habit:     habit,
		Kind:      KindChoice,
		Target:    choices,
		Reward:    choices.Best(),
		ValidFrom: MustParseDate("2025-01-01"),
		ValidTo:   OpenEnded,
	}
}

func TestRecordValidate_Choice(t *testing.T) {
	mood := choiceRule("Mood", Choices{{Value: "calm", Reward: 2}, {Value: "focused", Reward: 3}})
	require.NoError(t, mood.Validate())
	assert.Equal(t, "Mood: one of calm (2), focused (3), reward 3", mood.Describe())

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"negative", func(r *Record) { r.IsNegative = true }},
		{"reward not best", func(r *Record) { r.Reward = 2 }},
		{"no choices", func(r *Record) { r.Target = Choices{}; r.Reward = 0 }},
		{"duplicate choice", func(r *Record) { r.Target = Choices{{Value: "calm", Reward: 3}, {Value: "calm", Reward: 1}} }},
		{"text target", func(r *Record) { r.Target = Text("calm") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mood
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, IsIntegrity(err))
		})
	}
}
