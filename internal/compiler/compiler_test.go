package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/model"
)

var today = model.MustParseDate("2025-03-10")

func TestCompileBasic(t *testing.T) {
	src := `
habit: Steps: {target: 8000, reward: 3, unit: "steps", from: "2025-01-01"}
habit: "Screen time": [
	{target: 120, reward: 2, negative: true, from: "2025-01-01", until: "2025-03-01"},
	{target: 90.5, reward: 3, negative: true, from: "2025-03-01"},
]
habit: Smoking: {reward: 5, negative: true}
habit: Breakfast: {target: "oatmeal", reward: 1}
habit: "Lights out": {kind: "time", target: "23:30", reward: 2, negative: true}
sleep: begin: [
	{threshold: "07:00", reward: 2, negative: true},
	{threshold: "07:30", reward: 1, negative: true, from: "2025-02-01"},
]
sleep: end: [{threshold: "00:30+1", reward: 1, negative: true}]
`
	rs, err := Compile([]byte(src), "rules.cue", today)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 6)
	require.Len(t, rs.Bands, 3)

	byName := map[string][]model.Record{}
	for _, r := range rs.Rules {
		byName[r.Habit] = append(byName[r.Habit], r)
	}

	steps := byName["Steps"][0]
	assert.Equal(t, model.KindNumeric, steps.Kind)
	assert.Equal(t, "8000", steps.Target.String())
	assert.Equal(t, "steps", steps.Unit)
	assert.Equal(t, model.MustParseDate("2025-01-01"), steps.ValidFrom)
	assert.Equal(t, model.OpenEnded, steps.ValidTo)

	screen := byName["Screen time"]
	require.Len(t, screen, 2)
	assert.Equal(t, model.MustParseDate("2025-03-01"), screen[0].ValidTo)
	assert.Equal(t, "90.5", screen[1].Target.String())
	assert.True(t, screen[1].IsNegative)

	smoking := byName["Smoking"][0]
	assert.Equal(t, model.KindBool, smoking.Kind)
	assert.Equal(t, model.Bool(true), smoking.Target)
	assert.Equal(t, today, smoking.ValidFrom)

	assert.Equal(t, model.Text("oatmeal"), byName["Breakfast"][0].Target)

	lights := byName["Lights out"][0]
	assert.Equal(t, model.KindTimeOfDay, lights.Kind)
	assert.Equal(t, model.Minutes(23*60+30), lights.Target)

	assert.Equal(t, model.Band{
		Marker: model.MarkerBegin, Threshold: 420, Reward: 2, IsNegative: true,
		ValidFrom: today, ValidTo: model.OpenEnded,
	}, rs.Bands[0])
	assert.Equal(t, model.MustParseDate("2025-02-01"), rs.Bands[1].ValidFrom)
	assert.Equal(t, model.MarkerEnd, rs.Bands[2].Marker)
	assert.Equal(t, model.Minutes(model.MinutesPerDay+30), rs.Bands[2].Threshold)

	assert.Empty(t, Validate(rs))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		errMsg string
	}{
		{
			name:   "syntax error",
			src:    `habit: Steps: {reward: }`,
			errMsg: "rules.cue",
		},
		{
			name:   "missing reward",
			src:    `habit: Steps: {target: 1}`,
			errMsg: "Steps",
		},
		{
			name:   "unknown top-level field",
			src:    `habits: Steps: {reward: 1}`,
			errMsg: "habits",
		},
		{
			name:   "bad date",
			src:    `habit: Steps: {reward: 1, from: "01/02/2025"}`,
			errMsg: "Steps",
		},
		{
			name:   "bad clock",
			src:    `sleep: begin: [{threshold: "7am", reward: 1}]`,
			errMsg: "threshold",
		},
		{
			name:   "target beside choices",
			src:    `habit: Mood: {target: "calm", choices: {calm: 1}}`,
			errMsg: "not allowed with choices",
		},
		{
			name:   "choices with another kind",
			src:    `habit: Mood: {kind: "text", choices: {calm: 1}}`,
			errMsg: `choices need kind "choice"`,
		},
		{
			name:   "empty choices",
			src:    `habit: Mood: {choices: {}}`,
			errMsg: "at least one value",
		},
		{
			name:   "kind conflicts with target",
			src:    `habit: Steps: {kind: "numeric", target: true, reward: 1}`,
			errMsg: "bool target given for numeric rule",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]byte(tt.src), "rules.cue", today)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCompileError_Position(t *testing.T) {
	_, err := Compile([]byte("sleep: begin: [{\n\tthreshold: \"07:00\"\n\treward: \"lots\"\n}]\n"), "rules.cue", today)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
}

func TestCompile_KindFromTextTarget(t *testing.T) {
	rs, err := Compile([]byte(`habit: Water: {kind: "numeric", target: "2.5", reward: 1, unit: "l"}`), "rules.cue", today)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, model.KindNumeric, rs.Rules[0].Kind)
	assert.Equal(t, "2.5", rs.Rules[0].Target.String())
}

func TestCompile_ClockTextTargetIsTime(t *testing.T) {
	src := `
habit: Wake: {target: "07:30", reward: 1}
habit: Alarm: {kind: "text", target: "07:30", reward: 1}
`
	rs, err := Compile([]byte(src), "rules.cue", today)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 2)

	assert.Equal(t, model.KindTimeOfDay, rs.Rules[0].Kind)
	assert.Equal(t, model.Minutes(7*60+30), rs.Rules[0].Target)
	assert.Equal(t, model.KindText, rs.Rules[1].Kind, "explicit kind wins")
	assert.Equal(t, model.Text("07:30"), rs.Rules[1].Target)
}

func TestCompile_Choices(t *testing.T) {
	src := `habit: Mood: {choices: {focused: 3, calm: 2, grumpy: -1}, from: "2025-01-01"}`
	rs, err := Compile([]byte(src), "rules.cue", today)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)

	r := rs.Rules[0]
	assert.Equal(t, model.KindChoice, r.Kind)
	assert.Equal(t, model.Choices{
		{Value: "focused", Reward: 3},
		{Value: "calm", Reward: 2},
		{Value: "grumpy", Reward: -1},
	}, r.Target)
	assert.Equal(t, 3, r.Reward)
	assert.Empty(t, Validate(rs))
}

func TestValidate_Duplicates(t *testing.T) {
	src := `
habit: Steps: [
	{target: 8000, reward: 3, from: "2025-01-01"},
	{target: 9000, reward: 4, from: "2025-01-01"},
]
sleep: begin: [
	{threshold: "07:00", reward: 2, from: "2025-01-01"},
	{threshold: "07:00", reward: 3, from: "2025-01-01"},
]
`
	rs, err := Compile([]byte(src), "rules.cue", today)
	require.NoError(t, err)

	errs := Validate(rs)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrDuplicateVersion, errs[0].Code)
	assert.Equal(t, ErrDuplicateBandVersion, errs[1].Code)
}

func TestValidate_InvalidRange(t *testing.T) {
	rs, err := Compile([]byte(`habit: Steps: {target: 1, reward: 1, from: "2025-02-01", until: "2025-01-01"}`), "rules.cue", today)
	require.NoError(t, err)

	errs := Validate(rs)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidRule, errs[0].Code)
	assert.Contains(t, errs[0].Error(), "[E101]")
	assert.Contains(t, errs[0].Message, "valid_to")
}
