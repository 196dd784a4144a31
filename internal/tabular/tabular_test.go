package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/rulestore"
)

func TestRules_FlushLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	from := model.MustParseDate("2025-01-01")
	records := []model.Record{
		{Habit: "Steps", Kind: model.KindNumeric, Target: model.NewNumberFromInt(8000), Reward: 3, ValidFrom: from, ValidTo: model.OpenEnded, Unit: "steps"},
		{Habit: "Mood; evening", Kind: model.KindText, Target: model.Text("calm"), Reward: 1, ValidFrom: from, ValidTo: model.MustParseDate("2025-02-01")},
		{Habit: "Smoking", Kind: model.KindBool, Target: model.Bool(true), Reward: 5, IsNegative: true, ValidFrom: from, ValidTo: model.OpenEnded},
		{Habit: "Dinner", Kind: model.KindChoice, Target: model.Choices{{Value: "fish; rice", Reward: 2}, {Value: "salad", Reward: 1}}, Reward: 2, ValidFrom: from, ValidTo: model.OpenEnded},
	}
	require.NoError(t, d.FlushRules(ctx, records))

	got, err := d.LoadRules(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, records, got)
}

func TestRules_FileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, d.FlushRules(ctx, []model.Record{{
		Habit: "Steps", Kind: model.KindNumeric, Target: model.NewNumberFromInt(8000), Reward: 3,
		ValidFrom: model.MustParseDate("2025-01-01"), ValidTo: model.OpenEnded, Unit: "steps",
	}}))

	data, err := os.ReadFile(filepath.Join(dir, RulesFile))
	require.NoError(t, err)
	assert.Equal(t,
		"name;kind;target;reward;is_negative;valid_from;valid_to;unit\n"+
			"Steps;numeric;8000;3;false;2025-01-01;9999-12-31;steps\n",
		string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not survive a flush")
}

func TestLoad_MissingFilesAreEmpty(t *testing.T) {
	ctx := context.Background()
	d, err := Open(filepath.Join(t.TempDir(), "fresh"))
	require.NoError(t, err)

	rules, err := d.LoadRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)

	bands, err := d.LoadBands(ctx)
	require.NoError(t, err)
	assert.Empty(t, bands)
}

func TestLoad_HandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := "name;kind;target;reward;is_negative;valid_from;valid_to;unit\n" +
		"Reading; float; 30; 2; false; 2025-01-01; ;min\n" +
		"Wake;time;07:30;1;true;2025-01-01;;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, RulesFile), []byte(content), 0o644))

	d, err := Open(dir)
	require.NoError(t, err)
	got, err := d.LoadRules(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.KindNumeric, got[0].Kind)
	assert.Equal(t, model.OpenEnded, got[0].ValidTo)
	assert.Equal(t, "min", got[0].Unit)
	assert.Equal(t, model.Minutes(450), got[1].Target)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "wrong header",
			content: "habit;kind;target;reward;is_negative;valid_from;valid_to;unit\n",
			errMsg:  `column 1 is "habit"`,
		},
		{
			name:    "bad date",
			content: "name;kind;target;reward;is_negative;valid_from;valid_to;unit\nSteps;numeric;1;1;false;01/01/2025;;\n",
			errMsg:  "line 2: valid_from",
		},
		{
			name:    "short row",
			content: "name;kind;target;reward;is_negative;valid_from;valid_to;unit\nSteps;numeric\n",
			errMsg:  "wrong number of fields",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, RulesFile), []byte(tt.content), 0o644))
			d, err := Open(dir)
			require.NoError(t, err)

			_, err = d.LoadRules(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBands_RoundTripThroughSleepStore(t *testing.T) {
	ctx := context.Background()
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	bands := rulestore.NewSleepStore()
	for _, b := range []model.Band{
		{Marker: model.MarkerBegin, Threshold: 420, Reward: 2, IsNegative: true, ValidFrom: model.MustParseDate("2025-01-01"), ValidTo: model.OpenEnded},
		{Marker: model.MarkerEnd, Threshold: model.MinutesPerDay + 30, Reward: 1, IsNegative: true, ValidFrom: model.MustParseDate("2025-01-01"), ValidTo: model.OpenEnded},
	} {
		_, err := bands.Upsert(b)
		require.NoError(t, err)
	}
	require.NoError(t, bands.Flush(ctx, d))

	data, err := os.ReadFile(filepath.Join(d.Path(), BandsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "end;00:30+1;1;true;2025-01-01;9999-12-31\n")

	reloaded := rulestore.NewSleepStore()
	require.NoError(t, reloaded.Load(ctx, d))
	assert.Equal(t, bands.List(), reloaded.List())
}
