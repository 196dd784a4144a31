package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/rulestore"
	"github.com/roach88/tally/internal/testutil"
)

func testScorer(t *testing.T, stepsReward int, runID string) *engine.Scorer {
	t.Helper()
	rules := rulestore.New(nil)
	_, err := rules.Upsert(model.Record{
		Habit: "Steps", Kind: model.KindNumeric, Target: model.NewNumberFromInt(8000),
		Reward: stepsReward, ValidFrom: model.MustParseDate("2025-01-01"), ValidTo: model.OpenEnded, Unit: "steps",
	})
	require.NoError(t, err)

	bands := rulestore.NewSleepStore()
	_, err = bands.Upsert(model.Band{
		Marker: model.MarkerBegin, Threshold: 420, Reward: 2, IsNegative: true,
		ValidFrom: model.MustParseDate("2025-01-01"), ValidTo: model.OpenEnded,
	})
	require.NoError(t, err)

	return engine.New(rules, bands,
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func testDay() model.Day {
	slept := 450
	return model.Day{
		Date: model.MustParseDate("2025-03-10"),
		Observations: []model.Observation{
			{Habit: "Steps", Value: model.NewNumberFromInt(9000)},
			{Habit: "Mood", Value: model.Text("good")},
		},
		Sleep: []model.SleepObservation{{Marker: model.MarkerBegin, At: 400}},
		Tasks: []model.Task{
			{Name: "Call bank", Done: true, Reward: 2},
			{Name: "Call bank", Done: false, Reward: 1},
		},
		SleptMinutes: &slept,
	}
}

func TestRecordDay_ReadDaysRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	day := testDay()

	require.NoError(t, s.RecordDay(ctx, day, testScorer(t, 3, "run-1").ScoreDay(day)))

	days, err := s.ReadDays(ctx, day.Date, day.Date)
	require.NoError(t, err)
	require.Len(t, days, 1)

	got := days[0]
	assert.Equal(t, day.Date, got.Date)
	require.NotNil(t, got.SleptMinutes)
	assert.Equal(t, 450, *got.SleptMinutes)
	require.Len(t, got.Observations, 2)
	assert.Equal(t, "Steps", got.Observations[0].Habit)
	assert.Equal(t, 0, got.Observations[0].Value.(model.Number).Cmp(model.NewNumberFromInt(9000)))
	assert.Equal(t, day.Date, got.Observations[0].Date)
	assert.Equal(t, model.Text("good"), got.Observations[1].Value)
	assert.Equal(t, []model.SleepObservation{{Marker: model.MarkerBegin, At: 400, Date: day.Date}}, got.Sleep)
	assert.Equal(t, day.Tasks, got.Tasks)
}

func TestRecordDay_ScoresAndSummary(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	day := testDay()

	require.NoError(t, s.RecordDay(ctx, day, testScorer(t, 3, "run-1").ScoreDay(day)))

	rows, err := s.Scores(ctx, day.Date)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, ScoreRow{
		Source: "habit", Name: "Steps", Display: "9000 steps", Target: "8000",
		Reward: 3, Completed: true, Scored: true, RunID: "run-1",
	}, rows[0])
	assert.False(t, rows[1].Scored)
	assert.Equal(t, "good", rows[1].Display)
	assert.Equal(t, "06:40", rows[2].Display)
	assert.Equal(t, "07:00", rows[2].Target)

	sums, err := s.Summaries(ctx, day.Date.AddDays(-7), day.Date)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 7, sums[0].Reward)
	assert.Equal(t, 7, sums[0].Total)
	assert.Equal(t, 0, sums[0].Fine)
	assert.Equal(t, 5, sums[0].MaxHabits)
	assert.Equal(t, 3, sums[0].MaxTasks)
	assert.Equal(t, 8, sums[0].MaxReward)
}

func TestRecordDay_RescoreReplacesRows(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	day := testDay()

	require.NoError(t, s.RecordDay(ctx, day, testScorer(t, 3, "run-1").ScoreDay(day)))

	days, err := s.ReadDays(ctx, day.Date, day.Date)
	require.NoError(t, err)
	for _, res := range testScorer(t, 10, "run-2").ScoreDays(days) {
		require.NoError(t, s.RecordDay(ctx, days[0], res))
	}

	rows, err := s.Scores(ctx, day.Date)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, 10, rows[0].Reward)
	assert.Equal(t, "run-2", rows[0].RunID)

	sums, err := s.Summaries(ctx, day.Date, day.Date)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 14, sums[0].Total)
	assert.Equal(t, "run-2", sums[0].RunID)
}

func TestRecordDay_RejectsForeignResult(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	day := testDay()

	other := day
	other.Date = day.Date.AddDays(1)
	err := s.RecordDay(ctx, day, testScorer(t, 3, "run-1").ScoreDay(other))
	require.Error(t, err)
}

func TestReadDays_EmptyRange(t *testing.T) {
	s := createTestStore(t)

	days, err := s.ReadDays(context.Background(), model.MustParseDate("2025-01-01"), model.MustParseDate("2025-01-31"))
	require.NoError(t, err)
	assert.Empty(t, days)
}
