package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/compiler"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/note"
	"github.com/roach88/tally/internal/rulestore"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fixed run ID against an isolated database.
type Harness struct {
	store  *store.Store
	scorer *engine.Scorer
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory database
//  2. Compile the rules and load them through the database
//  3. Score each day and record it
//  4. Read the stored rows back into the result
//  5. Evaluate assertions against the stored rows
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rules, bands, err := loadRules(ctx, scenario, st)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store: st,
		scorer: engine.New(rules, bands,
			engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
			engine.WithLogger(logger),
		),
		logger: logger,
	}

	result := NewResult()
	for i, d := range scenario.Days {
		trace, err := h.runDay(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("day %d (%s): %w", i, d.Date, err)
		}
		result.Days = append(result.Days, trace)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadRules compiles the scenario rules and round-trips them through the
// database, so scoring sees exactly what a real run would load.
func loadRules(ctx context.Context, scenario *Scenario, st *store.Store) (*rulestore.Store, *rulestore.SleepStore, error) {
	src := []byte(scenario.Rules)
	filename := scenario.Name + ".cue"
	if scenario.RulesFile != "" {
		data, err := os.ReadFile(scenario.RulesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read rules file: %w", err)
		}
		src, filename = data, scenario.RulesFile
	}

	today, err := scenarioToday(scenario)
	if err != nil {
		return nil, nil, err
	}
	rs, err := compiler.Compile(src, filename, today)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	if errs := compiler.Validate(rs); len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid rules: %w", errs[0])
	}

	rules := rulestore.New(nil)
	if err := rules.Replace(rs.Rules); err != nil {
		return nil, nil, err
	}
	bands := rulestore.NewSleepStore()
	if err := bands.Replace(rs.Bands); err != nil {
		return nil, nil, err
	}
	if err := rules.Flush(ctx, st); err != nil {
		return nil, nil, err
	}
	if err := bands.Flush(ctx, st); err != nil {
		return nil, nil, err
	}

	loadedRules := rulestore.New(nil)
	if err := loadedRules.Load(ctx, st); err != nil {
		return nil, nil, err
	}
	loadedBands := rulestore.NewSleepStore()
	if err := loadedBands.Load(ctx, st); err != nil {
		return nil, nil, err
	}
	return loadedRules, loadedBands, nil
}

func scenarioToday(s *Scenario) (model.Date, error) {
	if s.Today != "" {
		return model.ParseDate(s.Today)
	}
	return model.ParseDate(s.Days[0].Date)
}

func (h *Harness) runDay(ctx context.Context, d Day) (DayTrace, error) {
	day, err := buildDay(d)
	if err != nil {
		return DayTrace{}, err
	}

	res := h.scorer.ScoreDay(day)
	if err := h.store.RecordDay(ctx, day, res); err != nil {
		return DayTrace{}, err
	}

	rows, err := h.store.Scores(ctx, day.Date)
	if err != nil {
		return DayTrace{}, err
	}
	sums, err := h.store.Summaries(ctx, day.Date, day.Date)
	if err != nil {
		return DayTrace{}, err
	}
	if len(sums) != 1 {
		return DayTrace{}, fmt.Errorf("expected one stored summary, got %d", len(sums))
	}
	if rows == nil {
		rows = []store.ScoreRow{}
	}

	h.logger.Info("scenario day scored", "date", day.Date.String(), "rows", len(rows))
	return DayTrace{
		Date:         day.Date.String(),
		RunID:        sums[0].RunID,
		SleptMinutes: sums[0].SleptMinutes,
		Reward:       sums[0].Reward,
		Fine:         sums[0].Fine,
		Total:        sums[0].Total,
		Scores:       rows,
	}, nil
}

// buildDay converts scenario input into scoring input.
func buildDay(d Day) (model.Day, error) {
	date, err := model.ParseDate(d.Date)
	if err != nil {
		return model.Day{}, err
	}

	if d.Note != "" {
		n, err := note.Parse(date, []byte(d.Note))
		if err != nil {
			return model.Day{}, err
		}
		day := n.Day()
		day.SleptMinutes = d.SleptMinutes
		return day, nil
	}

	day := model.Day{Date: date, SleptMinutes: d.SleptMinutes}
	if d.Habits.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(d.Habits.Content); i += 2 {
			name := d.Habits.Content[i].Value
			v, ok, err := note.NodeValue(d.Habits.Content[i+1])
			if err != nil {
				return model.Day{}, fmt.Errorf("habit %q: %w", name, err)
			}
			if !ok {
				continue
			}
			day.Observations = append(day.Observations, model.Observation{Habit: name, Value: v, Date: date})
		}
	}

	for _, m := range []model.Marker{model.MarkerBegin, model.MarkerEnd} {
		raw, ok := d.Sleep[string(m)]
		if !ok {
			continue
		}
		at, err := model.ParseClock(raw)
		if err != nil {
			return model.Day{}, fmt.Errorf("sleep %s: %w", m, err)
		}
		day.Sleep = append(day.Sleep, model.SleepObservation{Marker: m, At: at, Date: date})
	}

	for _, t := range d.Tasks {
		day.Tasks = append(day.Tasks, model.Task{Name: t.Name, Done: t.Done, Reward: t.Reward})
	}
	return day, nil
}
