package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/tally/internal/model"
)

// Scorer scores whole days: habit observations, sleep markers and note
// tasks. One run ID is stamped on every outcome of a call.
//
// Scorer reads its rule sources but never mutates them, so concurrent
// ScoreDay calls are safe as long as the sources are (rulestore's are).
type Scorer struct {
	habits *Evaluator
	sleep  *SleepEvaluator
	runIDs RunIDGenerator
	logger *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithRunIDGenerator replaces the default UUIDv7 run IDs.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *Scorer) {
		s.runIDs = g
	}
}

// WithLogger sets the logger used for per-observation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = l
	}
}

// New creates a Scorer over the given habit rules and sleep bands.
func New(rules Resolver, bands BandSource, opts ...Option) *Scorer {
	s := &Scorer{
		habits: NewEvaluator(rules),
		sleep:  NewSleepEvaluator(bands),
		runIDs: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is one scored row of a day.
type Outcome struct {
	Source Source
	Name   string
	Value  model.Value
	Result model.ScoreResult
	// Err is set when this observation could not be scored. The rest of
	// the day is unaffected.
	Err error
}

// Totals summarises a day. Reward sums positive earnings, Fine sums
// negative ones. The Max fields are what the day could have earned had
// every tracked habit, sleep marker and listed task been met.
type Totals struct {
	Reward int
	Fine   int
	Total  int
	Scored int
	Failed int

	MaxHabits int
	MaxTasks  int
	Max       int
}

// DayResult is the outcome of scoring one day.
type DayResult struct {
	RunID    string
	Date     model.Date
	Outcomes []Outcome
	// SleptMinutes is carried over from the input day.
	SleptMinutes *int
}

// Totals computes the day's reward, fine and total.
func (r DayResult) Totals() Totals {
	var t Totals
	for _, o := range r.Outcomes {
		if o.Err != nil {
			t.Failed++
			continue
		}
		if o.Result.Scored {
			t.Scored++
		}
		if o.Source == SourceTask {
			t.MaxTasks += o.Result.MaxReward
		} else {
			t.MaxHabits += o.Result.MaxReward
		}
		switch earned := o.Result.EarnedReward; {
		case earned > 0:
			t.Reward += earned
		case earned < 0:
			t.Fine += earned
		}
	}
	t.Total = t.Reward + t.Fine
	t.Max = t.MaxHabits + t.MaxTasks
	return t
}

// Failures returns the outcomes that could not be scored.
func (r DayResult) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err joins every failure of the day, or returns nil.
func (r DayResult) Err() error {
	var errs []error
	for _, o := range r.Failures() {
		errs = append(errs, o.Err)
	}
	return errors.Join(errs...)
}

// ScoreDay scores every observation, sleep marker and task of day under a
// fresh run ID. Outcomes keep input order: habits, then sleep, then tasks.
func (s *Scorer) ScoreDay(day model.Day) DayResult {
	return s.scoreDay(s.runIDs.Generate(), day)
}

// ScoreDays scores several days under a single run ID.
func (s *Scorer) ScoreDays(days []model.Day) []DayResult {
	runID := s.runIDs.Generate()
	results := make([]DayResult, 0, len(days))
	for _, day := range days {
		results = append(results, s.scoreDay(runID, day))
	}
	return results
}

// Evaluate scores a batch of habit observations. Results line up with obs;
// failed entries hold a zero result and their error is included in the
// joined error returned alongside.
func (s *Scorer) Evaluate(obs []model.Observation) ([]model.ScoreResult, error) {
	results := make([]model.ScoreResult, len(obs))
	var errs []error
	for i, o := range obs {
		res, err := s.habits.Evaluate(o)
		if err != nil {
			errs = append(errs, &ObservationError{Source: SourceHabit, Name: o.Habit, Date: o.Date, Err: err})
			continue
		}
		results[i] = res
	}
	return results, errors.Join(errs...)
}

func (s *Scorer) scoreDay(runID string, day model.Day) DayResult {
	out := DayResult{
		RunID:        runID,
		Date:         day.Date,
		Outcomes:     make([]Outcome, 0, len(day.Observations)+len(day.Sleep)+len(day.Tasks)),
		SleptMinutes: day.SleptMinutes,
	}
	log := s.logger.With("run_id", runID, "date", day.Date.String())

	for _, o := range day.Observations {
		o.Date = day.Date
		res, err := s.habits.Evaluate(o)
		oc := Outcome{Source: SourceHabit, Name: o.Habit, Value: o.Value, Result: res}
		if err != nil {
			oc.Err = &ObservationError{Source: SourceHabit, Name: o.Habit, Date: day.Date, Err: err}
			log.Warn("observation not scored", "habit", o.Habit, "error", err)
		} else if !res.Scored {
			log.Debug("no active rule", "habit", o.Habit)
		}
		out.Outcomes = append(out.Outcomes, oc)
	}

	for _, o := range day.Sleep {
		o.Date = day.Date
		res := s.sleep.Evaluate(o)
		out.Outcomes = append(out.Outcomes, Outcome{
			Source: SourceSleep,
			Name:   string(o.Marker),
			Value:  o.At,
			Result: res,
		})
		if !res.Scored {
			log.Debug("no active sleep bands", "marker", o.Marker)
		}
	}

	for _, t := range day.Tasks {
		out.Outcomes = append(out.Outcomes, Outcome{
			Source: SourceTask,
			Name:   t.Name,
			Value:  model.Bool(t.Done),
			Result: model.ScoreResult{
				EarnedReward: t.Earned(),
				Completed:    t.Done,
				DisplayValue: model.Bool(t.Done).String(),
				Scored:       true,
				MaxReward:    max(t.Reward, 0),
			},
		})
	}

	totals := out.Totals()
	log.Info("day scored",
		"scored", totals.Scored,
		"failed", totals.Failed,
		"reward", totals.Reward,
		"fine", totals.Fine,
	)
	return out
}
