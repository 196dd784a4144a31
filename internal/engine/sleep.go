package engine

import (
	"github.com/roach88/tally/internal/model"
)

// BandSource lists the sleep bands in effect for a marker on a day.
// Implemented by rulestore.SleepStore.
type BandSource interface {
	Active(marker model.Marker, day model.Date) []model.Band
}

// SleepEvaluator scores wake-up and bedtime markers against banded rules.
type SleepEvaluator struct {
	bands BandSource
}

// NewSleepEvaluator creates a sleep evaluator over bands.
func NewSleepEvaluator(bands BandSource) *SleepEvaluator {
	return &SleepEvaluator{bands: bands}
}

// Evaluate returns the best band the observation satisfies: among every
// active band of the marker whose threshold is met, the one with the
// highest reward. With no active bands the result is unscored; with bands
// but none satisfied it is scored, not completed, zero reward. MaxReward is
// the best reward any active band offers.
func (e *SleepEvaluator) Evaluate(obs model.SleepObservation) model.ScoreResult {
	res := model.ScoreResult{DisplayValue: obs.At.String()}

	candidates := e.bands.Active(obs.Marker, obs.Date)
	if len(candidates) == 0 {
		return res
	}
	res.Scored = true
	for _, b := range candidates {
		res.MaxReward = max(res.MaxReward, b.Reward)
	}

	best, ok := bestBand(candidates, obs.At)
	if !ok {
		return res
	}
	res.Completed = true
	res.EarnedReward = best.Reward
	res.TargetUsed = best.Threshold
	return res
}

// bestBand selects the highest-reward satisfied band. Equal rewards go to
// the band whose threshold is closest to the observation, then to the
// lower threshold, so the choice never depends on input order.
func bestBand(bands []model.Band, at model.Minutes) (model.Band, bool) {
	var (
		best  model.Band
		found bool
	)
	for _, b := range bands {
		if !b.Satisfied(at) {
			continue
		}
		if !found || better(b, best, at) {
			best = b
			found = true
		}
	}
	return best, found
}

func better(a, b model.Band, at model.Minutes) bool {
	if a.Reward != b.Reward {
		return a.Reward > b.Reward
	}
	da, db := distance(a.Threshold, at), distance(b.Threshold, at)
	if da != db {
		return da < db
	}
	return a.Threshold < b.Threshold
}

func distance(a, b model.Minutes) model.Minutes {
	if a > b {
		return a - b
	}
	return b - a
}

// scoreClock scores a single TimeOfDay habit rule with the same polarity
// semantics as a sleep band.
func scoreClock(rule model.Record, obs model.Observation) (model.ScoreResult, error) {
	at, target, err := operands[model.Minutes](rule, obs)
	if err != nil {
		return model.ScoreResult{}, err
	}
	b := model.Band{Threshold: target, IsNegative: rule.IsNegative}
	return result(rule, obs, b.Satisfied(at)), nil
}
