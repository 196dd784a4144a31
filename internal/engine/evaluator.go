package engine

import (
	"strings"

	"github.com/roach88/tally/internal/model"
)

// Resolver looks up the rule version in effect for a habit on a day.
// Implemented by rulestore.Store.
type Resolver interface {
	Resolve(habit string, day model.Date) (model.Record, error)
}

// Evaluator scores habit observations against the rules of a Resolver.
// It holds no mutable state; Evaluate is a pure function of the resolver's
// contents at call time.
type Evaluator struct {
	rules Resolver
}

// NewEvaluator creates an evaluator over rules.
func NewEvaluator(rules Resolver) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate resolves the rule active for obs and scores it.
//
// A habit with no active rule yields an unscored zero result and no error.
// A value whose kind disagrees with the rule's kind yields TYPE_MISMATCH.
func (e *Evaluator) Evaluate(obs model.Observation) (model.ScoreResult, error) {
	if obs.Value == nil {
		return model.ScoreResult{}, &model.Error{
			Code:    model.CodeTypeMismatch,
			Message: "observation has no value",
			Habit:   obs.Habit,
			Date:    obs.Date.String(),
		}
	}

	rule, err := e.rules.Resolve(obs.Habit, obs.Date)
	if err != nil {
		if model.IsNotFound(err) {
			return model.ScoreResult{DisplayValue: obs.Value.String()}, nil
		}
		return model.ScoreResult{}, err
	}
	return Score(rule, obs)
}

// Score applies rule to obs without resolution.
func Score(rule model.Record, obs model.Observation) (model.ScoreResult, error) {
	if obs.Value == nil || obs.Value.Kind() != rule.Kind.Observed() {
		got := model.Kind(0)
		if obs.Value != nil {
			got = obs.Value.Kind()
		}
		return model.ScoreResult{}, model.NewTypeMismatch(rule.Habit, obs.Date, rule.Kind.Observed(), got)
	}

	var (
		completed bool
		err       error
	)
	switch rule.Kind {
	case model.KindBool:
		var v, target model.Bool
		if v, target, err = operands[model.Bool](rule, obs); err == nil {
			completed = matches(v == target, rule.IsNegative)
		}
	case model.KindNumeric:
		var v, target model.Number
		if v, target, err = operands[model.Number](rule, obs); err == nil {
			completed = meets(v.Cmp(target), rule.IsNegative)
		}
	case model.KindText:
		var v, target model.Text
		if v, target, err = operands[model.Text](rule, obs); err == nil {
			completed = matches(v == target, rule.IsNegative)
		}
	case model.KindTimeOfDay:
		return scoreClock(rule, obs)
	case model.KindChoice:
		return scoreChoice(rule, obs)
	default:
		err = model.NewIntegrityError("rule %q has unknown kind %v", rule.Habit, rule.Kind)
	}
	if err != nil {
		return model.ScoreResult{}, err
	}
	return result(rule, obs, completed), nil
}

// operands extracts the typed observation and target of one kind.
func operands[T model.Value](rule model.Record, obs model.Observation) (T, T, error) {
	var zero T
	v, ok := obs.Value.(T)
	if !ok {
		return zero, zero, model.NewTypeMismatch(rule.Habit, obs.Date, rule.Kind, obs.Value.Kind())
	}
	target, ok := rule.Target.(T)
	if !ok {
		return zero, zero, model.NewIntegrityError("rule %q: target does not match kind %s", rule.Habit, rule.Kind)
	}
	return v, target, nil
}

// matches applies polarity to an equality test: a negative rule is
// completed when the value differs from the target.
func matches(equal, negative bool) bool {
	return equal != negative
}

// meets applies polarity to an ordering test: a positive target is a floor
// (value >= target), a negative one a ceiling (value < target).
func meets(cmp int, negative bool) bool {
	if negative {
		return cmp < 0
	}
	return cmp >= 0
}

func result(rule model.Record, obs model.Observation, completed bool) model.ScoreResult {
	res := model.ScoreResult{
		Completed:    completed,
		TargetUsed:   rule.Target,
		DisplayValue: display(obs.Value, rule.Unit),
		Scored:       true,
	}
	if completed {
		res.EarnedReward = rule.Reward
	}
	res.MaxReward = max(rule.Reward, 0)
	return res
}

// scoreChoice completes when the observed text is one of the rule's
// choices and earns that choice's reward.
func scoreChoice(rule model.Record, obs model.Observation) (model.ScoreResult, error) {
	v, ok := obs.Value.(model.Text)
	if !ok {
		return model.ScoreResult{}, model.NewTypeMismatch(rule.Habit, obs.Date, model.KindText, obs.Value.Kind())
	}
	choices, ok := rule.Target.(model.Choices)
	if !ok {
		return model.ScoreResult{}, model.NewIntegrityError("rule %q: target does not match kind %s", rule.Habit, rule.Kind)
	}
	res := model.ScoreResult{
		TargetUsed:   choices,
		DisplayValue: display(v, rule.Unit),
		Scored:       true,
		MaxReward:    max(choices.Best(), 0),
	}
	if reward, ok := choices.Lookup(string(v)); ok {
		res.Completed = true
		res.EarnedReward = reward
	}
	return res, nil
}

func display(v model.Value, unit string) string {
	return strings.TrimSpace(v.String() + " " + unit)
}
