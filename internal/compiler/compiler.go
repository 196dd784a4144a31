// Package compiler turns CUE rules files into habit rule versions and sleep
// bands.
//
// A rules file looks like:
//
//	habit: Steps: {target: 8000, reward: 3, unit: "steps", from: "2025-01-01"}
//	habit: "Screen time": [
//		{target: 120, reward: 2, negative: true, from: "2025-01-01"},
//		{target: 90, reward: 3, negative: true, from: "2025-03-01"},
//	]
//	habit: Mood: {choices: {calm: 2, focused: 3}}
//	sleep: begin: [{threshold: "07:00", reward: 2, negative: true}]
//
// A text target that reads as a clock ("07:30") is a time rule unless kind
// says otherwise. A choice rule earns the reward of whichever listed value
// was recorded; its reward is the best of them.
//
// Compile checks structure against an embedded schema and converts values;
// Validate checks the result for semantic errors and reports all of them.
package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tally/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// RuleSet is the content of one compiled rules file.
type RuleSet struct {
	Rules []model.Record
	Bands []model.Band
	// positions of each rule and band, parallel to Rules and Bands
	rulePos []token.Pos
	bandPos []token.Pos
}

// Compile parses src as a rules file. Versions without a from date start
// on today; versions without an until date are open-ended.
func Compile(src []byte, filename string, today model.Date) (*RuleSet, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("rules schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	file := schema.LookupPath(cue.ParsePath("#File")).Unify(v)
	if err := file.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	c := &fileCompiler{today: today, set: &RuleSet{}}
	if err := c.habits(file.LookupPath(cue.ParsePath("habit"))); err != nil {
		return nil, err
	}
	for _, m := range []model.Marker{model.MarkerBegin, model.MarkerEnd} {
		if err := c.bands(m, file.LookupPath(cue.ParsePath("sleep."+string(m)))); err != nil {
			return nil, err
		}
	}
	return c.set, nil
}

type fileCompiler struct {
	today model.Date
	set   *RuleSet
}

func (c *fileCompiler) habits(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		entry := iter.Value()

		// A habit holds one version or a list of them.
		if list, err := entry.List(); err == nil {
			for list.Next() {
				if err := c.rule(name, list.Value()); err != nil {
					return err
				}
			}
			continue
		}
		if err := c.rule(name, entry); err != nil {
			return err
		}
	}
	return nil
}

func (c *fileCompiler) rule(name string, v cue.Value) error {
	rec := model.Record{Habit: name}

	var err error
	if rec.IsNegative, err = boolField(v, "negative"); err != nil {
		return err
	}
	if rec.Unit, err = optionalString(v, "unit"); err != nil {
		return err
	}
	if rec.ValidFrom, rec.ValidTo, err = c.dates(v); err != nil {
		return err
	}

	if cv := v.LookupPath(cue.ParsePath("choices")); cv.Exists() {
		if err := choiceRule(&rec, v, cv); err != nil {
			return err
		}
	} else if err := valueRule(&rec, v); err != nil {
		return err
	}

	c.set.Rules = append(c.set.Rules, rec)
	c.set.rulePos = append(c.set.rulePos, v.Pos())
	return nil
}

func valueRule(rec *model.Record, v cue.Value) error {
	rv := v.LookupPath(cue.ParsePath("reward"))
	if !rv.Exists() {
		return &CompileError{Field: "reward", Message: fmt.Sprintf("habit %q needs a reward", rec.Habit), Pos: v.Pos()}
	}
	var err error
	if rec.Reward, err = intField(v, "reward"); err != nil {
		return err
	}
	if rec.Target, err = target(v); err != nil {
		return err
	}

	kv := v.LookupPath(cue.ParsePath("kind"))
	if !kv.Exists() {
		if text, ok := rec.Target.(model.Text); ok {
			rec.Target = model.InferText(string(text))
		}
		rec.Kind = rec.Target.Kind()
		return nil
	}
	s, err := kv.String()
	if err != nil {
		return formatCUEError(err)
	}
	kind, err := model.ParseKind(s)
	if err != nil {
		return &CompileError{Field: "kind", Message: err.Error(), Pos: kv.Pos()}
	}
	if rec.Target, err = coerceTarget(kind, rec.Target); err != nil {
		return &CompileError{Field: "target", Message: err.Error(), Pos: v.Pos()}
	}
	rec.Kind = kind
	return nil
}

// choiceRule reads a choices map in file order. The rule's reward is the
// best choice; target and reward fields are not allowed alongside it.
func choiceRule(rec *model.Record, v, cv cue.Value) error {
	for _, field := range []string{"target", "reward"} {
		if fv := v.LookupPath(cue.ParsePath(field)); fv.Exists() {
			return &CompileError{Field: field, Message: "not allowed with choices", Pos: fv.Pos()}
		}
	}
	if kv := v.LookupPath(cue.ParsePath("kind")); kv.Exists() {
		if s, err := kv.String(); err != nil || s != model.KindChoice.String() {
			return &CompileError{Field: "kind", Message: "choices need kind \"choice\"", Pos: kv.Pos()}
		}
	}

	iter, err := cv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	var choices model.Choices
	for iter.Next() {
		r, err := iter.Value().Int64()
		if err != nil {
			return formatCUEError(err)
		}
		choices = append(choices, model.Choice{Value: iter.Label(), Reward: int(r)})
	}
	if err := choices.Validate(); err != nil {
		return &CompileError{Field: "choices", Message: err.Error(), Pos: cv.Pos()}
	}
	rec.Kind = model.KindChoice
	rec.Target = choices
	rec.Reward = choices.Best()
	return nil
}

func (c *fileCompiler) bands(marker model.Marker, v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	list, err := v.List()
	if err != nil {
		return formatCUEError(err)
	}
	for list.Next() {
		bv := list.Value()
		b := model.Band{Marker: marker}

		tv := bv.LookupPath(cue.ParsePath("threshold"))
		s, err := tv.String()
		if err != nil {
			return formatCUEError(err)
		}
		if b.Threshold, err = model.ParseClock(s); err != nil {
			return &CompileError{Field: "threshold", Message: err.Error(), Pos: tv.Pos()}
		}
		if b.Reward, err = intField(bv, "reward"); err != nil {
			return err
		}
		if b.IsNegative, err = boolField(bv, "negative"); err != nil {
			return err
		}
		if b.ValidFrom, b.ValidTo, err = c.dates(bv); err != nil {
			return err
		}

		c.set.Bands = append(c.set.Bands, b)
		c.set.bandPos = append(c.set.bandPos, bv.Pos())
	}
	return nil
}

func (c *fileCompiler) dates(v cue.Value) (from, until model.Date, err error) {
	from, until = c.today, model.OpenEnded
	for _, f := range []struct {
		field string
		dst   *model.Date
	}{{"from", &from}, {"until", &until}} {
		fv := v.LookupPath(cue.ParsePath(f.field))
		if !fv.Exists() {
			continue
		}
		s, err := fv.String()
		if err != nil {
			return 0, 0, formatCUEError(err)
		}
		d, err := model.ParseDate(s)
		if err != nil {
			return 0, 0, &CompileError{Field: f.field, Message: err.Error(), Pos: fv.Pos()}
		}
		*f.dst = d
	}
	return from, until, nil
}

// target converts the target field by its CUE kind. A missing target is
// the Bool default true ("the habit was done").
func target(v cue.Value) (model.Value, error) {
	tv := v.LookupPath(cue.ParsePath("target"))
	if !tv.Exists() {
		return model.Bool(true), nil
	}
	switch tv.Kind() {
	case cue.BoolKind:
		b, err := tv.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return model.Bool(b), nil
	case cue.IntKind:
		i, err := tv.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return model.NewNumberFromInt(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := tv.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return model.NewNumber(f), nil
	case cue.StringKind:
		s, err := tv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return model.Text(s), nil
	default:
		return nil, &CompileError{
			Field:   "target",
			Message: fmt.Sprintf("unsupported target kind: %v", tv.Kind()),
			Pos:     tv.Pos(),
		}
	}
}

// coerceTarget reinterprets a target when the file names the kind
// explicitly, e.g. kind: "numeric" with target: "2.5".
func coerceTarget(kind model.Kind, t model.Value) (model.Value, error) {
	if t.Kind() == kind {
		return t, nil
	}
	if text, ok := t.(model.Text); ok {
		return model.ParseValue(kind, string(text))
	}
	return nil, fmt.Errorf("%s target given for %s rule", t.Kind(), kind)
}

func intField(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	i, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(i), nil
}

func boolField(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	if d, ok := fv.Default(); ok {
		fv = d
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with a position wins.
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
