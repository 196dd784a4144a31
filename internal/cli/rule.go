package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/compiler"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/rulestore"
)

// NewRuleCommand creates the rule command group.
func NewRuleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage habit rules",
		Long: `Add, drop, list and import effective-dated habit rules.

Each habit has one rule version per valid_from date. The version in effect
on a day is the latest one whose interval contains it.`,
	}

	cmd.AddCommand(newRuleAddCommand(rootOpts))
	cmd.AddCommand(newRuleDropCommand(rootOpts))
	cmd.AddCommand(newRuleListCommand(rootOpts))
	cmd.AddCommand(newRuleImportCommand(rootOpts))
	cmd.AddCommand(newRuleCheckCommand(rootOpts))

	return cmd
}

// RuleChange is the result of a rule mutation.
type RuleChange struct {
	Action string       `json:"action"`
	Rule   model.Record `json:"rule"`
}

// WriteText implements textRenderer.
func (c RuleChange) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s (%s)\n", c.Action, c.Rule.Describe(), period(c.Rule.ValidFrom, c.Rule.ValidTo))
	return err
}

// RuleList is the output of rule list.
type RuleList struct {
	Rules []model.Record `json:"rules"`
}

// WriteText implements textRenderer.
func (l RuleList) WriteText(w io.Writer) error {
	if len(l.Rules) == 0 {
		_, err := fmt.Fprintln(w, "No rules.")
		return err
	}
	for _, r := range l.Rules {
		if _, err := fmt.Fprintf(w, "%-40s %s\n", r.Describe(), period(r.ValidFrom, r.ValidTo)); err != nil {
			return err
		}
	}
	return nil
}

// DropResult reports how many versions a drop removed.
type DropResult struct {
	Dropped int `json:"dropped"`
}

func (d DropResult) String() string {
	return fmt.Sprintf("Dropped %d version(s)", d.Dropped)
}

type ruleAddOptions struct {
	target   string
	kind     string
	unit     string
	from     string
	until    string
	reward   int
	negative bool
}

func newRuleAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ruleAddOptions{}

	cmd := &cobra.Command{
		Use:   "add <habit>",
		Short: "Add or replace a rule version",
		Long: `Add a rule version for a habit. A version with the same habit and
from date replaces the existing one.

The target kind is inferred unless --kind is given: true/false is a bool,
a number is numeric, HH:MM is a time of day, anything else is text. With no
target the rule rewards doing the habit. A choice rule lists its accepted
values with their own rewards and takes no --reward.

Examples:
  tally rule add Steps --target 8000 --reward 2 --unit steps
  tally rule add "Screen time" --target 120 --reward 2 --negative --from 2025-03-01
  tally rule add Meditate --reward 1
  tally rule add Mood --kind choice --target "calm=2|focused=3"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleAdd(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.target, "target", "", "target value")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "target kind (bool|numeric|text|time|choice)")
	cmd.Flags().StringVar(&opts.unit, "unit", "", "display unit")
	cmd.Flags().StringVar(&opts.from, "from", "", "first day the version applies (default today)")
	cmd.Flags().StringVar(&opts.until, "until", "", "first day the version no longer applies (default open-ended)")
	cmd.Flags().IntVar(&opts.reward, "reward", 0, "reward earned when the rule is met")
	cmd.Flags().BoolVar(&opts.negative, "negative", false, "invert the comparison (ceiling, or must-not)")

	return cmd
}

func runRuleAdd(rootOpts *RootOptions, opts *ruleAddOptions, habit string, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	target, err := parseTarget(opts.target, opts.kind)
	if err != nil {
		return f.Fail(ExitCommandError, "invalid target", err)
	}
	_, choice := target.(model.Choices)
	switch rewarded := cmd.Flags().Changed("reward"); {
	case choice && rewarded:
		return f.Fail(ExitCommandError, "invalid rule", errors.New("--reward is taken from the choices"))
	case !choice && !rewarded:
		return f.Fail(ExitCommandError, "invalid rule", errors.New(`required flag "reward" not set`))
	}
	from, err := optionalDate("from", opts.from)
	if err != nil {
		return f.Fail(ExitCommandError, "invalid date", err)
	}
	until, err := optionalDate("until", opts.until)
	if err != nil {
		return f.Fail(ExitCommandError, "invalid date", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), false)
	if err != nil {
		return sessionError(f, err)
	}
	defer s.Close()

	rec, err := s.rules.Add(rulestore.AddRequest{
		Habit:      habit,
		Target:     target,
		Reward:     opts.reward,
		ValidFrom:  from,
		ValidTo:    until,
		IsNegative: opts.negative,
		Unit:       opts.unit,
	})
	if err != nil {
		return f.Fail(ExitCommandError, "add rule", err)
	}
	if err := s.flushRules(ctx); err != nil {
		return f.Fail(ExitCommandError, "save rules", err)
	}

	s.logger.Info("rule added", "habit", rec.Habit, "valid_from", rec.ValidFrom.String())
	return f.Success(RuleChange{Action: "Added", Rule: rec})
}

type ruleDropOptions struct {
	habit  string
	from   string
	until  string
	reward int
}

func newRuleDropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ruleDropOptions{}

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Remove rule versions matching a filter",
		Long: `Remove every rule version matching all given filters.

At least one filter is required.

Examples:
  tally rule drop --habit Steps --from 2025-03-01
  tally rule drop --habit "Screen time"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleDrop(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.habit, "habit", "", "habit name")
	cmd.Flags().StringVar(&opts.from, "from", "", "valid_from date")
	cmd.Flags().StringVar(&opts.until, "until", "", "valid_to date")
	cmd.Flags().IntVar(&opts.reward, "reward", 0, "reward")

	return cmd
}

func runRuleDrop(rootOpts *RootOptions, opts *ruleDropOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	var filter model.Filter
	if cmd.Flags().Changed("habit") {
		filter.Habit = &opts.habit
	}
	if cmd.Flags().Changed("reward") {
		filter.Reward = &opts.reward
	}
	var err error
	if filter.ValidFrom, err = optionalDate("from", opts.from); err != nil {
		return f.Fail(ExitCommandError, "invalid date", err)
	}
	if filter.ValidTo, err = optionalDate("until", opts.until); err != nil {
		return f.Fail(ExitCommandError, "invalid date", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), false)
	if err != nil {
		return sessionError(f, err)
	}
	defer s.Close()

	n, err := s.rules.Drop(filter)
	if err != nil {
		return f.Fail(ExitCommandError, "drop rules", err)
	}
	if n > 0 {
		if err := s.flushRules(ctx); err != nil {
			return f.Fail(ExitCommandError, "save rules", err)
		}
	}
	return f.Success(DropResult{Dropped: n})
}

func newRuleListCommand(rootOpts *RootOptions) *cobra.Command {
	var habit, on string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rule versions",
		Long: `List stored rule versions ordered by habit and valid_from.

With --habit only that habit's history is shown; with --on only the
versions in effect on that day.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			day, err := optionalDate("on", on)
			if err != nil {
				return f.Fail(ExitCommandError, "invalid date", err)
			}

			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr(), false)
			if err != nil {
				return sessionError(f, err)
			}
			defer s.Close()

			rules := s.rules.List()
			if habit != "" {
				rules = s.rules.History(habit)
			}
			out := RuleList{Rules: []model.Record{}}
			for _, r := range rules {
				if day == nil || r.Active(*day) {
					out.Rules = append(out.Rules, r)
				}
			}
			return f.Success(out)
		},
	}

	cmd.Flags().StringVar(&habit, "habit", "", "show one habit's history")
	cmd.Flags().StringVar(&on, "on", "", "only versions in effect on this date")

	return cmd
}

// ImportResult reports what a rules file contributed.
type ImportResult struct {
	File     string `json:"file"`
	Rules    int    `json:"rules"`
	Bands    int    `json:"bands"`
	Replaced int    `json:"replaced"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("Imported %d rule(s) and %d sleep band(s) from %s (%d replaced)",
		r.Rules, r.Bands, r.File, r.Replaced)
}

func newRuleImportCommand(rootOpts *RootOptions) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <rules.cue>",
		Short: "Import rules and sleep bands from a CUE file",
		Long: `Compile a CUE rules file and store its rule versions and sleep bands.

Versions are upserted by key. With --replace the file becomes the whole
rule set and anything not in it is removed.

Example:
  tally rule import rules.cue
  tally rule import --replace rules.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleImport(rootOpts, args[0], replace, cmd)
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace all stored rules and bands")

	return cmd
}

func runRuleImport(rootOpts *RootOptions, path string, replace bool, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	rs, err := compileRulesFile(path, rootOpts.today())
	if err != nil {
		return f.Fail(ExitCommandError, "compile rules", err)
	}
	if errs := compiler.Validate(rs); len(errs) > 0 {
		return outputValidationErrors(f, errs)
	}
	f.VerboseLog("Compiled %d rule(s) and %d band(s) from %s", len(rs.Rules), len(rs.Bands), path)

	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), false)
	if err != nil {
		return sessionError(f, err)
	}
	defer s.Close()

	result := ImportResult{File: path, Rules: len(rs.Rules), Bands: len(rs.Bands)}
	if replace {
		if err := s.rules.Replace(rs.Rules); err != nil {
			return f.Fail(ExitCommandError, "replace rules", err)
		}
		if err := s.bands.Replace(rs.Bands); err != nil {
			return f.Fail(ExitCommandError, "replace sleep bands", err)
		}
	} else {
		for _, rec := range rs.Rules {
			replaced, err := s.rules.Upsert(rec)
			if err != nil {
				return f.Fail(ExitCommandError, "import rule", err)
			}
			if replaced {
				result.Replaced++
			}
		}
		for _, b := range rs.Bands {
			replaced, err := s.bands.Upsert(b)
			if err != nil {
				return f.Fail(ExitCommandError, "import sleep band", err)
			}
			if replaced {
				result.Replaced++
			}
		}
	}

	if err := s.flushRules(ctx); err != nil {
		return f.Fail(ExitCommandError, "save rules", err)
	}
	if err := s.flushBands(ctx); err != nil {
		return f.Fail(ExitCommandError, "save sleep bands", err)
	}

	s.logger.Info("rules imported", "file", path, "rules", result.Rules, "bands", result.Bands)
	return f.Success(result)
}

// CheckResult holds the outcome of rule check.
type CheckResult struct {
	Valid  bool                       `json:"valid"`
	Rules  int                        `json:"rules"`
	Bands  int                        `json:"bands"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

func newRuleCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <rules.cue>",
		Short: "Validate a CUE rules file without storing it",
		Long: `Compile and validate a CUE rules file. Nothing is stored.

Exit codes:
  0 - File is valid
  1 - Validation errors
  2 - File could not be read or compiled`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			rs, err := compileRulesFile(args[0], rootOpts.today())
			if err != nil {
				return f.Fail(ExitCommandError, "compile rules", err)
			}
			if errs := compiler.Validate(rs); len(errs) > 0 {
				return outputValidationErrors(f, errs)
			}

			result := CheckResult{Valid: true, Rules: len(rs.Rules), Bands: len(rs.Bands)}
			if f.Format == "json" {
				return f.Success(result)
			}
			fmt.Fprintf(f.Writer, "✓ %s valid: %d rule(s), %d sleep band(s)\n", args[0], result.Rules, result.Bands)
			return nil
		},
	}
}

func compileRulesFile(path string, today model.Date) (*compiler.RuleSet, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(src, path, today)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(f *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	exitErr.Reported = true

	if f.Format == "json" {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   CheckResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(f.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}
