package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/note"
	"github.com/roach88/tally/internal/store"
)

// DayScores is one stored day with its rows.
type DayScores struct {
	store.DaySummary
	Scores []store.ScoreRow `json:"scores"`
}

// ScoreReport is the output of score and rescore.
type ScoreReport struct {
	RunID  string      `json:"run_id,omitempty"`
	Days   []DayScores `json:"days"`
	Failed int         `json:"failed"`
}

// WriteText implements textRenderer.
func (r ScoreReport) WriteText(w io.Writer) error {
	if len(r.Days) == 0 {
		_, err := fmt.Fprintln(w, "No days scored.")
		return err
	}
	for i, d := range r.Days {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, summaryLine(d.DaySummary))
		for _, row := range d.Scores {
			writeScoreRow(w, row)
		}
	}
	if r.Failed > 0 {
		fmt.Fprintf(w, "\n✗ %d observation(s) not scored\n", r.Failed)
	}
	return nil
}

func summaryLine(s store.DaySummary) string {
	line := fmt.Sprintf("%s  reward %d  fine %d  total %d  max %d", s.Date, s.Reward, s.Fine, s.Total, s.MaxReward)
	if s.SleptMinutes != nil {
		line += fmt.Sprintf("  slept %dh%02dm", *s.SleptMinutes/60, *s.SleptMinutes%60)
	}
	return line
}

func writeScoreRow(w io.Writer, row store.ScoreRow) {
	switch {
	case row.Error != "":
		fmt.Fprintf(w, "  ✗ %-5s %-24s %-16s %s\n", row.Source, row.Name, row.Display, row.Error)
	case !row.Scored:
		fmt.Fprintf(w, "  - %-5s %-24s %-16s untracked\n", row.Source, row.Name, row.Display)
	default:
		mark := "✗"
		if row.Completed {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %-5s %-24s %-16s %+d\n", mark, row.Source, row.Name, row.Display, row.Reward)
	}
}

type scoreOptions struct {
	from string
	to   string
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score [date]",
		Short: "Score daily notes and store the results",
		Long: `Read the daily note for a date from the vault, score it with the rules
in effect on that date, and store the inputs and scores.

Without arguments yesterday's note is scored. With --from/--to every note
in the range is scored under one run ID. Scoring a day again replaces its
stored result.

Exit codes:
  0 - Every observation scored
  1 - Some observations could not be scored (the rest are stored)
  2 - Command error (missing note, bad config)

Examples:
  tally score
  tally score 2025-03-10
  tally score --from 2025-03-01 --to 2025-03-31`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "first date of a range")
	cmd.Flags().StringVar(&opts.to, "to", "", "last date of a range")

	return cmd
}

func runScore(rootOpts *RootOptions, opts *scoreOptions, args []string, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	ranged := opts.from != "" || opts.to != ""
	if ranged && len(args) > 0 {
		return f.Fail(ExitCommandError, "invalid arguments", errors.New("a date argument cannot be combined with --from/--to"))
	}
	yesterday := rootOpts.today().AddDays(-1)
	from, to := yesterday, yesterday
	if len(args) == 1 {
		d, err := model.ParseDate(args[0])
		if err != nil {
			return f.Fail(ExitCommandError, "invalid date", err)
		}
		from, to = d, d
	} else if ranged {
		var err error
		if from, to, err = dateRange(opts.from, opts.to, yesterday); err != nil {
			return f.Fail(ExitCommandError, "invalid range", err)
		}
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), true)
	if err != nil {
		return sessionError(f, err)
	}
	defer s.Close()

	days, err := readNotes(s, from, to, ranged)
	if err != nil {
		return f.Fail(ExitCommandError, "read notes", err)
	}

	report, err := scoreAndRecord(ctx, s, days)
	if err != nil {
		return f.Fail(ExitCommandError, "record scores", err)
	}
	return finishScoring(f, report)
}

// readNotes loads the notes of [from, to]. A single requested date must
// have a note; in a range, dates without one are skipped.
func readNotes(s *session, from, to model.Date, ranged bool) ([]model.Day, error) {
	v := s.vault()
	if !ranged {
		day, err := v.Day(from)
		if err != nil {
			return nil, err
		}
		return []model.Day{day}, nil
	}

	dates, err := v.Dates()
	if err != nil {
		return nil, err
	}
	var days []model.Day
	for _, d := range dates {
		if d < from || d > to {
			continue
		}
		day, err := v.Day(d)
		if errors.Is(err, note.ErrNoNote) {
			continue
		}
		if err != nil {
			s.logger.Warn("note skipped", "date", d.String(), "error", err)
			continue
		}
		days = append(days, day)
	}
	s.logger.Debug("notes read", "from", from.String(), "to", to.String(), "days", len(days))
	return days, nil
}

// scoreAndRecord scores days under one run ID, stores each and reads the
// stored rows back.
func scoreAndRecord(ctx context.Context, s *session, days []model.Day) (ScoreReport, error) {
	report := ScoreReport{Days: []DayScores{}}
	if len(days) == 0 {
		return report, nil
	}

	results := s.scorer().ScoreDays(days)
	for i, res := range results {
		if err := s.db.RecordDay(ctx, days[i], res); err != nil {
			return report, err
		}
		report.RunID = res.RunID
		report.Failed += res.Totals().Failed
		for _, failure := range res.Failures() {
			if oe, ok := engine.AsObservationError(failure.Err); ok {
				s.logger.Warn("observation not scored", "source", oe.Source, "name", oe.Name, "date", oe.Date.String(), "error", oe.Err)
			}
		}

		day, err := loadDayScores(ctx, s.db, res.Date)
		if err != nil {
			return report, err
		}
		report.Days = append(report.Days, day)
	}
	return report, nil
}

func loadDayScores(ctx context.Context, db *store.Store, date model.Date) (DayScores, error) {
	sums, err := db.Summaries(ctx, date, date)
	if err != nil {
		return DayScores{}, err
	}
	if len(sums) == 0 {
		return DayScores{}, fmt.Errorf("day %s not recorded", date)
	}
	rows, err := db.Scores(ctx, date)
	if err != nil {
		return DayScores{}, err
	}
	if rows == nil {
		rows = []store.ScoreRow{}
	}
	return DayScores{DaySummary: sums[0], Scores: rows}, nil
}

// finishScoring writes the report. Unscored observations make the command
// fail after everything else is stored and shown.
func finishScoring(f *OutputFormatter, report ScoreReport) error {
	if err := f.Success(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		exitErr := NewExitError(ExitFailure, fmt.Sprintf("%d observation(s) not scored", report.Failed))
		exitErr.Reported = true
		return exitErr
	}
	return nil
}

type rescoreOptions struct {
	from string
	to   string
}

// NewRescoreCommand creates the rescore command.
func NewRescoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &rescoreOptions{}

	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Score stored days again with the current rules",
		Long: `Re-evaluate the stored inputs of every recorded day in a range with the
rules as they are now, replacing the stored scores. Use this after adding
a rule version retroactively. Notes are not read.

Example:
  tally rescore --from 2025-03-01 --to 2025-03-31`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRescore(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "first date (required)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last date (default --from)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runRescore(rootOpts *RootOptions, opts *rescoreOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	from, to, err := dateRange(opts.from, opts.to, rootOpts.today())
	if err != nil {
		return f.Fail(ExitCommandError, "invalid range", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), true)
	if err != nil {
		return sessionError(f, err)
	}
	defer s.Close()

	days, err := s.db.ReadDays(ctx, from, to)
	if err != nil {
		return f.Fail(ExitCommandError, "read stored days", err)
	}
	f.VerboseLog("Rescoring %d stored day(s)", len(days))

	report, err := scoreAndRecord(ctx, s, days)
	if err != nil {
		return f.Fail(ExitCommandError, "record scores", err)
	}
	return finishScoring(f, report)
}
