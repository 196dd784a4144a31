package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/store"
)

// Report is the output of the report command.
type Report struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Days   []DayScores `json:"days"`
	Reward int         `json:"reward"`
	Fine   int         `json:"fine"`
	Total  int         `json:"total"`
	Max    int         `json:"max_reward"`

	detail bool
}

// WriteText implements textRenderer.
func (r Report) WriteText(w io.Writer) error {
	if len(r.Days) == 0 {
		_, err := fmt.Fprintf(w, "No scored days between %s and %s.\n", r.From, r.To)
		return err
	}
	for _, d := range r.Days {
		fmt.Fprintln(w, summaryLine(d.DaySummary))
		if r.detail {
			for _, row := range d.Scores {
				writeScoreRow(w, row)
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d day(s)  reward %d  fine %d  total %d  max %d\n", len(r.Days), r.Reward, r.Fine, r.Total, r.Max)
	return err
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string
	var detail bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show stored day totals",
		Long: `Show the stored reward, fine and total of each scored day in a range,
and the sum over the range. Defaults to yesterday.

Examples:
  tally report --from 2025-03-01 --to 2025-03-31
  tally report --from 2025-03-10 --scores`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			start, end, err := dateRange(from, to, rootOpts.today().AddDays(-1))
			if err != nil {
				return f.Fail(ExitCommandError, "invalid range", err)
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), true)
			if err != nil {
				return sessionError(f, err)
			}
			defer s.Close()

			sums, err := s.db.Summaries(ctx, start, end)
			if err != nil {
				return f.Fail(ExitCommandError, "read summaries", err)
			}

			report := Report{From: start.String(), To: end.String(), Days: []DayScores{}, detail: detail}
			for _, sum := range sums {
				day := DayScores{DaySummary: sum, Scores: []store.ScoreRow{}}
				if detail {
					rows, err := s.db.Scores(ctx, sum.Date)
					if err != nil {
						return f.Fail(ExitCommandError, "read scores", err)
					}
					if rows != nil {
						day.Scores = rows
					}
				}
				report.Days = append(report.Days, day)
				report.Reward += sum.Reward
				report.Fine += sum.Fine
				report.Total += sum.Total
				report.Max += sum.MaxReward
			}
			return f.Success(report)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (default yesterday)")
	cmd.Flags().StringVar(&to, "to", "", "last date (default --from)")
	cmd.Flags().BoolVar(&detail, "scores", false, "include each day's scored rows")

	return cmd
}
