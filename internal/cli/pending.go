package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/model"
)

// Pending is the output of the pending command.
type Pending struct {
	From  string   `json:"from,omitempty"`
	To    string   `json:"to"`
	Dates []string `json:"dates"`
}

// WriteText implements textRenderer.
func (p Pending) WriteText(w io.Writer) error {
	if len(p.Dates) == 0 {
		_, err := fmt.Fprintf(w, "Every note up to %s is scored.\n", p.To)
		return err
	}
	fmt.Fprintf(w, "%d note(s) not scored:\n", len(p.Dates))
	for _, d := range p.Dates {
		fmt.Fprintf(w, "  %s\n", d)
	}
	return nil
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List notes with no stored score",
		Long: `List the dates that have a daily note in the vault but no stored day
totals. Today's note is still being written and is never listed.

Examples:
  tally pending
  tally pending --from 2025-03-01
  tally score --from 2025-03-01 --to 2025-03-31`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			start, err := optionalDate("from", from)
			if err != nil {
				return f.Fail(ExitCommandError, "invalid range", err)
			}
			end := rootOpts.today().AddDays(-1)
			if d, err := optionalDate("to", to); err != nil {
				return f.Fail(ExitCommandError, "invalid range", err)
			} else if d != nil && *d < end {
				end = *d
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), true)
			if err != nil {
				return sessionError(f, err)
			}
			defer s.Close()

			dates, err := s.vault().Dates()
			if err != nil {
				return f.Fail(ExitCommandError, "list notes", err)
			}
			first := end
			if start != nil {
				first = *start
			} else if len(dates) > 0 && dates[0] < first {
				first = dates[0]
			}

			sums, err := s.db.Summaries(ctx, first, end)
			if err != nil {
				return f.Fail(ExitCommandError, "read summaries", err)
			}
			scored := make(map[model.Date]bool, len(sums))
			for _, sum := range sums {
				scored[sum.Date] = true
			}

			out := Pending{To: end.String(), Dates: []string{}}
			if start != nil {
				out.From = start.String()
			}
			for _, d := range dates {
				if d >= first && d <= end && !scored[d] {
					out.Dates = append(out.Dates, d.String())
				}
			}
			s.logger.Debug("pending notes", "from", first.String(), "to", end.String(), "pending", len(out.Dates))
			return f.Success(out)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (default the earliest note)")
	cmd.Flags().StringVar(&to, "to", "", "last date (default yesterday)")

	return cmd
}
