package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/model"
)

// NewSleepCommand creates the sleep band command group.
func NewSleepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Manage sleep reward bands",
		Long: `Add, drop and list the banded rules that score the day begin and day
end markers of a note.

A marker earns the reward of the best band it satisfies. A positive band
is met at or after its threshold, a negative band strictly before it.
Thresholds past midnight are written 24:30 or 00:30+1.`,
	}

	cmd.AddCommand(newSleepAddCommand(rootOpts))
	cmd.AddCommand(newSleepDropCommand(rootOpts))
	cmd.AddCommand(newSleepListCommand(rootOpts))

	return cmd
}

// BandChange is the result of a band mutation.
type BandChange struct {
	Action   string     `json:"action"`
	Band     model.Band `json:"band"`
	Replaced bool       `json:"replaced"`
}

// WriteText implements textRenderer.
func (c BandChange) WriteText(w io.Writer) error {
	action := c.Action
	if c.Replaced {
		action = "Replaced"
	}
	_, err := fmt.Fprintf(w, "%s %s (%s)\n", action, c.Band.Describe(), period(c.Band.ValidFrom, c.Band.ValidTo))
	return err
}

// BandList is the output of sleep list.
type BandList struct {
	Bands []model.Band `json:"bands"`
}

// WriteText implements textRenderer.
func (l BandList) WriteText(w io.Writer) error {
	if len(l.Bands) == 0 {
		_, err := fmt.Fprintln(w, "No sleep bands.")
		return err
	}
	for _, b := range l.Bands {
		if _, err := fmt.Fprintf(w, "%-40s %s\n", b.Describe(), period(b.ValidFrom, b.ValidTo)); err != nil {
			return err
		}
	}
	return nil
}

type sleepAddOptions struct {
	threshold string
	from      string
	until     string
	reward    int
	negative  bool
}

func newSleepAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sleepAddOptions{}

	cmd := &cobra.Command{
		Use:   "add <begin|end>",
		Short: "Add or replace a sleep band",
		Long: `Add a band for a marker. A band with the same marker, threshold and
from date replaces the existing one.

Examples:
  tally sleep add begin --threshold 07:00 --reward 2 --negative
  tally sleep add end --threshold 24:30 --reward -2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSleepAdd(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.threshold, "threshold", "", "clock time HH:MM")
	cmd.Flags().StringVar(&opts.from, "from", "", "first day the band applies (default today)")
	cmd.Flags().StringVar(&opts.until, "until", "", "first day the band no longer applies (default open-ended)")
	cmd.Flags().IntVar(&opts.reward, "reward", 0, "reward earned when the band is met")
	cmd.Flags().BoolVar(&opts.negative, "negative", false, "met strictly before the threshold")
	_ = cmd.MarkFlagRequired("threshold")
	_ = cmd.MarkFlagRequired("reward")

	return cmd
}

func runSleepAdd(rootOpts *RootOptions, opts *sleepAddOptions, marker string, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	b := model.Band{
		Reward:     opts.reward,
		IsNegative: opts.negative,
		ValidFrom:  rootOpts.today(),
		ValidTo:    model.OpenEnded,
	}
	var err error
	if b.Marker, err = model.ParseMarker(marker); err != nil {
		return f.Fail(ExitCommandError, "invalid marker", err)
	}
	if b.Threshold, err = model.ParseClock(opts.threshold); err != nil {
		return f.Fail(ExitCommandError, "invalid threshold", err)
	}
	if d, err := optionalDate("from", opts.from); err != nil {
		return f.Fail(ExitCommandError, "invalid date", err)
	} else if d != nil {
		b.ValidFrom = *d
	}
	if d, err := optionalDate("until", opts.until); err != nil {
		return f.Fail(ExitCommandError, "invalid date", err)
	} else if d != nil {
		b.ValidTo = *d
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), false)
	if err != nil {
		return sessionError(f, err)
	}
	defer s.Close()

	replaced, err := s.bands.Upsert(b)
	if err != nil {
		return f.Fail(ExitCommandError, "add sleep band", err)
	}
	if err := s.flushBands(ctx); err != nil {
		return f.Fail(ExitCommandError, "save sleep bands", err)
	}

	s.logger.Info("sleep band added", "marker", b.Marker, "threshold", b.Threshold.String())
	return f.Success(BandChange{Action: "Added", Band: b, Replaced: replaced})
}

type sleepDropOptions struct {
	marker    string
	threshold string
	from      string
	reward    int
}

func newSleepDropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sleepDropOptions{}

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Remove sleep bands matching a filter",
		Long: `Remove every sleep band matching all given filters.

At least one filter is required.

Example:
  tally sleep drop --marker end --threshold 24:30`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSleepDrop(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.marker, "marker", "", "begin or end")
	cmd.Flags().StringVar(&opts.threshold, "threshold", "", "clock time HH:MM")
	cmd.Flags().StringVar(&opts.from, "from", "", "valid_from date")
	cmd.Flags().IntVar(&opts.reward, "reward", 0, "reward")

	return cmd
}

func runSleepDrop(rootOpts *RootOptions, opts *sleepDropOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	var filter model.BandFilter
	if opts.marker != "" {
		m, err := model.ParseMarker(opts.marker)
		if err != nil {
			return f.Fail(ExitCommandError, "invalid marker", err)
		}
		filter.Marker = &m
	}
	if opts.threshold != "" {
		at, err := model.ParseClock(opts.threshold)
		if err != nil {
			return f.Fail(ExitCommandError, "invalid threshold", err)
		}
		filter.Threshold = &at
	}
	if cmd.Flags().Changed("reward") {
		filter.Reward = &opts.reward
	}
	var err error
	if filter.ValidFrom, err = optionalDate("from", opts.from); err != nil {
		return f.Fail(ExitCommandError, "invalid date", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr(), false)
	if err != nil {
		return sessionError(f, err)
	}
	defer s.Close()

	n, err := s.bands.Drop(filter)
	if err != nil {
		return f.Fail(ExitCommandError, "drop sleep bands", err)
	}
	if n > 0 {
		if err := s.flushBands(ctx); err != nil {
			return f.Fail(ExitCommandError, "save sleep bands", err)
		}
	}
	return f.Success(DropResult{Dropped: n})
}

func newSleepListCommand(rootOpts *RootOptions) *cobra.Command {
	var marker string

	return &cobra.Command{
		Use:           "list [begin|end]",
		Short:         "List sleep bands",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if len(args) == 1 {
				marker = args[0]
				if _, err := model.ParseMarker(marker); err != nil {
					return f.Fail(ExitCommandError, "invalid marker", err)
				}
			}

			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr(), false)
			if err != nil {
				return sessionError(f, err)
			}
			defer s.Close()

			out := BandList{Bands: []model.Band{}}
			for _, b := range s.bands.List() {
				if marker == "" || string(b.Marker) == marker {
					out.Bands = append(out.Bands, b)
				}
			}
			return f.Success(out)
		},
	}
}
