package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/bodygraph-engine/internal/logging"
	"github.com/signalsfoundry/bodygraph-engine/internal/render"
	"github.com/signalsfoundry/bodygraph-engine/model"
	"github.com/signalsfoundry/bodygraph-engine/timectrl"
)

func watchCmd(flags *globalFlags, log logging.Logger) *cobra.Command {
	var (
		step  time.Duration
		steps int
		tick  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [start]",
		Short: "Follow transits, printing channels as they open and close",
		Long: `Recompute the chart every step of transit time starting at start
(default now) and print the channels gained and lost since the previous chart.
With --tick 0 the feed runs as fast as charts can be computed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseInstant(firstArg(args), time.Now)
			if err != nil {
				return err
			}
			src, err := newChartSource(flags, log)
			if err != nil {
				return err
			}
			defer src.close()

			mode := timectrl.Accelerated
			if tick > 0 {
				mode = timectrl.RealTime
			}
			tc := timectrl.NewTimeController(start, tick, step, mode)

			r := render.New(flags.pretty)
			out := cmd.OutOrStdout()
			var prev []model.ChannelID
			tc.AddListener(func(ctx context.Context, at time.Time) error {
				chart, err := src.compute(ctx, at)
				if err != nil {
					return fmt.Errorf("chart at %s: %w", at.Format(time.RFC3339), err)
				}
				added, removed := render.ChannelDiff(prev, chart.ActiveChannels)
				prev = chart.ActiveChannels
				fmt.Fprint(out, r.Transit(at, added, removed))
				return nil
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return tc.Run(ctx, steps)
		},
	}
	cmd.Flags().DurationVar(&step, "step", 24*time.Hour, "Transit time advanced per tick")
	cmd.Flags().IntVar(&steps, "steps", 30, "Number of steps to take; 0 runs until interrupted")
	cmd.Flags().DurationVar(&tick, "tick", 0, "Wall-clock pause between steps; 0 for as fast as possible")
	return cmd
}
