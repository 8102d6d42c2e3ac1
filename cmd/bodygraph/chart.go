package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/bodygraph-engine/internal/chartsvc"
	"github.com/signalsfoundry/bodygraph-engine/internal/config"
	"github.com/signalsfoundry/bodygraph-engine/internal/logging"
	"github.com/signalsfoundry/bodygraph-engine/internal/render"
)

func chartCmd(flags *globalFlags, log logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "chart [instant]",
		Short: "Compute the chart for an activation instant",
		Long:  "Compute activations, channels, and centers for an activation instant (RFC 3339, YYYY-MM-DD, or now).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instant, err := parseInstant(firstArg(args), time.Now)
			if err != nil {
				return err
			}
			src, err := newChartSource(flags, log)
			if err != nil {
				return err
			}
			defer src.close()

			chart, err := src.compute(cmd.Context(), instant)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.json {
				st, err := chartsvc.EncodeChart(chart)
				if err != nil {
					return err
				}
				s, err := formatJSON(st)
				if err != nil {
					return err
				}
				fmt.Fprint(out, s)
				return nil
			}
			fmt.Fprint(out, render.New(flags.pretty).Chart(chart))
			return nil
		},
	}
}

func priorCmd(flags *globalFlags, log logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "prior [instant]",
		Short: "Solve the prior moment for an activation instant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instant, err := parseInstant(firstArg(args), time.Now)
			if err != nil {
				return err
			}
			r := render.New(flags.pretty)
			out := cmd.OutOrStdout()

			if flags.remote != "" {
				src, err := newChartSource(flags, log)
				if err != nil {
					return err
				}
				defer src.close()
				chart, err := src.compute(cmd.Context(), instant)
				if err != nil {
					return err
				}
				fmt.Fprint(out, r.Prior(chart.CurrentInstant, chart.PriorInstant, 0))
				return nil
			}

			engine, provider, err := localEngine(flags, log)
			if err != nil {
				return err
			}
			sol, err := engine.SolvePrior(cmd.Context(), instant, provider)
			if err != nil {
				return err
			}
			_, arc := engine.Pivot()
			fmt.Fprint(out, r.Prior(instant, sol.Instant, arc))
			return nil
		},
	}
}

func topologyCmd(flags *globalFlags, log logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Print and validate the centers, channels, and gate wheel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if flags.remote != "" {
				src, err := newChartSource(flags, log)
				if err != nil {
					return err
				}
				defer src.close()
				st, err := src.client.Topology(cmd.Context())
				if err != nil {
					return err
				}
				s, err := formatJSON(st)
				if err != nil {
					return err
				}
				fmt.Fprint(out, s)
				return nil
			}

			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			topo, err := cfg.Topology()
			if err != nil {
				return err
			}
			if flags.json {
				st, err := chartsvc.EncodeTopology(topo)
				if err != nil {
					return err
				}
				s, err := formatJSON(st)
				if err != nil {
					return err
				}
				fmt.Fprint(out, s)
				return nil
			}
			fmt.Fprint(out, render.New(flags.pretty).Topology(topo))
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
