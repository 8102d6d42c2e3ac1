// Package main provides the bodygraph CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/bodygraph-engine/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	remote     string
	pretty     bool
	json       bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}
	log := logging.NewFromEnv()

	rootCmd := &cobra.Command{
		Use:           "bodygraph",
		Short:         "Resolve bodygraph charts from an activation instant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file (defaults to $BODYGRAPH_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flags.remote, "remote", "", "Address of a chart server; computes locally when empty")
	rootCmd.PersistentFlags().BoolVar(&flags.pretty, "pretty", true, "Colorize output")
	rootCmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Output as JSON")

	rootCmd.AddCommand(
		chartCmd(flags, log),
		priorCmd(flags, log),
		topologyCmd(flags, log),
		watchCmd(flags, log),
	)
	return rootCmd
}
