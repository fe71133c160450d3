package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugvet",
		Short: "Plugvet - validation and performance vetting for engine plugins",
		Long: `Plugvet vets game-engine plugins against a matrix of validation tasks
and platform envelopes.

It discovers task descriptors, executes them against each platform profile,
scores the results, tracks per-platform baselines to flag performance
regressions, and decides whether the build may pass the pipeline gate.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newBaselineCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the plugvet version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "plugvet %s\n", version) //nolint:errcheck
		},
	}
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
