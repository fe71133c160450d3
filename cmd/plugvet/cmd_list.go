package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/plugvet/plugvet/internal/descriptor"
	"github.com/plugvet/plugvet/internal/models"
	"github.com/plugvet/plugvet/internal/projectconfig"
	"github.com/plugvet/plugvet/internal/registry"
	"github.com/plugvet/plugvet/internal/scoring"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [tasks-dir]",
		Short: "List discovered validation tasks",
		Long: `Discover task descriptors under the tasks directory and print a
summary table: target platforms, estimated cost, and check-point count.
Documents that fail to parse are listed after the table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := projectconfig.Load(".")
			if err != nil {
				return fmt.Errorf("loading project config: %w", err)
			}
			taskRoot := pc.Paths.Tasks
			if len(args) > 0 {
				taskRoot = args[0]
			}

			reg := registry.New(descriptor.NewParser(scoring.DefaultPolicy()))
			if err := reg.Discover(cmd.Context(), taskRoot); err != nil {
				return err
			}

			printTaskTable(cmd.OutOrStdout(), reg.Tasks())

			for _, notice := range reg.Notices() {
				fmt.Fprintf(cmd.OutOrStdout(), "note: %s: %s\n", notice.Path, notice.Message) //nolint:errcheck
			}
			for _, failure := range reg.Failures() {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", failure.Path, failure.Err) //nolint:errcheck
			}
			return nil
		},
	}
}

func printTaskTable(w io.Writer, tasks []*models.TaskDescriptor) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No validation tasks found.") //nolint:errcheck
		return
	}

	const maxNameWidth = 30
	const minNameWidth = 10

	// Size the name column to the longest task name.
	nameWidth := len("Task")
	for _, task := range tasks {
		if runeLen := utf8.RuneCountInString(task.Name); runeLen > nameWidth {
			nameWidth = runeLen
		}
	}
	if nameWidth > maxNameWidth {
		nameWidth = maxNameWidth
	}
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}

	const colPlatforms = 28
	const colCost = 5
	const colPoints = 7
	totalWidth := nameWidth + colPlatforms + colCost + colPoints + 7 + 8 // 8 = 4 gaps × 2 spaces

	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", //nolint:errcheck
		padRight("Task", nameWidth),
		padRight("Platforms", colPlatforms),
		padRight("Cost", colCost),
		padRight("Points", colPoints),
		"Runtime")
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", totalWidth)) //nolint:errcheck

	for _, task := range tasks {
		platforms := "any"
		if len(task.Requirements.TargetPlatforms) > 0 {
			platforms = strings.Join(task.Requirements.TargetPlatforms, ", ")
		}
		runtime := "—"
		if task.Requirements.RequiresRuntime {
			runtime = "yes"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", //nolint:errcheck
			padRight(truncateName(task.Name, nameWidth), nameWidth),
			padRight(truncateName(platforms, colPlatforms), colPlatforms),
			padRight(fmt.Sprintf("%d", task.EstimatedCost), colCost),
			padRight(fmt.Sprintf("%d", task.PointCount()), colPoints),
			runtime)
	}
	fmt.Fprintf(w, "\n%d task(s)\n", len(tasks)) //nolint:errcheck
}

// truncateName shortens a name to maxLen runes, replacing the last rune with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
