package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugvet/plugvet/internal/baseline"
	"github.com/plugvet/plugvet/internal/models"
	"github.com/plugvet/plugvet/internal/projectconfig"
	"github.com/plugvet/plugvet/internal/statistics"
)

var (
	baselineDBFlag    string
	baselineKeep      int
	baselineAccount   string
	baselineContainer string
	baselineBlob      string
)

func newBaselineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Inspect and manage baseline score history",
		Long: `Baseline histories are the per-(task, platform) score windows that
regression detection compares new runs against. These subcommands
inspect the local history database, shrink it, and mirror it through
Azure Blob Storage so CI jobs on fresh hosts can share one history.`,
	}
	cmd.PersistentFlags().StringVar(&baselineDBFlag, "baseline-db", "", "Baseline history database path")

	cmd.AddCommand(newBaselineShowCommand())
	cmd.AddCommand(newBaselineTrimCommand())
	cmd.AddCommand(newBaselinePushCommand())
	cmd.AddCommand(newBaselinePullCommand())
	return cmd
}

// openBaselineStore resolves the database path from the flag or the
// project file and opens it with the configured history bound.
func openBaselineStore() (*baseline.SQLiteStore, error) {
	pc, err := projectconfig.Load(".")
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	path := pc.Baseline.DB
	if baselineDBFlag != "" {
		path = baselineDBFlag
	}
	return baseline.Open(path, baseline.WithHistoryBound(pc.Baseline.HistoryBound))
}

func newBaselineShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [task] [platform]",
		Short: "Show stored baseline history",
		Long: `Without arguments, list every (task, platform) history with its entry
count and latest score. With a task name, list that task's histories.
With a task and platform, print the full history window newest first.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openBaselineStore()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			if len(args) == 2 {
				return showHistory(cmd, store, args[0], args[1])
			}
			taskFilter := ""
			if len(args) == 1 {
				taskFilter = args[0]
			}
			return showKeys(cmd, store, taskFilter)
		},
	}
}

func showKeys(cmd *cobra.Command, store *baseline.SQLiteStore, taskFilter string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}
	if taskFilter != "" {
		filtered := keys[:0]
		for _, k := range keys {
			if k.TaskName == taskFilter {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, "No baseline history recorded.") //nolint:errcheck
		return nil
	}

	nameWidth := len("Task")
	for _, k := range keys {
		if len(k.TaskName) > nameWidth {
			nameWidth = len(k.TaskName)
		}
	}
	if nameWidth > 30 {
		nameWidth = 30
	}

	const colPlatform = 16
	const colEntries = 8
	const colScore = 7
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", //nolint:errcheck
		padRight("Task", nameWidth),
		padRight("Platform", colPlatform),
		padRight("Entries", colEntries),
		padRight("Latest", colScore),
		"Recorded")
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", nameWidth+colPlatform+colEntries+colScore+28)) //nolint:errcheck

	for _, k := range keys {
		history, err := store.History(ctx, k.TaskName, k.Platform, 1)
		if err != nil {
			return err
		}
		full, err := store.History(ctx, k.TaskName, k.Platform, 0)
		if err != nil {
			return err
		}
		latest := "—"
		recorded := "—"
		if len(history) > 0 {
			latest = fmt.Sprintf("%.1f", history[0].OverallScore)
			recorded = history[0].Timestamp.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n", //nolint:errcheck
			padRight(truncateName(k.TaskName, nameWidth), nameWidth),
			padRight(k.Platform, colPlatform),
			padRight(fmt.Sprintf("%d", len(full)), colEntries),
			padRight(latest, colScore),
			recorded)
	}
	return nil
}

func showHistory(cmd *cobra.Command, store *baseline.SQLiteStore, taskName, platform string) error {
	w := cmd.OutOrStdout()

	entries, err := store.History(cmd.Context(), taskName, platform, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(w, "No history for %s/%s.\n", taskName, platform) //nolint:errcheck
		return nil
	}

	fmt.Fprintf(w, "%s/%s: %d entry(ies), newest first\n\n", taskName, platform, len(entries)) //nolint:errcheck
	scores := make([]float64, 0, len(entries))
	for i, entry := range entries {
		fmt.Fprintf(w, "%2d. %s  score %.2f%s\n", //nolint:errcheck
			i+1, entry.Timestamp.Format("2006-01-02 15:04:05"), entry.OverallScore, describeBuild(entry))
		scores = append(scores, entry.OverallScore)
	}

	if len(scores) >= 2 {
		band := statistics.Stability(scores, 0.95)
		fmt.Fprintf(w, "\nWindow mean %.2f, 95%% stability band [%.2f, %.2f]\n", //nolint:errcheck
			band.Mean, band.Lower, band.Upper)
	}
	return nil
}

// describeBuild renders the optional commit suffix for a history row.
func describeBuild(entry models.BaselineEntry) string {
	if entry.BuildIdentity.Commit == "" {
		return ""
	}
	commit := entry.BuildIdentity.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	suffix := "  @" + commit
	if entry.BuildIdentity.Branch != "" {
		suffix += " (" + entry.BuildIdentity.Branch + ")"
	}
	if entry.BuildIdentity.Dirty {
		suffix += " dirty"
	}
	return suffix
}

func newBaselineTrimCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Shrink every history to at most --keep entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if baselineKeep < 1 {
				return fmt.Errorf("--keep must be at least 1, got %d", baselineKeep)
			}
			store, err := openBaselineStore()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			removed, err := store.Trim(cmd.Context(), baselineKeep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entry(ies), keeping at most %d per history.\n", //nolint:errcheck
				removed, baselineKeep)
			return nil
		},
	}
	cmd.Flags().IntVar(&baselineKeep, "keep", baseline.DefaultHistoryBound, "Entries to keep per (task, platform) history")
	return cmd
}

func newBaselinePushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload the baseline history to Azure Blob Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, mirror, err := openMirror()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			if err := mirror.Push(cmd.Context(), store, baselineBlob); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Baseline snapshot pushed.") //nolint:errcheck
			return nil
		},
	}
	addMirrorFlags(cmd)
	return cmd
}

func newBaselinePullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Replace the local baseline history with the remote snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, mirror, err := openMirror()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			if err := mirror.Pull(cmd.Context(), store, baselineBlob); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Baseline snapshot pulled.") //nolint:errcheck
			return nil
		},
	}
	addMirrorFlags(cmd)
	return cmd
}

func addMirrorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&baselineAccount, "account-url", "", "Storage account URL (default: baseline.account_url from .plugvet.yaml)")
	cmd.Flags().StringVar(&baselineContainer, "container", "", "Blob container name (default: baseline.container from .plugvet.yaml)")
	cmd.Flags().StringVar(&baselineBlob, "blob", "", "Blob name (default: "+baseline.DefaultBlobName+")")
}

// openMirror opens the local store and connects to the configured blob
// container. AZURE_STORAGE_CONNECTION_STRING takes precedence over the
// credential chain when set.
func openMirror() (*baseline.SQLiteStore, *baseline.Mirror, error) {
	pc, err := projectconfig.Load(".")
	if err != nil {
		return nil, nil, fmt.Errorf("loading project config: %w", err)
	}

	path := pc.Baseline.DB
	if baselineDBFlag != "" {
		path = baselineDBFlag
	}
	store, err := baseline.Open(path, baseline.WithHistoryBound(pc.Baseline.HistoryBound))
	if err != nil {
		return nil, nil, err
	}

	container := pc.Baseline.Container
	if baselineContainer != "" {
		container = baselineContainer
	}
	if container == "" {
		container = "plugvet-baselines"
	}

	var mirror *baseline.Mirror
	if cs := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); cs != "" {
		mirror, err = baseline.NewMirrorFromConnectionString(cs, container)
	} else {
		accountURL := pc.Baseline.AccountURL
		if baselineAccount != "" {
			accountURL = baselineAccount
		}
		if accountURL == "" {
			store.Close() //nolint:errcheck
			return nil, nil, fmt.Errorf("no storage account configured: set baseline.account_url in .plugvet.yaml or pass --account-url")
		}
		mirror, err = baseline.NewMirror(accountURL, container)
	}
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, nil, err
	}
	return store, mirror, nil
}
