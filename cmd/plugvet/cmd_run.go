package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plugvet/plugvet/internal/aggregate"
	"github.com/plugvet/plugvet/internal/artifacts"
	"github.com/plugvet/plugvet/internal/baseline"
	"github.com/plugvet/plugvet/internal/config"
	"github.com/plugvet/plugvet/internal/descriptor"
	"github.com/plugvet/plugvet/internal/engine"
	"github.com/plugvet/plugvet/internal/gitinfo"
	"github.com/plugvet/plugvet/internal/hooks"
	"github.com/plugvet/plugvet/internal/models"
	"github.com/plugvet/plugvet/internal/orchestrate"
	"github.com/plugvet/plugvet/internal/projectconfig"
	"github.com/plugvet/plugvet/internal/regression"
	"github.com/plugvet/plugvet/internal/registry"
	"github.com/plugvet/plugvet/internal/reporting"
	"github.com/plugvet/plugvet/internal/scoring"
	"github.com/plugvet/plugvet/internal/spinner"
)

var (
	runTaskFilters  []string
	runPlatforms    []string
	runProfilesPath string
	runFormats      string
	runOutputDir    string
	runConcurrency  int
	runTimeout      time.Duration
	runBaselineDB   string
	runNoBaseline   bool
	runBundle       bool
	runVerbose      bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [tasks-dir]",
		Short: "Run the validation matrix and gate the build",
		Long: `Run every discovered validation task against each selected platform.

Task descriptors are matched against platform envelopes, executed on a
worker pool, scored, and rolled up into a single report. When baselines
are enabled the run is compared against stored history and appended to
it. The command exits non-zero when the pipeline gate is blocked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringArrayVar(&runTaskFilters, "task", nil, "Filter tasks by name glob pattern (can be repeated)")
	cmd.Flags().StringArrayVar(&runPlatforms, "platform", nil, "Platform to vet against (can be repeated)")
	cmd.Flags().StringVar(&runProfilesPath, "profiles", "", "Platform profiles YAML (default: built-in envelopes)")
	cmd.Flags().StringVarP(&runFormats, "output-format", "f", "", "Comma-separated report formats: structured, ci-annotations, human-summary, junit")
	cmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "Directory for report files")
	cmd.Flags().IntVarP(&runConcurrency, "concurrency", "c", 0, "Concurrent executions (default: one per CPU)")
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-execution timeout (default: derived from task cost)")
	cmd.Flags().StringVar(&runBaselineDB, "baseline-db", "", "Baseline history database path")
	cmd.Flags().BoolVar(&runNoBaseline, "no-baseline", false, "Skip regression detection for this run")
	cmd.Flags().BoolVar(&runBundle, "bundle", false, "Bundle report files into a content-addressed artifact")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose per-unit progress")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pc, err := projectconfig.Load(".")
	if err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}

	taskRoot := pc.Paths.Tasks
	if len(args) > 0 {
		taskRoot = args[0]
	}
	cfg := config.NewRunConfig(taskRoot, append(config.FromProject(pc), flagOptions()...)...)

	formats, err := reporting.ParseFormats(cfg.Formats())
	if err != nil {
		return err
	}

	profiles, err := loadProfiles(cfg)
	if err != nil {
		return err
	}

	hookRunner := &hooks.Runner{Verbose: runVerbose, Out: cmd.OutOrStdout()}
	if err := hookRunner.Execute(ctx, "before_run", pc.Hooks.BeforeRun, nil); err != nil {
		return err
	}

	policy := scoring.DefaultPolicy()
	reg := registry.New(descriptor.NewParser(policy))

	stop := spinner.StartIfTTY(cmd.OutOrStdout(), "discovering tasks")
	err = reg.Discover(ctx, cfg.TaskRoot())
	stop()
	if err != nil {
		return err
	}
	for _, failure := range reg.Failures() {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", failure.Path, failure.Err) //nolint:errcheck
	}

	runtimes := engine.SimRuntimes(profiles,
		engine.WithSampleInterval(time.Duration(pc.Sampler.IntervalMs)*time.Millisecond),
		engine.WithSampleCapacity(pc.Sampler.Capacity),
	)
	eng := engine.New(policy, runtimes, engine.WithResolver(reg))

	runner := orchestrate.NewRunner(reg, eng,
		orchestrate.WithWorkers(cfg.Concurrency()),
		orchestrate.WithTaskFilters(cfg.TaskFilters()...),
		orchestrate.WithUnitTimeout(cfg.UnitTimeout()),
	)
	out := cmd.OutOrStdout()
	if runVerbose {
		runner.OnProgress(verboseProgressListener(out))
	} else {
		runner.OnProgress(simpleProgressListener(out))
	}

	fmt.Fprintf(out, "Vetting %d task(s) across %d platform(s)\n\n", reg.Len(), len(profiles)) //nolint:errcheck

	results, err := runner.Run(ctx, profiles)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if runVerbose {
		printTelemetry(out, eng)
	}

	identity, err := gitinfo.Detect(".")
	if err != nil {
		slog.Debug("build identity unavailable", "error", err)
	}

	var aggOpts []aggregate.Option
	if identity != (models.BuildIdentity{}) {
		aggOpts = append(aggOpts, aggregate.WithBuildIdentity(&identity))
	}
	report := aggregate.Aggregate(results, aggOpts...)

	if cfg.BaselineEnabled() {
		if err := attachRegressions(ctx, cfg, report, results, identity); err != nil {
			return err
		}
	}

	written, err := writeReports(out, cfg, formats, report, results)
	if err != nil {
		return err
	}

	if runBundle && len(written) > 0 {
		bundlePath, err := artifacts.NewBundler(cfg.ArtifactsDir()).Bundle(report.RunID, written)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Artifact bundle: %s\n", bundlePath) //nolint:errcheck
	}

	// Publish hooks run last so they can pick up the written reports.
	gate := "passed"
	if report.GateBlocked() {
		gate = "blocked"
	}
	hookEnv := []string{
		"PLUGVET_RUN_ID=" + report.RunID,
		"PLUGVET_GATE=" + gate,
		"PLUGVET_OUTPUT_DIR=" + cfg.OutputDir(),
	}
	if err := hookRunner.Execute(ctx, "after_run", pc.Hooks.AfterRun, hookEnv); err != nil {
		return err
	}

	if report.GateBlocked() {
		return &GateBlockedError{Message: gateMessage(report)}
	}
	return nil
}

// flagOptions translates run flags into config options. Only set flags
// produce options, so project-file settings survive unless overridden.
func flagOptions() []config.Option {
	var opts []config.Option
	if len(runTaskFilters) > 0 {
		opts = append(opts, config.WithTaskFilters(runTaskFilters...))
	}
	if len(runPlatforms) > 0 {
		opts = append(opts, config.WithPlatformFilters(runPlatforms...))
	}
	if runFormats != "" {
		opts = append(opts, config.WithFormats(runFormats))
	}
	if runOutputDir != "" {
		opts = append(opts, config.WithOutputDir(runOutputDir))
	}
	if runConcurrency > 0 {
		opts = append(opts, config.WithConcurrency(runConcurrency))
	}
	if runTimeout > 0 {
		opts = append(opts, config.WithUnitTimeout(runTimeout))
	}
	if runBaselineDB != "" {
		opts = append(opts, config.WithBaselineDB(runBaselineDB))
	}
	if runNoBaseline {
		opts = append(opts, config.WithoutBaseline())
	}
	return opts
}

// loadProfiles resolves the platform envelopes for the run: the built-in
// set or a profiles file, narrowed to the requested platforms.
func loadProfiles(cfg *config.RunConfig) ([]*models.PlatformProfile, error) {
	profiles := engine.DefaultProfiles()
	if runProfilesPath != "" {
		loaded, err := engine.LoadProfiles(runProfilesPath)
		if err != nil {
			return nil, err
		}
		profiles = loaded
	}
	return engine.SelectProfiles(profiles, cfg.PlatformFilters())
}

// attachRegressions compares the run against baseline history, records it,
// and folds noteworthy regressions into the report before the gate decision.
func attachRegressions(ctx context.Context, cfg *config.RunConfig, report *models.AggregateReport, results []*models.ExecutionResult, identity models.BuildIdentity) error {
	store, err := baseline.Open(cfg.BaselineDB(), baseline.WithHistoryBound(cfg.HistoryBound()))
	if err != nil {
		return fmt.Errorf("opening baseline store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	detector := regression.New(store, regression.WithThreshold(cfg.RegressionThreshold()))
	regressions, err := detector.DetectRun(ctx, results, identity)
	if err != nil {
		return fmt.Errorf("detecting regressions: %w", err)
	}

	report.Regressions = regressions
	report.GatePassed = !report.GateBlocked()
	return nil
}

// writeReports renders every requested format. File formats land in the
// output directory; the human summary prints to out. Returns the paths of
// the files written.
func writeReports(out io.Writer, cfg *config.RunConfig, formats []reporting.Format, report *models.AggregateReport, results []*models.ExecutionResult) ([]string, error) {
	var written []string

	for _, format := range formats {
		if format == reporting.FormatHumanSummary {
			fmt.Fprintln(out, reporting.RenderSummary(report)) //nolint:errcheck
			continue
		}

		if err := os.MkdirAll(cfg.OutputDir(), 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
		path := filepath.Join(cfg.OutputDir(), reporting.FileNameFor(format))

		var err error
		switch format {
		case reporting.FormatStructured:
			err = writeToFile(path, func(f *os.File) error {
				return reporting.WriteStructured(f, report)
			})
		case reporting.FormatCIAnnotations:
			err = writeToFile(path, func(f *os.File) error {
				return reporting.WriteCIAnnotations(f, results)
			})
		case reporting.FormatJUnit:
			err = reporting.WriteJUnitXML(report, results, path)
		}
		if err != nil {
			return nil, fmt.Errorf("writing %s report: %w", format, err)
		}
		written = append(written, path)
		fmt.Fprintf(out, "Report written: %s\n", path) //nolint:errcheck
	}

	return written, nil
}

func writeToFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

// gateMessage names what blocked the gate, for the exit-1 error line.
func gateMessage(report *models.AggregateReport) string {
	var parts []string
	if report.OverallStatus == models.StatusNoResults {
		parts = append(parts, "no results")
	}
	if report.FailedTasks > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", report.FailedTasks))
	}
	if report.ErrorTasks > 0 {
		parts = append(parts, fmt.Sprintf("%d errored", report.ErrorTasks))
	}
	critical := 0
	for _, reg := range report.Regressions {
		if reg.Severity == models.RegressionCritical {
			critical++
		}
	}
	if critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical regression(s)", critical))
	}
	return "gate blocked: " + strings.Join(parts, ", ")
}

// printTelemetry reports what each platform sampler observed while the
// run executed.
func printTelemetry(out io.Writer, eng *engine.Engine) {
	for _, name := range eng.Platforms() {
		rt, ok := eng.Runtime(name)
		if !ok || rt.Sampler() == nil {
			continue
		}
		s := rt.Sampler().Summarize()
		if s.Samples == 0 {
			continue
		}
		fmt.Fprintf(out, "%s telemetry: %.1f fps ±%.1f, frame %.2f ms, peak memory %.0f MB over %d samples\n", //nolint:errcheck
			name, s.MeanFPS, s.FPSConfidence, s.MeanFrameMs, s.PeakMemoryMB, s.Samples)
	}
}

func verboseProgressListener(out io.Writer) orchestrate.ProgressListener {
	return func(event orchestrate.ProgressEvent) {
		switch event.EventType {
		case orchestrate.EventRunStart:
			fmt.Fprintf(out, "Executing %d unit(s)...\n", event.TotalUnits) //nolint:errcheck
		case orchestrate.EventUnitStart:
			fmt.Fprintf(out, "[%d/%d] %s on %s\n", event.UnitNum, event.TotalUnits, event.Task, event.Platform) //nolint:errcheck
		case orchestrate.EventUnitComplete:
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(out, "[%d/%d] %s on %s: %s score=%.1f (%v)\n", //nolint:errcheck
				event.UnitNum, event.TotalUnits, event.Task, event.Platform, event.Status, event.Score, duration)
		case orchestrate.EventRunComplete:
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(out, "Run completed in %v\n\n", duration) //nolint:errcheck
		}
	}
}

func simpleProgressListener(out io.Writer) orchestrate.ProgressListener {
	return func(event orchestrate.ProgressEvent) {
		if event.EventType != orchestrate.EventUnitComplete {
			return
		}
		icon := "✓"
		if event.Status != models.StatusPassed {
			icon = "✗"
		}
		fmt.Fprintf(out, "%s [%d/%d] %s on %s\n", icon, event.UnitNum, event.TotalUnits, event.Task, event.Platform) //nolint:errcheck
	}
}
