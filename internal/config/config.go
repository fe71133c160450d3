// Package config holds the effective settings for a single vetting run.
//
// A RunConfig is assembled in layers: library defaults, then the project
// file (.plugvet.yaml), then command-line flags. Options are applied in the
// order given, so later layers win. Accessors resolve a field's zero value
// to its default, so callers never need to branch on "unset".
package config

import (
	"path/filepath"
	"time"

	"github.com/plugvet/plugvet/internal/projectconfig"
)

// Option mutates a RunConfig during construction.
type Option func(*RunConfig)

// RunConfig carries everything the run pipeline needs. Construct with
// NewRunConfig; fields left at their zero value defer to library defaults.
type RunConfig struct {
	taskRoot        string
	taskFilters     []string
	platformFilters []string
	formats         string
	outputDir       string
	concurrency     int
	unitTimeout     time.Duration
	baselineDB      string
	baselineOff     bool
	historyBound    int
	thresholdPct    float64
	artifactsDir    string
	debug           bool
}

// NewRunConfig builds a RunConfig rooted at taskRoot. An empty taskRoot
// falls back to the project default. Passing a nil Option panics.
func NewRunConfig(taskRoot string, opts ...Option) *RunConfig {
	cfg := &RunConfig{taskRoot: taskRoot}
	for _, opt := range opts {
		if opt == nil {
			panic("config: nil Option passed to NewRunConfig")
		}
		opt(cfg)
	}
	return cfg
}

// TaskRoot returns the directory scanned for task descriptors.
func (c *RunConfig) TaskRoot() string {
	if c.taskRoot == "" {
		return projectconfig.DefaultTasksDir
	}
	return c.taskRoot
}

// TaskFilters returns the task names the run is limited to. Empty means all
// discovered tasks.
func (c *RunConfig) TaskFilters() []string { return c.taskFilters }

// PlatformFilters returns the platforms the run is limited to. Empty means
// every platform the tasks declare.
func (c *RunConfig) PlatformFilters() []string { return c.platformFilters }

// Formats returns the requested report formats as a comma-separated list.
// Empty means the reporting package default.
func (c *RunConfig) Formats() string { return c.formats }

// OutputDir returns the directory reports are written to.
func (c *RunConfig) OutputDir() string {
	if c.outputDir == "" {
		return projectconfig.DefaultOutputDir
	}
	return c.outputDir
}

// Concurrency returns the worker-pool size. Zero or below means one worker
// per CPU.
func (c *RunConfig) Concurrency() int { return c.concurrency }

// UnitTimeout returns the per-unit timeout override. Zero means each unit's
// timeout is derived from its task's estimated cost.
func (c *RunConfig) UnitTimeout() time.Duration { return c.unitTimeout }

// BaselineEnabled reports whether regression detection runs at all.
func (c *RunConfig) BaselineEnabled() bool { return !c.baselineOff }

// BaselineDB returns the path of the baseline history database.
func (c *RunConfig) BaselineDB() string {
	if c.baselineDB == "" {
		return projectconfig.DefaultBaselineDB
	}
	return c.baselineDB
}

// HistoryBound returns how many baseline entries are kept per task/platform.
func (c *RunConfig) HistoryBound() int {
	if c.historyBound <= 0 {
		return projectconfig.DefaultHistoryBound
	}
	return c.historyBound
}

// RegressionThreshold returns the score drop, in percent, that counts as a
// regression.
func (c *RunConfig) RegressionThreshold() float64 {
	if c.thresholdPct <= 0 {
		return projectconfig.DefaultRegressionThreshold
	}
	return c.thresholdPct
}

// ArtifactsDir returns the directory report bundles are stored in.
func (c *RunConfig) ArtifactsDir() string {
	if c.artifactsDir == "" {
		return projectconfig.DefaultArtifactsDir
	}
	return c.artifactsDir
}

// Debug reports whether debug logging is enabled.
func (c *RunConfig) Debug() bool { return c.debug }

// WithTaskFilters limits the run to the named tasks.
func WithTaskFilters(names ...string) Option {
	return func(c *RunConfig) { c.taskFilters = names }
}

// WithPlatformFilters limits the run to the named platforms.
func WithPlatformFilters(names ...string) Option {
	return func(c *RunConfig) { c.platformFilters = names }
}

// WithFormats sets the report formats as a comma-separated list.
func WithFormats(csv string) Option {
	return func(c *RunConfig) { c.formats = csv }
}

// WithOutputDir sets the directory reports are written to.
func WithOutputDir(dir string) Option {
	return func(c *RunConfig) { c.outputDir = dir }
}

// WithConcurrency sets the worker-pool size.
func WithConcurrency(n int) Option {
	return func(c *RunConfig) { c.concurrency = n }
}

// WithUnitTimeout overrides the cost-derived per-unit timeout.
func WithUnitTimeout(d time.Duration) Option {
	return func(c *RunConfig) { c.unitTimeout = d }
}

// WithBaselineDB sets the path of the baseline history database.
func WithBaselineDB(path string) Option {
	return func(c *RunConfig) { c.baselineDB = path }
}

// WithoutBaseline disables regression detection for the run.
func WithoutBaseline() Option {
	return func(c *RunConfig) { c.baselineOff = true }
}

// WithHistoryBound sets how many baseline entries are kept per task/platform.
func WithHistoryBound(n int) Option {
	return func(c *RunConfig) { c.historyBound = n }
}

// WithRegressionThreshold sets the score drop, in percent, that counts as a
// regression.
func WithRegressionThreshold(pct float64) Option {
	return func(c *RunConfig) { c.thresholdPct = pct }
}

// WithArtifactsDir sets the directory report bundles are stored in.
func WithArtifactsDir(dir string) Option {
	return func(c *RunConfig) { c.artifactsDir = dir }
}

// WithDebug enables debug logging.
func WithDebug(v bool) Option {
	return func(c *RunConfig) { c.debug = v }
}

// WithStateDir points both the baseline database and the artifact store at
// dir. Options applied after it override either path individually.
func WithStateDir(dir string) Option {
	return func(c *RunConfig) {
		c.baselineDB = filepath.Join(dir, "baselines.db")
		c.artifactsDir = filepath.Join(dir, "artifacts")
	}
}

// FromProject translates a loaded project file into options. Apply the
// result before flag-derived options so flags keep the last word.
func FromProject(pc *projectconfig.ProjectConfig) []Option {
	if pc == nil {
		return nil
	}
	opts := []Option{
		WithOutputDir(pc.Paths.Output),
		WithArtifactsDir(pc.Paths.Artifacts),
		WithConcurrency(pc.Defaults.Concurrency),
		WithFormats(pc.Defaults.Formats),
		WithBaselineDB(pc.Baseline.DB),
		WithHistoryBound(pc.Baseline.HistoryBound),
		WithRegressionThreshold(pc.Baseline.ThresholdPct),
	}
	if pc.Defaults.TimeoutMs > 0 {
		opts = append(opts, WithUnitTimeout(time.Duration(pc.Defaults.TimeoutMs)*time.Millisecond))
	}
	if len(pc.Defaults.Platforms) > 0 {
		opts = append(opts, WithPlatformFilters(pc.Defaults.Platforms...))
	}
	if pc.Defaults.Debug != nil {
		opts = append(opts, WithDebug(*pc.Defaults.Debug))
	}
	if pc.Baseline.Enabled != nil && !*pc.Baseline.Enabled {
		opts = append(opts, WithoutBaseline())
	}
	return opts
}
