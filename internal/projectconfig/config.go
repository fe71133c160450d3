// Package projectconfig provides the ProjectConfig struct and loader for
// .plugvet.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/plugvet/plugvet/internal/hooks"
)

// ConfigFileName is the project configuration file searched for by Load.
const ConfigFileName = ".plugvet.yaml"

// Default values for project configuration. These are the single source of
// truth — New() references them and no other code should duplicate them.
const (
	DefaultTasksDir     = "tasks/"
	DefaultOutputDir    = "reports/"
	DefaultArtifactsDir = ".plugvet/artifacts"

	DefaultConcurrency = 0 // 0 = one worker per CPU
	DefaultFormats     = "human-summary"

	DefaultBaselineDB          = ".plugvet/baselines.db"
	DefaultHistoryBound        = 10
	DefaultRegressionThreshold = 10.0

	DefaultSamplerIntervalMs = 1000
	DefaultSamplerCapacity   = 120
)

// PathsConfig holds directory paths for tasks, reports, and artifacts.
type PathsConfig struct {
	Tasks     string `yaml:"tasks,omitempty"`
	Output    string `yaml:"output,omitempty"`
	Artifacts string `yaml:"artifacts,omitempty"`
}

// DefaultsConfig holds default execution parameters.
type DefaultsConfig struct {
	Concurrency int      `yaml:"concurrency,omitempty"`
	TimeoutMs   int      `yaml:"timeout_ms,omitempty"`
	Platforms   []string `yaml:"platforms,omitempty"`
	Formats     string   `yaml:"formats,omitempty"`
	Debug       *bool    `yaml:"debug,omitempty"`
}

// BaselineConfig holds baseline store and regression settings.
type BaselineConfig struct {
	Enabled      *bool   `yaml:"enabled,omitempty"`
	DB           string  `yaml:"db,omitempty"`
	HistoryBound int     `yaml:"history_bound,omitempty"`
	ThresholdPct float64 `yaml:"threshold_pct,omitempty"`
	AccountURL   string  `yaml:"account_url,omitempty"`
	Container    string  `yaml:"container,omitempty"`
}

// SamplerConfig holds performance sampler settings.
type SamplerConfig struct {
	IntervalMs int `yaml:"interval_ms,omitempty"`
	Capacity   int `yaml:"capacity,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .plugvet.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Baseline BaselineConfig `yaml:"baseline,omitempty"`
	Sampler  SamplerConfig  `yaml:"sampler,omitempty"`
	Hooks    hooks.Config   `yaml:"hooks,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Tasks:     DefaultTasksDir,
			Output:    DefaultOutputDir,
			Artifacts: DefaultArtifactsDir,
		},
		Defaults: DefaultsConfig{
			Concurrency: DefaultConcurrency,
			Formats:     DefaultFormats,
			Debug:       boolPtr(false),
		},
		Baseline: BaselineConfig{
			Enabled:      boolPtr(true),
			DB:           DefaultBaselineDB,
			HistoryBound: DefaultHistoryBound,
			ThresholdPct: DefaultRegressionThreshold,
		},
		Sampler: SamplerConfig{
			IntervalMs: DefaultSamplerIntervalMs,
			Capacity:   DefaultSamplerCapacity,
		},
	}
}

// Load finds .plugvet.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	// Merge file values onto defaults.
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .plugvet.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently
// swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Tasks != "" {
		dst.Paths.Tasks = src.Paths.Tasks
	}
	if src.Paths.Output != "" {
		dst.Paths.Output = src.Paths.Output
	}
	if src.Paths.Artifacts != "" {
		dst.Paths.Artifacts = src.Paths.Artifacts
	}

	// Defaults
	if src.Defaults.Concurrency != 0 {
		dst.Defaults.Concurrency = src.Defaults.Concurrency
	}
	if src.Defaults.TimeoutMs != 0 {
		dst.Defaults.TimeoutMs = src.Defaults.TimeoutMs
	}
	if len(src.Defaults.Platforms) > 0 {
		dst.Defaults.Platforms = src.Defaults.Platforms
	}
	if src.Defaults.Formats != "" {
		dst.Defaults.Formats = src.Defaults.Formats
	}
	if src.Defaults.Debug != nil {
		dst.Defaults.Debug = src.Defaults.Debug
	}

	// Baseline
	if src.Baseline.Enabled != nil {
		dst.Baseline.Enabled = src.Baseline.Enabled
	}
	if src.Baseline.DB != "" {
		dst.Baseline.DB = src.Baseline.DB
	}
	if src.Baseline.HistoryBound != 0 {
		dst.Baseline.HistoryBound = src.Baseline.HistoryBound
	}
	if src.Baseline.ThresholdPct != 0 {
		dst.Baseline.ThresholdPct = src.Baseline.ThresholdPct
	}
	if src.Baseline.AccountURL != "" {
		dst.Baseline.AccountURL = src.Baseline.AccountURL
	}
	if src.Baseline.Container != "" {
		dst.Baseline.Container = src.Baseline.Container
	}

	// Sampler
	if src.Sampler.IntervalMs != 0 {
		dst.Sampler.IntervalMs = src.Sampler.IntervalMs
	}
	if src.Sampler.Capacity != 0 {
		dst.Sampler.Capacity = src.Sampler.Capacity
	}

	// Hooks have no defaults, the file's lists are taken as-is.
	if len(src.Hooks.BeforeRun) > 0 {
		dst.Hooks.BeforeRun = src.Hooks.BeforeRun
	}
	if len(src.Hooks.AfterRun) > 0 {
		dst.Hooks.AfterRun = src.Hooks.AfterRun
	}
}

func boolPtr(b bool) *bool {
	return &b
}
