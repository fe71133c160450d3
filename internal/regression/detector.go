// Package regression compares fresh execution scores against persisted
// baseline history and classifies any drop. Detection happens before
// the new score is appended, so a bad run never softens its own
// baseline.
package regression

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/plugvet/plugvet/internal/baseline"
	"github.com/plugvet/plugvet/internal/models"
	"github.com/plugvet/plugvet/internal/statistics"
)

const (
	// DefaultThreshold is the percentage drop below baseline that
	// counts as a regression.
	DefaultThreshold = 10.0
	// DefaultWindow is how many recent entries form the baseline.
	DefaultWindow = 5

	majorAt    = 15.0
	criticalAt = 30.0
)

// Detector runs regression analysis against a baseline store.
type Detector struct {
	store     baseline.Store
	threshold float64
	window    int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold overrides the detection threshold percentage.
func WithThreshold(pct float64) Option {
	return func(d *Detector) {
		if pct > 0 {
			d.threshold = pct
		}
	}
}

// WithWindow overrides how many recent entries form the baseline.
func WithWindow(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.window = n
		}
	}
}

// New builds a Detector on top of store.
func New(store baseline.Store, opts ...Option) *Detector {
	d := &Detector{
		store:     store,
		threshold: DefaultThreshold,
		window:    DefaultWindow,
		locks:     map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// lockFor returns the mutex serializing one (task, platform) key.
// Detection and the follow-up append must be atomic per key or two
// concurrent runs could both compare against the same stale window.
func (d *Detector) lockFor(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[key] = lock
	}
	return lock
}

// Detect compares one scored result against its history, then appends
// the result as a new baseline entry. ERROR results carry no score and
// neither count against the baseline nor extend it.
func (d *Detector) Detect(ctx context.Context, result *models.ExecutionResult, identity models.BuildIdentity) (models.RegressionResult, error) {
	if result.Status == models.StatusError {
		return models.RegressionResult{
			TaskName: result.TaskName,
			Platform: result.Platform,
			Severity: models.RegressionNone,
		}, nil
	}

	lock := d.lockFor(result.Key())
	lock.Lock()
	defer lock.Unlock()

	history, err := d.store.History(ctx, result.TaskName, result.Platform, d.window)
	if err != nil {
		return models.RegressionResult{}, fmt.Errorf("load baseline history for %s: %w", result.Key(), err)
	}

	reg := Compare(result, history, d.threshold)

	entry := models.BaselineEntry{
		Timestamp:      result.Timestamp,
		OverallScore:   result.Score,
		CategoryScores: result.CategoryScores,
		BuildIdentity:  identity,
	}
	if err := d.store.Append(ctx, result.TaskName, result.Platform, entry); err != nil {
		return models.RegressionResult{}, fmt.Errorf("record baseline entry for %s: %w", result.Key(), err)
	}
	return reg, nil
}

// DetectRun analyzes every result in order and returns the noteworthy
// outcomes: detected regressions and freshly established baselines.
func (d *Detector) DetectRun(ctx context.Context, results []*models.ExecutionResult, identity models.BuildIdentity) ([]models.RegressionResult, error) {
	noteworthy := []models.RegressionResult{}
	for _, result := range results {
		reg, err := d.Detect(ctx, result, identity)
		if err != nil {
			return nil, err
		}
		if reg.RegressionDetected || reg.BaselineEstablished {
			noteworthy = append(noteworthy, reg)
		}
	}
	return noteworthy, nil
}

// Compare classifies current against its baseline history. history is
// newest first and already limited to the baseline window, as returned
// by Store.History. Empty history establishes the baseline instead of
// detecting anything.
func Compare(current *models.ExecutionResult, history []models.BaselineEntry, threshold float64) models.RegressionResult {
	reg := models.RegressionResult{
		TaskName:     current.TaskName,
		Platform:     current.Platform,
		CurrentScore: current.Score,
		Severity:     models.RegressionNone,
	}
	if len(history) == 0 {
		reg.BaselineEstablished = true
		return reg
	}

	scores := make([]float64, len(history))
	for i, entry := range history {
		scores[i] = entry.OverallScore
	}
	reg.BaselineScore = statistics.Mean(scores)

	if reg.BaselineScore <= 0 {
		return reg
	}
	reg.RegressionPercentage = (reg.BaselineScore - current.Score) / reg.BaselineScore * 100

	if reg.RegressionPercentage <= threshold {
		return reg
	}
	reg.RegressionDetected = true
	switch {
	case reg.RegressionPercentage >= criticalAt:
		reg.Severity = models.RegressionCritical
	case reg.RegressionPercentage >= majorAt:
		reg.Severity = models.RegressionMajor
	default:
		reg.Severity = models.RegressionMinor
	}
	reg.AffectedCategories = affectedCategories(current, history, threshold)
	reg.RecommendedActions = recommendedActions(reg, threshold)
	return reg
}

// affectedCategories returns the categories whose own score dropped
// past the threshold relative to their baseline means, sorted.
func affectedCategories(current *models.ExecutionResult, history []models.BaselineEntry, threshold float64) []string {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, entry := range history {
		for name, score := range entry.CategoryScores {
			sums[name] += score
			counts[name]++
		}
	}

	var affected []string
	for name, score := range current.CategoryScores {
		count := counts[name]
		if count == 0 {
			continue
		}
		mean := sums[name] / float64(count)
		if mean <= 0 {
			continue
		}
		if (mean-score)/mean*100 > threshold {
			affected = append(affected, name)
		}
	}
	sort.Strings(affected)
	return affected
}

func recommendedActions(reg models.RegressionResult, threshold float64) []string {
	var actions []string
	switch reg.Severity {
	case models.RegressionCritical:
		actions = append(actions, fmt.Sprintf("block the release: %s on %s dropped %.1f%% below its baseline",
			reg.TaskName, reg.Platform, reg.RegressionPercentage))
		actions = append(actions, "bisect the commits since the last baseline entry")
	case models.RegressionMajor:
		actions = append(actions, fmt.Sprintf("schedule a profiling pass for %s on %s before the next release",
			reg.TaskName, reg.Platform))
	default:
		actions = append(actions, fmt.Sprintf("watch %s on %s over the next few runs",
			reg.TaskName, reg.Platform))
	}
	for _, category := range reg.AffectedCategories {
		actions = append(actions, fmt.Sprintf("profile the %s category, it fell more than %.0f%% below baseline",
			category, threshold))
	}
	return actions
}
