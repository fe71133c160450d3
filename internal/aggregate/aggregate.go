// Package aggregate reduces a run's execution results into a single
// recomputable report: status counts, per-task and per-platform
// rollups, the overall status lattice and actionable recommendations.
//
// Aggregation is order-independent and never mutates its inputs; the
// same results always produce the same report apart from the RunID and
// GeneratedAt metadata.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/plugvet/plugvet/internal/models"
)

// ErrInvalidResult is the reason attached to results the aggregator
// refuses: nil, missing identity, unknown status or score outside
// [0, 10]. Offenders are excluded and logged; aggregation continues
// with the remainder.
var ErrInvalidResult = errors.New("invalid execution result")

func checkResult(r *models.ExecutionResult) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil", ErrInvalidResult)
	case r.TaskName == "" || r.Platform == "":
		return fmt.Errorf("%w: missing task or platform identity", ErrInvalidResult)
	case r.Score < 0 || r.Score > 10:
		return fmt.Errorf("%w: %s score %.2f outside [0, 10]", ErrInvalidResult, r.Key(), r.Score)
	}
	switch r.Status {
	case models.StatusPassed, models.StatusWarning, models.StatusFailed, models.StatusError:
		return nil
	default:
		return fmt.Errorf("%w: %s has unknown status %q", ErrInvalidResult, r.Key(), r.Status)
	}
}

// Option configures report metadata.
type Option func(*models.AggregateReport)

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(r *models.AggregateReport) { r.RunID = id }
}

// WithBuildIdentity attaches the build the run validated.
func WithBuildIdentity(identity *models.BuildIdentity) Option {
	return func(r *models.AggregateReport) { r.BuildIdentity = identity }
}

// Aggregate rolls up execution results into a report. Malformed
// results are dropped with a warning; zero usable results yields a
// NO_RESULTS report with the gate blocked.
func Aggregate(results []*models.ExecutionResult, opts ...Option) *models.AggregateReport {
	valid := make([]*models.ExecutionResult, 0, len(results))
	for _, result := range results {
		if err := checkResult(result); err != nil {
			slog.Warn("excluding result from aggregation", "error", err)
			continue
		}
		valid = append(valid, result)
	}
	results = valid

	report := &models.AggregateReport{
		RunID:           uuid.NewString(),
		GeneratedAt:     time.Now().UTC(),
		TotalTasks:      len(results),
		PlatformSummary: map[string]models.PlatformRollup{},
		TaskDetails:     map[string]models.TaskRollup{},
		Recommendations: []models.Recommendation{},
		Regressions:     []models.RegressionResult{},
	}
	for _, opt := range opts {
		opt(report)
	}

	if len(results) == 0 {
		report.OverallStatus = models.StatusNoResults
		report.GatePassed = false
		return report
	}

	var (
		scoredSum   float64
		scoredCount int
		anyError    bool
		anyFailed   bool
	)
	taskGroups := map[string][]*models.ExecutionResult{}
	platformGroups := map[string][]*models.ExecutionResult{}

	for _, result := range results {
		switch result.Status {
		case models.StatusPassed:
			report.PassedTasks++
		case models.StatusWarning:
			report.WarningTasks++
		case models.StatusFailed:
			report.FailedTasks++
			anyFailed = true
		case models.StatusError:
			report.ErrorTasks++
			anyError = true
		}
		if result.Status != models.StatusError {
			scoredSum += result.Score
			scoredCount++
		}
		report.TotalCriticalIssues += result.CriticalCount()
		report.TotalWarnings += result.WarningCount()

		taskGroups[result.TaskName] = append(taskGroups[result.TaskName], result)
		platformGroups[result.Platform] = append(platformGroups[result.Platform], result)
	}

	if scoredCount > 0 {
		report.OverallScore = scoredSum / float64(scoredCount)
	}

	for name, group := range taskGroups {
		report.TaskDetails[name] = rollupTask(name, group)
	}
	for name, group := range platformGroups {
		report.PlatformSummary[name] = rollupPlatform(name, group)
	}

	switch {
	case anyError:
		report.OverallStatus = models.StatusError
	case anyFailed:
		report.OverallStatus = models.StatusFailed
	case report.TotalCriticalIssues > 0 || report.OverallScore < 7.0:
		report.OverallStatus = models.StatusWarning
	default:
		report.OverallStatus = models.StatusPassed
	}

	report.Recommendations = recommend(report, taskGroups)
	report.GatePassed = !report.GateBlocked()
	return report
}

// rollupTask summarizes one task across the platforms it ran on.
// Scores come from non-ERROR results only; status merges worst-first.
func rollupTask(name string, group []*models.ExecutionResult) models.TaskRollup {
	sort.Slice(group, func(i, j int) bool { return group[i].Platform < group[j].Platform })

	rollup := models.TaskRollup{
		TaskName:   name,
		Status:     models.StatusPassed,
		ByPlatform: map[string]float64{},
		Issues:     []models.Issue{},
	}
	var sum float64
	var scored int
	for _, result := range group {
		rollup.Platforms = append(rollup.Platforms, result.Platform)
		rollup.Status = models.WorseOf(rollup.Status, result.Status)
		rollup.Issues = append(rollup.Issues, result.Issues...)
		if result.Status == models.StatusError {
			continue
		}
		rollup.ByPlatform[result.Platform] = result.Score
		sum += result.Score
		if scored == 0 || result.Score > rollup.BestScore {
			rollup.BestScore = result.Score
		}
		if scored == 0 || result.Score < rollup.WorstScore {
			rollup.WorstScore = result.Score
		}
		scored++
	}
	if scored > 0 {
		rollup.MeanScore = sum / float64(scored)
	}
	return rollup
}

// rollupPlatform summarizes one platform across every task it hosted.
func rollupPlatform(name string, group []*models.ExecutionResult) models.PlatformRollup {
	rollup := models.PlatformRollup{
		Platform:  name,
		TaskCount: len(group),
	}
	var sum float64
	var scored int
	for _, result := range group {
		if result.Status == models.StatusPassed {
			rollup.PassedCount++
		}
		rollup.TotalTimeMs += result.ExecutionTimeMs
		rollup.CriticalCount += result.CriticalCount()
		if result.Status != models.StatusError {
			sum += result.Score
			scored++
		}
	}
	rollup.PassRate = float64(rollup.PassedCount) / float64(len(group))
	if scored > 0 {
		rollup.MeanScore = sum / float64(scored)
	}
	return rollup
}
