package models

import "time"

// TaskRollup summarizes one task's results across every platform it ran on.
type TaskRollup struct {
	TaskName   string             `json:"taskName"`
	Status     Status             `json:"status"`
	MeanScore  float64            `json:"meanScore"`
	BestScore  float64            `json:"bestScore"`
	WorstScore float64            `json:"worstScore"`
	Platforms  []string           `json:"platforms"`
	Issues     []Issue            `json:"issues"`
	ByPlatform map[string]float64 `json:"byPlatform"`
}

// PlatformRollup summarizes one platform's results across every task.
type PlatformRollup struct {
	Platform      string  `json:"platform"`
	TaskCount     int     `json:"taskCount"`
	PassedCount   int     `json:"passedCount"`
	PassRate      float64 `json:"passRate"`
	MeanScore     float64 `json:"meanScore"`
	TotalTimeMs   int64   `json:"totalTimeMs"`
	CriticalCount int     `json:"criticalCount"`
}

// RecommendationPriority orders recommendations in reports.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Recommendation is one actionable suggestion derived from rollup shape.
type Recommendation struct {
	Priority RecommendationPriority `json:"priority"`
	Scope    string                 `json:"scope"`
	Message  string                 `json:"message"`
}

// AggregateReport is the recomputable rollup of every ExecutionResult in a
// run. Each aggregation pass builds a fresh report; reports are never
// mutated in place.
type AggregateReport struct {
	RunID               string                    `json:"runId"`
	GeneratedAt         time.Time                 `json:"generatedAt"`
	OverallStatus       Status                    `json:"overallStatus"`
	OverallScore        float64                   `json:"overallScore"`
	TotalTasks          int                       `json:"totalTasks"`
	PassedTasks         int                       `json:"passedTasks"`
	WarningTasks        int                       `json:"warningTasks"`
	FailedTasks         int                       `json:"failedTasks"`
	ErrorTasks          int                       `json:"errorTasks"`
	TotalCriticalIssues int                       `json:"totalCriticalIssues"`
	TotalWarnings       int                       `json:"totalWarnings"`
	PlatformSummary     map[string]PlatformRollup `json:"platformSummary"`
	TaskDetails         map[string]TaskRollup     `json:"taskDetails"`
	Recommendations     []Recommendation          `json:"recommendations"`
	Regressions         []RegressionResult        `json:"regressions"`
	GatePassed          bool                      `json:"gatePassed"`
	BuildIdentity       *BuildIdentity            `json:"buildIdentity,omitempty"`
}

// GateBlocked reports whether the gate decision blocks the pipeline:
// overall FAILED/ERROR/NO_RESULTS, or any CRITICAL regression.
func (r *AggregateReport) GateBlocked() bool {
	switch r.OverallStatus {
	case StatusFailed, StatusError, StatusNoResults:
		return true
	}
	for _, reg := range r.Regressions {
		if reg.Severity == RegressionCritical {
			return true
		}
	}
	return false
}
