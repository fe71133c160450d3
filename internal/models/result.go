package models

import (
	"fmt"
	"time"
)

// Status represents the outcome status of an execution or a whole run.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusWarning Status = "WARNING"
	StatusFailed  Status = "FAILED"
	StatusError   Status = "ERROR"
	// StatusNoResults is used on aggregate reports when a run produced
	// zero execution results.
	StatusNoResults Status = "NO_RESULTS"
)

// statusRank orders statuses by severity for lattice merging.
// Higher rank wins when combining.
var statusRank = map[Status]int{
	StatusPassed:  0,
	StatusWarning: 1,
	StatusFailed:  2,
	StatusError:   3,
}

// WorseOf returns the more severe of two statuses.
func WorseOf(a, b Status) Status {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}

// IssueSeverity tags an issue as blocking or advisory.
type IssueSeverity string

const (
	IssueCritical IssueSeverity = "CRITICAL"
	IssueWarning  IssueSeverity = "WARNING"
)

// Issue is a single finding emitted while scoring a validation point.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Category string        `json:"category"`
	Message  string        `json:"message"`
}

// ExecutionResult is the immutable outcome of running one task on one
// platform. Keyed by (TaskName, Platform).
type ExecutionResult struct {
	TaskName        string             `json:"taskName"`
	Platform        string             `json:"platform"`
	Status          Status             `json:"status"`
	Score           float64            `json:"score"`
	Issues          []Issue            `json:"issues"`
	CategoryScores  map[string]float64 `json:"categoryScores,omitempty"`
	ExecutionTimeMs int64              `json:"executionTimeMs"`
	Timestamp       time.Time          `json:"timestamp"`
	// ErrorMsg is set when Status == StatusError.
	ErrorMsg string `json:"errorMsg,omitempty"`
}

// Key returns the (task, platform) identity string used by the baseline
// store and the aggregator.
func (r *ExecutionResult) Key() string {
	return fmt.Sprintf("%s/%s", r.TaskName, r.Platform)
}

// CriticalCount returns the number of CRITICAL issues on the result.
func (r *ExecutionResult) CriticalCount() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == IssueCritical {
			n++
		}
	}
	return n
}

// WarningCount returns the number of WARNING issues on the result.
func (r *ExecutionResult) WarningCount() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == IssueWarning {
			n++
		}
	}
	return n
}

// DeriveStatus applies the status lattice to a scored result.
// Precedence, highest first: ERROR (set by the engine directly), FAILED on
// any CRITICAL issue or score < 4, WARNING on score < 7 or more than two
// warnings, otherwise PASSED. CRITICAL presence forces FAILED regardless of
// the numeric score.
func DeriveStatus(score float64, issues []Issue) Status {
	criticals := 0
	warnings := 0
	for _, is := range issues {
		switch is.Severity {
		case IssueCritical:
			criticals++
		case IssueWarning:
			warnings++
		}
	}
	switch {
	case criticals > 0 || score < 4.0:
		return StatusFailed
	case score < 7.0 || warnings > 2:
		return StatusWarning
	default:
		return StatusPassed
	}
}

// NewErrorResult builds an ERROR result for executions that never produced
// a score (pre-validation failure, timeout, engine panic).
func NewErrorResult(taskName, platform, msg string) *ExecutionResult {
	return &ExecutionResult{
		TaskName:  taskName,
		Platform:  platform,
		Status:    StatusError,
		Score:     0,
		Issues:    []Issue{},
		Timestamp: time.Now().UTC(),
		ErrorMsg:  msg,
	}
}
