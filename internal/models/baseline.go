package models

import "time"

// BuildIdentity records the code revision a run executed against.
// Populated from the enclosing git repository when one exists.
type BuildIdentity struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
	Dirty  bool   `json:"dirty,omitempty"`
}

// BaselineEntry is one persisted historical record for a (task, platform)
// key. Entries form a bounded FIFO history; they are appended after
// regression analysis and never edited in place.
type BaselineEntry struct {
	Timestamp      time.Time          `json:"timestamp"`
	OverallScore   float64            `json:"overallScore"`
	CategoryScores map[string]float64 `json:"categoryScores,omitempty"`
	BuildIdentity  BuildIdentity      `json:"buildIdentity"`
}

// RegressionSeverity classifies how far a score fell below its baseline.
type RegressionSeverity string

const (
	RegressionNone     RegressionSeverity = "NONE"
	RegressionMinor    RegressionSeverity = "MINOR"
	RegressionMajor    RegressionSeverity = "MAJOR"
	RegressionCritical RegressionSeverity = "CRITICAL"
)

// RegressionResult is the derived outcome of comparing one execution
// against its baseline history. Never persisted directly.
type RegressionResult struct {
	TaskName             string             `json:"taskName"`
	Platform             string             `json:"platform"`
	RegressionDetected   bool               `json:"regressionDetected"`
	CurrentScore         float64            `json:"currentScore"`
	BaselineScore        float64            `json:"baselineScore"`
	RegressionPercentage float64            `json:"regressionPercentage"`
	Severity             RegressionSeverity `json:"severity"`
	AffectedCategories   []string           `json:"affectedCategories,omitempty"`
	RecommendedActions   []string           `json:"recommendedActions,omitempty"`
	// BaselineEstablished marks the informational first-run case: no prior
	// history existed, so this run seeds the baseline.
	BaselineEstablished bool `json:"baselineEstablished,omitempty"`
}
