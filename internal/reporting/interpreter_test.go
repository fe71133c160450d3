package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugvet/plugvet/internal/models"
)

func TestInterpretScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{"excellent high", 9.6, "Excellent (9+)"},
		{"excellent boundary", 9.0, "Excellent (9+)"},
		{"good high", 8.9, "Good (7-9)"},
		{"good low", 7.0, "Good (7-9)"},
		{"needs work high", 6.9, "Needs Work (4-7)"},
		{"needs work low", 4.0, "Needs Work (4-7)"},
		{"poor high", 3.9, "Poor (<4)"},
		{"poor zero", 0.0, "Poor (<4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretScore(tt.score))
		})
	}
}

func TestInterpretPassRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"all passed", 1.0, "every task passed (100%)"},
		{"most passed", 0.8, "most tasks passed (80%)"},
		{"half passed", 0.5, "about half the tasks passed (50%)"},
		{"few passed", 0.2, "few tasks passed (20%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretPassRate(tt.rate))
		})
	}
}

func TestInterpretRegressionStatesExactPercentage(t *testing.T) {
	reg := models.RegressionResult{
		TaskName:             "asset-import",
		Platform:             "editor",
		RegressionDetected:   true,
		CurrentScore:         7.0,
		BaselineScore:        8.6,
		RegressionPercentage: 18.60465,
		Severity:             models.RegressionMajor,
	}

	got := InterpretRegression(reg)
	assert.Contains(t, got, "regressed 18.6%")
	assert.Contains(t, got, "severity MAJOR")
}

func TestInterpretRegressionBaselineEstablished(t *testing.T) {
	reg := models.RegressionResult{
		TaskName:            "asset-import",
		Platform:            "mobile",
		BaselineEstablished: true,
		CurrentScore:        8.2,
	}

	got := InterpretRegression(reg)
	assert.Contains(t, got, "no history yet")
	assert.Contains(t, got, "8.2")
}

func TestInterpretGate(t *testing.T) {
	tests := []struct {
		name   string
		report *models.AggregateReport
		want   string
	}{
		{
			name:   "open gate",
			report: &models.AggregateReport{GatePassed: true, OverallStatus: models.StatusPassed},
			want:   "gate is open",
		},
		{
			name:   "no results",
			report: &models.AggregateReport{OverallStatus: models.StatusNoResults},
			want:   "produced no results",
		},
		{
			name:   "failures",
			report: &models.AggregateReport{OverallStatus: models.StatusFailed, FailedTasks: 2},
			want:   "2 validation(s) failed",
		},
		{
			name: "critical regression",
			report: &models.AggregateReport{
				OverallStatus: models.StatusPassed,
				Regressions: []models.RegressionResult{{
					TaskName:             "t",
					Platform:             "editor",
					Severity:             models.RegressionCritical,
					RegressionPercentage: 34.5,
				}},
			},
			want: "regressed 34.5%",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, InterpretGate(tt.report), tt.want)
		})
	}
}

func TestFormatInterpretation(t *testing.T) {
	report := &models.AggregateReport{
		OverallStatus: models.StatusWarning,
		OverallScore:  6.8,
		TotalTasks:    4,
		PassedTasks:   2,
		WarningTasks:  2,
		PlatformSummary: map[string]models.PlatformRollup{
			"editor": {Platform: "editor", PassRate: 1.0, MeanScore: 8.0},
			"mobile": {Platform: "mobile", PassRate: 0.5, MeanScore: 5.5},
		},
		GatePassed: true,
	}

	got := FormatInterpretation(report)
	require.Contains(t, got, "=== Interpretation ===")
	require.Contains(t, got, "Overall Score: 6.8/10, Needs Work (4-7)")
	require.Contains(t, got, "2 passed, 2 warned, 0 failed, 0 errored out of 4 total")
	require.Contains(t, got, "editor: every task passed (100%)")
	require.Contains(t, got, "mobile: about half the tasks passed (50%)")
	require.Contains(t, got, "The gate is open")
}
