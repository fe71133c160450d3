package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plugvet/plugvet/internal/models"
)

// InterpretScore returns a plain-language label for a 0-10 score.
func InterpretScore(score float64) string {
	switch {
	case score >= 9:
		return "Excellent (9+)"
	case score >= 7:
		return "Good (7-9)"
	case score >= 4:
		return "Needs Work (4-7)"
	default:
		return "Poor (<4)"
	}
}

// InterpretPassRate explains a platform pass rate (0-1).
func InterpretPassRate(rate float64) string {
	pct := rate * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("every task passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("most tasks passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("about half the tasks passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("few tasks passed (%.0f%%)", pct)
	}
}

// InterpretRegression states exactly how far a score fell and how
// seriously to take it.
func InterpretRegression(reg models.RegressionResult) string {
	if reg.BaselineEstablished {
		return fmt.Sprintf("%s on %s has no history yet; this run seeds its baseline at %.1f.",
			reg.TaskName, reg.Platform, reg.CurrentScore)
	}
	if !reg.RegressionDetected {
		return fmt.Sprintf("%s on %s is holding steady against its baseline of %.1f.",
			reg.TaskName, reg.Platform, reg.BaselineScore)
	}
	return fmt.Sprintf("%s on %s regressed %.1f%% (%.1f down from a %.1f baseline), severity %s.",
		reg.TaskName, reg.Platform, reg.RegressionPercentage,
		reg.CurrentScore, reg.BaselineScore, reg.Severity)
}

// InterpretGate explains the gate decision in one sentence.
func InterpretGate(report *models.AggregateReport) string {
	if report.GatePassed {
		return "The gate is open: this build can proceed."
	}
	switch report.OverallStatus {
	case models.StatusNoResults:
		return "The gate is blocked: the run produced no results, so nothing vouches for this build."
	case models.StatusError:
		return fmt.Sprintf("The gate is blocked: %d execution(s) never finished.", report.ErrorTasks)
	case models.StatusFailed:
		return fmt.Sprintf("The gate is blocked: %d validation(s) failed.", report.FailedTasks)
	}
	for _, reg := range report.Regressions {
		if reg.Severity == models.RegressionCritical {
			return fmt.Sprintf("The gate is blocked: %s on %s regressed %.1f%%, which is critical.",
				reg.TaskName, reg.Platform, reg.RegressionPercentage)
		}
	}
	return "The gate is blocked."
}

// FormatInterpretation produces the plain-language block appended to
// the human summary.
func FormatInterpretation(report *models.AggregateReport) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")
	b.WriteString(fmt.Sprintf("Overall Score: %.1f/10, %s\n", report.OverallScore, InterpretScore(report.OverallScore)))
	if report.TotalTasks > 0 {
		b.WriteString(fmt.Sprintf("Executions:    %d passed, %d warned, %d failed, %d errored out of %d total\n",
			report.PassedTasks, report.WarningTasks, report.FailedTasks, report.ErrorTasks, report.TotalTasks))
	}

	if len(report.PlatformSummary) > 0 {
		b.WriteString("\nPer-Platform:\n")
		names := make([]string, 0, len(report.PlatformSummary))
		for name := range report.PlatformSummary {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rollup := report.PlatformSummary[name]
			b.WriteString(fmt.Sprintf("  %s: %s, mean score %.1f\n",
				name, InterpretPassRate(rollup.PassRate), rollup.MeanScore))
		}
	}

	if len(report.Regressions) > 0 {
		b.WriteString("\nRegressions:\n")
		for _, reg := range report.Regressions {
			b.WriteString("  " + InterpretRegression(reg) + "\n")
		}
	}

	b.WriteString("\n" + InterpretGate(report) + "\n")
	return b.String()
}
