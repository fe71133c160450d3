package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/plugvet/plugvet/internal/models"
)

var (
	green = lipgloss.Color("#22C55E")
	amber = lipgloss.Color("#F59E0B")
	red   = lipgloss.Color("#EF4444")
	gray  = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(gray)
	passStyle  = lipgloss.NewStyle().Foreground(green)
	warnStyle  = lipgloss.NewStyle().Foreground(amber)
	failStyle  = lipgloss.NewStyle().Foreground(red).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(gray).
			Padding(0, 2)

	priorityStyles = map[models.RecommendationPriority]lipgloss.Style{
		models.PriorityHigh:   failStyle,
		models.PriorityMedium: warnStyle,
		models.PriorityLow:    dimStyle,
	}
)

func statusStyle(status models.Status) lipgloss.Style {
	switch status {
	case models.StatusPassed:
		return passStyle
	case models.StatusWarning:
		return warnStyle
	case models.StatusFailed, models.StatusError:
		return failStyle
	default:
		return dimStyle
	}
}

func statusIcon(status models.Status) string {
	switch status {
	case models.StatusPassed:
		return "✓"
	case models.StatusWarning:
		return "!"
	case models.StatusFailed:
		return "✗"
	case models.StatusError:
		return "×"
	default:
		return "-"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RenderSummary renders the report for people. Styling degrades to
// plain text automatically when stdout is not a terminal.
func RenderSummary(report *models.AggregateReport) string {
	var b strings.Builder

	header := titleStyle.Render("plugvet run "+shortID(report.RunID)) + "\n" +
		statusStyle(report.OverallStatus).Render(string(report.OverallStatus)) +
		dimStyle.Render(fmt.Sprintf("  score %.1f/10", report.OverallScore))
	if report.BuildIdentity != nil && report.BuildIdentity.Commit != "" {
		commit := report.BuildIdentity.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		header += "\n" + dimStyle.Render(fmt.Sprintf("build %s on %s", commit, report.BuildIdentity.Branch))
	}
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s passed, %s warned, %s failed, %s errored of %d executions\n",
		passStyle.Render(fmt.Sprintf("%d", report.PassedTasks)),
		warnStyle.Render(fmt.Sprintf("%d", report.WarningTasks)),
		failStyle.Render(fmt.Sprintf("%d", report.FailedTasks)),
		failStyle.Render(fmt.Sprintf("%d", report.ErrorTasks)),
		report.TotalTasks))

	renderTasks(&b, report)
	renderRegressions(&b, report)
	renderRecommendations(&b, report)

	b.WriteString("\n")
	verdict := passStyle.Render("GATE PASSED")
	if !report.GatePassed {
		verdict = failStyle.Render("GATE BLOCKED")
	}
	b.WriteString("  " + verdict + "\n\n")

	b.WriteString(FormatInterpretation(report))
	return b.String()
}

func renderTasks(b *strings.Builder, report *models.AggregateReport) {
	if len(report.TaskDetails) == 0 {
		return
	}

	names := make([]string, 0, len(report.TaskDetails))
	for name := range report.TaskDetails {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("\n  " + titleStyle.Render("Tasks") + "\n")
	for _, name := range names {
		rollup := report.TaskDetails[name]
		icon := statusStyle(rollup.Status).Render(statusIcon(rollup.Status))

		var platforms []string
		for _, platform := range rollup.Platforms {
			if score, ok := rollup.ByPlatform[platform]; ok {
				platforms = append(platforms, fmt.Sprintf("%s %.1f", platform, score))
			} else {
				platforms = append(platforms, platform+" errored")
			}
		}
		b.WriteString(fmt.Sprintf("    %s %-28s %s\n",
			icon, name, dimStyle.Render(strings.Join(platforms, ", "))))
	}
}

func renderRegressions(b *strings.Builder, report *models.AggregateReport) {
	var detected []models.RegressionResult
	for _, reg := range report.Regressions {
		if reg.RegressionDetected {
			detected = append(detected, reg)
		}
	}
	if len(detected) == 0 {
		return
	}

	b.WriteString("\n  " + titleStyle.Render("Regressions") + "\n")
	for _, reg := range detected {
		style := warnStyle
		if reg.Severity == models.RegressionCritical {
			style = failStyle
		}
		b.WriteString(fmt.Sprintf("    %s %s/%s fell %s (baseline %.1f, now %.1f) %s\n",
			style.Render("▼"), reg.TaskName, reg.Platform,
			style.Render(fmt.Sprintf("%.1f%%", reg.RegressionPercentage)),
			reg.BaselineScore, reg.CurrentScore,
			style.Render(string(reg.Severity))))
		for _, action := range reg.RecommendedActions {
			b.WriteString("      " + dimStyle.Render(action) + "\n")
		}
	}
}

func renderRecommendations(b *strings.Builder, report *models.AggregateReport) {
	if len(report.Recommendations) == 0 {
		return
	}

	b.WriteString("\n  " + titleStyle.Render("Recommendations") + "\n")
	for _, rec := range report.Recommendations {
		tag := priorityStyles[rec.Priority].Render(fmt.Sprintf("[%s]", rec.Priority))
		b.WriteString(fmt.Sprintf("    %s %s\n", tag, rec.Message))
	}
}
