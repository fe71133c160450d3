package aggregate

import (
	"fmt"
	"sort"

	"github.com/plugvet/plugvet/internal/models"
)

// meanGap is how far below the run mean a platform must score before
// it is called out as underperforming.
const meanGap = 1.5

var priorityRank = map[models.RecommendationPriority]int{
	models.PriorityHigh:   0,
	models.PriorityMedium: 1,
	models.PriorityLow:    2,
}

// recommend derives remediation hints from the rolled-up report. The
// rules are fixed so the same report always yields the same list:
//
//   - a run mean below 5 points at a structural problem with the
//     plugin rather than any single task
//   - a task failing on every platform it ran on is a plugin defect,
//     not a platform quirk
//   - a platform trailing the run mean by more than meanGap suggests
//     a platform-specific envelope or capability issue
//
// Results are ranked by priority, then scope, then message.
func recommend(report *models.AggregateReport, taskGroups map[string][]*models.ExecutionResult) []models.Recommendation {
	recs := []models.Recommendation{}

	// An all-ERROR run has no scores at all; a structural hint about
	// the mean would be misleading there.
	if report.ErrorTasks < report.TotalTasks && report.OverallScore < 5.0 {
		recs = append(recs, models.Recommendation{
			Priority: models.PriorityHigh,
			Scope:    "run",
			Message: fmt.Sprintf("overall score %.1f/10 is below 5; the plugin has structural problems that span tasks, review its validation criteria from the top",
				report.OverallScore),
		})
	}

	for name, group := range taskGroups {
		if len(group) < 2 {
			continue
		}
		broken := 0
		for _, result := range group {
			if result.Status == models.StatusFailed || result.Status == models.StatusError {
				broken++
			}
		}
		if broken == len(group) {
			recs = append(recs, models.Recommendation{
				Priority: models.PriorityHigh,
				Scope:    name,
				Message: fmt.Sprintf("task %q fails on all %d platforms; the defect is in the plugin, not in any platform environment",
					name, len(group)),
			})
		}
	}

	if len(report.PlatformSummary) >= 2 {
		if worst, ok := worstPlatform(report); ok && report.OverallScore-worst.MeanScore > meanGap {
			recs = append(recs, models.Recommendation{
				Priority: models.PriorityMedium,
				Scope:    worst.Platform,
				Message: fmt.Sprintf("platform %q mean %.1f trails the run mean %.1f; check its resource envelope and capability requirements",
					worst.Platform, worst.MeanScore, report.OverallScore),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if priorityRank[recs[i].Priority] != priorityRank[recs[j].Priority] {
			return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
		}
		if recs[i].Scope != recs[j].Scope {
			return recs[i].Scope < recs[j].Scope
		}
		return recs[i].Message < recs[j].Message
	})
	return recs
}

// worstPlatform returns the platform with the lowest mean score,
// breaking ties by name so the choice is stable.
func worstPlatform(report *models.AggregateReport) (models.PlatformRollup, bool) {
	names := make([]string, 0, len(report.PlatformSummary))
	for name := range report.PlatformSummary {
		names = append(names, name)
	}
	sort.Strings(names)

	var worst models.PlatformRollup
	found := false
	for _, name := range names {
		rollup := report.PlatformSummary[name]
		if !found || rollup.MeanScore < worst.MeanScore {
			worst = rollup
			found = true
		}
	}
	return worst, found
}
