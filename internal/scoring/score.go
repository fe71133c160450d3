package scoring

import (
	"context"
	"fmt"

	"github.com/plugvet/plugvet/internal/models"
)

// PointOutcome is one scored validation point, with any issue it raised.
type PointOutcome struct {
	Point models.ValidationPoint
	Score float64
	Max   float64
	Issue *models.Issue
}

// SectionOutcome is the scored form of one descriptor section.
type SectionOutcome struct {
	Title  string
	Score  float64
	Points []PointOutcome
}

// ScorePoint evaluates a single point and derives its issue, if any.
// The returned score is clamped into [0, 3 x weight]; a point scoring
// below the policy's issue ratio raises a WARNING issue, below the
// critical ratio a CRITICAL one.
func (p *Policy) ScorePoint(ctx context.Context, probe Probe, point models.ValidationPoint) (PointOutcome, error) {
	ev := p.EvaluatorFor(point.Type)
	score, err := ev.Evaluate(ctx, probe, point)
	if err != nil {
		return PointOutcome{}, fmt.Errorf("evaluating %s point %q: %w", point.Type, point.Category, err)
	}

	maxScore := point.MaxPointScore()
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}

	out := PointOutcome{Point: point, Score: score, Max: maxScore}

	ratio := score / maxScore
	if ratio < p.thresholds.IssueRatio {
		severity := models.IssueWarning
		if ratio < p.thresholds.CriticalRatio {
			severity = models.IssueCritical
		}
		out.Issue = &models.Issue{
			Severity: severity,
			Category: point.Category,
			Message: fmt.Sprintf("%s scored %.1f of %.1f (%.0f%% of maximum): %s",
				point.Category, score, maxScore, ratio*100, point.Description),
		}
	}
	return out, nil
}

// ScoreSection evaluates every point in a section and normalizes the sum
// onto [0, 10]. A section without points scores a neutral 10 and raises
// no issues.
func (p *Policy) ScoreSection(ctx context.Context, probe Probe, section models.Section) (SectionOutcome, error) {
	out := SectionOutcome{Title: section.Title}
	if len(section.Points) == 0 {
		out.Score = 10.0
		return out, nil
	}

	var sum, maxSum float64
	for _, point := range section.Points {
		po, err := p.ScorePoint(ctx, probe, point)
		if err != nil {
			return SectionOutcome{}, err
		}
		out.Points = append(out.Points, po)
		sum += po.Score
		maxSum += po.Max
	}
	out.Score = sum / maxSum * 10.0
	return out, nil
}

// TaskScore combines section scores with an arithmetic mean.
func TaskScore(sections []SectionOutcome) float64 {
	if len(sections) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range sections {
		sum += s.Score
	}
	return sum / float64(len(sections))
}

// CollectIssues gathers every issue raised across the scored sections.
func CollectIssues(sections []SectionOutcome) []models.Issue {
	issues := []models.Issue{}
	for _, s := range sections {
		for _, po := range s.Points {
			if po.Issue != nil {
				issues = append(issues, *po.Issue)
			}
		}
	}
	return issues
}

// CategoryScores rolls point scores up per category, normalized to [0, 10].
func CategoryScores(sections []SectionOutcome) map[string]float64 {
	sums := map[string]float64{}
	maxes := map[string]float64{}
	for _, s := range sections {
		for _, po := range s.Points {
			sums[po.Point.Category] += po.Score
			maxes[po.Point.Category] += po.Max
		}
	}
	out := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		if maxes[cat] > 0 {
			out[cat] = sum / maxes[cat] * 10.0
		}
	}
	return out
}
