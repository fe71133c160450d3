package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/plugvet/plugvet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe returns a fixed satisfaction ratio for every check.
type fakeProbe struct {
	ratio   float64
	err     error
	samples []models.PerformanceSample
	profile *models.PlatformProfile
}

func (f *fakeProbe) Check(ctx context.Context, point models.ValidationPoint) (float64, error) {
	return f.ratio, f.err
}

func (f *fakeProbe) RecentSamples(n int) []models.PerformanceSample {
	if n > len(f.samples) {
		n = len(f.samples)
	}
	return f.samples[len(f.samples)-n:]
}

func (f *fakeProbe) Profile() *models.PlatformProfile { return f.profile }

func point(category string, weight float64, t models.PointType) models.ValidationPoint {
	return models.ValidationPoint{
		Category:    category,
		Description: "criterion for " + category,
		Weight:      weight,
		Type:        t,
	}
}

func TestScorePointThresholds(t *testing.T) {
	tests := []struct {
		name         string
		ratio        float64
		wantIssue    bool
		wantSeverity models.IssueSeverity
	}{
		{name: "full marks raise no issue", ratio: 1.0},
		{name: "just above issue ratio is clean", ratio: 0.75},
		{name: "below seventy percent warns", ratio: 0.5, wantIssue: true, wantSeverity: models.IssueWarning},
		{name: "below thirty percent is critical", ratio: 0.2, wantIssue: true, wantSeverity: models.IssueCritical},
		{name: "zero is critical", ratio: 0, wantIssue: true, wantSeverity: models.IssueCritical},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &fakeProbe{ratio: tt.ratio}
			po, err := p.ScorePoint(context.Background(), probe, point("configuration", 2, models.PointConfiguration))
			require.NoError(t, err)

			assert.InDelta(t, tt.ratio*6.0, po.Score, 1e-9, "score is ratio x 3 x weight")
			assert.InDelta(t, 6.0, po.Max, 1e-9)

			if !tt.wantIssue {
				assert.Nil(t, po.Issue)
				return
			}
			require.NotNil(t, po.Issue)
			assert.Equal(t, tt.wantSeverity, po.Issue.Severity)
			assert.Equal(t, "configuration", po.Issue.Category)
			assert.Contains(t, po.Issue.Message, "criterion for configuration")
		})
	}
}

func TestScoreSectionAllMaximum(t *testing.T) {
	// Three points with weights 1, 2, 1 all scoring maximum normalize to
	// a 10/10 section.
	section := models.Section{
		Title: "Installation Checks",
		Points: []models.ValidationPoint{
			point("configuration", 1, models.PointConfiguration),
			point("functional", 2, models.PointFunctional),
			point("general", 1, models.PointGeneral),
		},
	}

	p := DefaultPolicy()
	out, err := p.ScoreSection(context.Background(), &fakeProbe{ratio: 1.0}, section)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, out.Score, 1e-9)
	require.Len(t, out.Points, 3)
	for _, po := range out.Points {
		assert.Nil(t, po.Issue)
	}
	assert.Equal(t, models.StatusPassed, models.DeriveStatus(out.Score, CollectIssues([]SectionOutcome{out})))
}

func TestScoreSectionBounds(t *testing.T) {
	section := models.Section{
		Title: "Mixed",
		Points: []models.ValidationPoint{
			point("performance", 2.5, models.PointPerformance),
			point("configuration", 1, models.PointConfiguration),
		},
	}

	p := DefaultPolicy()
	for _, ratio := range []float64{0, 0.15, 0.33, 0.5, 0.71, 0.99, 1} {
		out, err := p.ScoreSection(context.Background(), &fakeProbe{ratio: ratio}, section)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.Score, 0.0)
		assert.LessOrEqual(t, out.Score, 10.0)
	}
}

func TestScoreSectionEmpty(t *testing.T) {
	p := DefaultPolicy()
	out, err := p.ScoreSection(context.Background(), &fakeProbe{ratio: 0}, models.Section{Title: "Empty"})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, out.Score, 1e-9)
	assert.Empty(t, out.Points)
}

func TestTaskScoreMean(t *testing.T) {
	sections := []SectionOutcome{
		{Title: "a", Score: 10},
		{Title: "b", Score: 6},
		{Title: "c", Score: 8},
	}
	assert.InDelta(t, 8.0, TaskScore(sections), 1e-9)
	assert.Zero(t, TaskScore(nil))
}

func TestCollectIssuesAndCategoryScores(t *testing.T) {
	p := DefaultPolicy()
	section := models.Section{
		Title: "Runtime",
		Points: []models.ValidationPoint{
			point("performance", 2, models.PointPerformance),
			point("configuration", 1, models.PointConfiguration),
		},
	}

	out, err := p.ScoreSection(context.Background(), &fakeProbe{ratio: 0.5}, section)
	require.NoError(t, err)

	issues := CollectIssues([]SectionOutcome{out})
	require.Len(t, issues, 2)
	for _, is := range issues {
		assert.Equal(t, models.IssueWarning, is.Severity)
	}

	cats := CategoryScores([]SectionOutcome{out})
	require.Contains(t, cats, "performance")
	require.Contains(t, cats, "configuration")
	assert.InDelta(t, 5.0, cats["performance"], 1e-9)
	assert.InDelta(t, 5.0, cats["configuration"], 1e-9)
}

func TestScorePointPropagatesProbeError(t *testing.T) {
	p := DefaultPolicy()
	probe := &fakeProbe{err: assert.AnError}
	_, err := p.ScorePoint(context.Background(), probe, point("configuration", 1, models.PointConfiguration))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPerformanceEvaluatorBlendsSamples(t *testing.T) {
	profile := &models.PlatformProfile{
		Name:             "editor",
		TargetFPS:        60,
		MaxFrameTimeMs:   16.6,
		MaxTotalMemoryMB: 1024,
	}

	// Ten healthy samples: 60 fps, 10ms frames, 512MB total.
	samples := make([]models.PerformanceSample, 10)
	for i := range samples {
		samples[i] = models.PerformanceSample{
			Timestamp:   time.Now(),
			FPS:         60,
			FrameTimeMs: 10,
			MemoryByCategory: map[string]int64{
				models.MemTextures: 512 * 1024 * 1024,
			},
		}
	}

	ev, err := createEvaluator(models.PointPerformance, nil)
	require.NoError(t, err)

	probe := &fakeProbe{ratio: 1.0, samples: samples, profile: profile}
	score, err := ev.Evaluate(context.Background(), probe, point("performance", 1, models.PointPerformance))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, score, 1e-9, "healthy telemetry plus full probe marks is a maximum score")

	// Degraded telemetry drags the blended score down even when the probe
	// is satisfied.
	for i := range samples {
		samples[i].FPS = 20
		samples[i].FrameTimeMs = 50
	}
	score, err = ev.Evaluate(context.Background(), probe, point("performance", 1, models.PointPerformance))
	require.NoError(t, err)
	assert.Less(t, score, 2.5)
	assert.Greater(t, score, 0.0)
}

func TestPerformanceEvaluatorFewSamples(t *testing.T) {
	ev, err := createEvaluator(models.PointPerformance, map[string]any{"min_samples": 5})
	require.NoError(t, err)

	probe := &fakeProbe{ratio: 0.9, samples: make([]models.PerformanceSample, 2)}
	score, err := ev.Evaluate(context.Background(), probe, point("performance", 1, models.PointPerformance))
	require.NoError(t, err)
	assert.InDelta(t, 0.9*3.0, score, 1e-9, "with thin telemetry only the probe ratio counts")
}

func TestSecurityEvaluator(t *testing.T) {
	ev, err := createEvaluator(models.PointSecurity, nil)
	require.NoError(t, err)

	probe := &fakeProbe{ratio: 0.5}
	score, err := ev.Evaluate(context.Background(), probe, point("security", 1, models.PointSecurity))
	require.NoError(t, err)
	assert.InDelta(t, 0.25*3.0, score, 1e-9, "partial security compliance is penalized quadratically")

	strict, err := createEvaluator(models.PointSecurity, map[string]any{"strict": true})
	require.NoError(t, err)
	score, err = strict.Evaluate(context.Background(), probe, point("security", 1, models.PointSecurity))
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestIntegrationEvaluatorRequireAll(t *testing.T) {
	ev, err := createEvaluator(models.PointIntegration, map[string]any{"require_all": true})
	require.NoError(t, err)

	probe := &fakeProbe{ratio: 0.99}
	score, err := ev.Evaluate(context.Background(), probe, point("integration", 2, models.PointIntegration))
	require.NoError(t, err)
	assert.Zero(t, score)

	probe.ratio = 1.0
	score, err = ev.Evaluate(context.Background(), probe, point("integration", 2, models.PointIntegration))
	require.NoError(t, err)
	assert.InDelta(t, 6.0, score, 1e-9)
}
