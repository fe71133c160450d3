package perf

import (
	"context"
	"testing"
	"time"

	"github.com/plugvet/plugvet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mb(n int) int64 { return int64(n) * 1024 * 1024 }

func sampleAt(ts time.Time, fps, frameMs float64, totalMB int) models.PerformanceSample {
	return models.PerformanceSample{
		Timestamp:   ts,
		FPS:         fps,
		FrameTimeMs: frameMs,
		MemoryByCategory: map[string]int64{
			models.MemScripts: mb(totalMB),
		},
	}
}

// scriptedSource replays a fixed sequence of samples.
type scriptedSource struct {
	samples []models.PerformanceSample
	next    int
}

func (s *scriptedSource) Sample(ctx context.Context) (models.PerformanceSample, error) {
	if s.next >= len(s.samples) {
		return s.samples[len(s.samples)-1], nil
	}
	sample := s.samples[s.next]
	s.next++
	return sample, nil
}

func TestRingEvictsOldest(t *testing.T) {
	s := NewSampler(nil, WithCapacity(3))
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Record(sampleAt(base.Add(time.Duration(i)*time.Second), 60, 16, 100+i))
	}

	require.Equal(t, 3, s.Len())

	got := s.Recent(10)
	require.Len(t, got, 3)
	assert.Equal(t, mb(102), got[0].TotalMemory())
	assert.Equal(t, mb(103), got[1].TotalMemory())
	assert.Equal(t, mb(104), got[2].TotalMemory())
}

func TestRecentCopiesSamples(t *testing.T) {
	s := NewSampler(nil)
	s.Record(sampleAt(time.Now(), 60, 16, 100))

	got := s.Recent(1)
	require.Len(t, got, 1)
	got[0].MemoryByCategory[models.MemScripts] = mb(999)

	again := s.Recent(1)
	assert.Equal(t, mb(100), again[0].TotalMemory())
}

func TestStartStopCollectsSamples(t *testing.T) {
	source := &scriptedSource{samples: []models.PerformanceSample{
		sampleAt(time.Time{}, 60, 16, 100),
	}}
	s := NewSampler(source, WithInterval(2*time.Millisecond), WithCapacity(16))

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Greater(t, s.Len(), 0)

	// Stop is idempotent.
	s.Stop()
}

func TestDetectLeak(t *testing.T) {
	base := time.Now()
	source := &scriptedSource{samples: []models.PerformanceSample{
		sampleAt(base, 60, 16, 100),
		sampleAt(base.Add(time.Minute), 60, 16, 180),
	}}
	s := NewSampler(source)
	ctx := context.Background()

	_, err := s.CaptureSnapshot(ctx, "before")
	require.NoError(t, err)
	_, err = s.CaptureSnapshot(ctx, "after")
	require.NoError(t, err)

	leaked, err := s.DetectLeak("before", "after", 50)
	require.NoError(t, err)
	assert.True(t, leaked, "80MB growth over a 50MB threshold is a leak")

	leaked, err = s.DetectLeak("before", "after", 100)
	require.NoError(t, err)
	assert.False(t, leaked)

	// Shrinking memory is never a leak.
	leaked, err = s.DetectLeak("after", "before", 10)
	require.NoError(t, err)
	assert.False(t, leaked)

	_, err = s.DetectLeak("missing", "after", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no snapshot "missing"`)
}

func TestDetectLeakOverMonotonicGrowth(t *testing.T) {
	base := time.Now()
	samples := make([]models.PerformanceSample, 0, 10)
	for i := 0; i < 10; i++ {
		samples = append(samples, sampleAt(base.Add(time.Duration(i)*10*time.Second), 60, 16, 100+i*12))
	}
	source := &scriptedSource{samples: []models.PerformanceSample{samples[0], samples[9]}}
	s := NewSampler(source)
	ctx := context.Background()

	_, err := s.CaptureSnapshot(ctx, "start")
	require.NoError(t, err)
	for _, sample := range samples[1:9] {
		s.Record(sample)
	}
	_, err = s.CaptureSnapshot(ctx, "end")
	require.NoError(t, err)

	leaked, err := s.DetectLeak("start", "end", 64)
	require.NoError(t, err)
	assert.True(t, leaked, "108MB of steady growth must register")
}

func TestCaptureSnapshotWithoutSource(t *testing.T) {
	s := NewSampler(nil)
	_, err := s.CaptureSnapshot(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source")
}

func TestComputeTrend(t *testing.T) {
	s := NewSampler(nil)
	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Record(sampleAt(base.Add(time.Duration(i)*time.Second), 60, 16, 100+i))
	}

	// 1MB per second of growth is 60MB per minute.
	got := s.ComputeTrend(10)
	assert.InDelta(t, 60*1024*1024, got, 1024)
}

func TestComputeTrendFlat(t *testing.T) {
	s := NewSampler(nil)
	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Record(sampleAt(base.Add(time.Duration(i)*time.Second), 60, 16, 100))
	}
	assert.InDelta(t, 0, s.ComputeTrend(10), 1)
}

func TestComputeTrendTooFewSamples(t *testing.T) {
	s := NewSampler(nil)
	assert.Zero(t, s.ComputeTrend(10))

	s.Record(sampleAt(time.Now(), 60, 16, 100))
	assert.Zero(t, s.ComputeTrend(10))
}

func TestValidateAgainstThresholds(t *testing.T) {
	profile := &models.PlatformProfile{
		Name:             "mobile",
		TargetFPS:        60,
		MinimumFPS:       30,
		MaxFrameTimeMs:   33.3,
		MaxTotalMemoryMB: 512,
		CategoryCapsMB:   map[string]float64{models.MemTextures: 128},
	}

	tests := []struct {
		name   string
		sample models.PerformanceSample
		want   []models.IssueSeverity
	}{
		{
			name:   "healthy sample passes",
			sample: sampleAt(time.Now(), 60, 16, 300),
			want:   nil,
		},
		{
			name:   "slow frame warns",
			sample: sampleAt(time.Now(), 60, 40, 300),
			want:   []models.IssueSeverity{models.IssueWarning},
		},
		{
			name:   "very slow frame is critical",
			sample: sampleAt(time.Now(), 60, 60, 300),
			want:   []models.IssueSeverity{models.IssueCritical},
		},
		{
			name:   "low fps warns",
			sample: sampleAt(time.Now(), 25, 16, 300),
			want:   []models.IssueSeverity{models.IssueWarning},
		},
		{
			name:   "collapsed fps is critical",
			sample: sampleAt(time.Now(), 15, 16, 300),
			want:   []models.IssueSeverity{models.IssueCritical},
		},
		{
			name:   "memory slightly over cap warns",
			sample: sampleAt(time.Now(), 60, 16, 600),
			want:   []models.IssueSeverity{models.IssueWarning},
		},
		{
			name: "texture memory far over cap is critical",
			sample: models.PerformanceSample{
				Timestamp:   time.Now(),
				FPS:         60,
				FrameTimeMs: 16,
				MemoryByCategory: map[string]int64{
					models.MemTextures: mb(300),
				},
			},
			want: []models.IssueSeverity{models.IssueCritical},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := NewSampler(nil)
			s.Record(test.sample)

			issues := s.ValidateAgainstThresholds(profile)
			require.Len(t, issues, len(test.want))
			for i, severity := range test.want {
				assert.Equal(t, severity, issues[i].Severity)
				assert.Equal(t, "performance", issues[i].Category)
			}
		})
	}
}

func TestValidateAllocationRate(t *testing.T) {
	profile := &models.PlatformProfile{
		Name:                 "editor",
		MaxAllocRateMBPerMin: 32,
	}
	s := NewSampler(nil)
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Record(sampleAt(base.Add(time.Duration(i)*10*time.Second), 60, 16, 100+i*16))
	}

	// 16MB every 10 seconds is 96MB per minute, three times the cap.
	issues := s.ValidateAgainstThresholds(profile)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueCritical, issues[0].Severity)
	assert.Contains(t, issues[0].Message, "allocation rate")
}

func TestValidateEmptyWindow(t *testing.T) {
	s := NewSampler(nil)
	assert.Nil(t, s.ValidateAgainstThresholds(&models.PlatformProfile{MaxFrameTimeMs: 10}))
}
