package perf

import (
	"fmt"

	"github.com/plugvet/plugvet/internal/models"
)

const (
	bytesPerMB = 1024.0 * 1024.0

	// criticalFactor marks how far past a cap a reading must land
	// before the issue escalates from WARNING to CRITICAL.
	criticalFactor = 1.5
)

// ComputeTrend fits a least-squares line over total memory for the
// newest window samples and returns its slope in bytes per minute.
// Positive values mean memory is growing. Fewer than two samples, or a
// window with no time spread, yields zero.
func (s *Sampler) ComputeTrend(window int) float64 {
	samples := s.Recent(window)
	if len(samples) < 2 {
		return 0
	}
	t0 := samples[0].Timestamp
	var sumX, sumY, sumXX, sumXY float64
	for _, sample := range samples {
		x := sample.Timestamp.Sub(t0).Seconds()
		y := float64(sample.TotalMemory())
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}
	n := float64(len(samples))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	perSecond := (n*sumXY - sumX*sumY) / denom
	return perSecond * 60
}

// ValidateAgainstThresholds checks the newest sample and the allocation
// trend against a platform profile. Each violated limit produces one
// issue; readings beyond 150% of their cap are critical.
func (s *Sampler) ValidateAgainstThresholds(profile *models.PlatformProfile) []models.Issue {
	latest, ok := s.Latest()
	if !ok || profile == nil {
		return nil
	}
	var issues []models.Issue

	if profile.MinimumFPS > 0 && latest.FPS < profile.MinimumFPS {
		issues = append(issues, models.Issue{
			Severity: floorSeverity(latest.FPS, profile.MinimumFPS),
			Category: "performance",
			Message: fmt.Sprintf("frame rate %.1f fps below %s minimum of %.1f fps",
				latest.FPS, profile.Name, profile.MinimumFPS),
		})
	}

	if profile.MaxFrameTimeMs > 0 && latest.FrameTimeMs > profile.MaxFrameTimeMs {
		issues = append(issues, models.Issue{
			Severity: capSeverity(latest.FrameTimeMs, profile.MaxFrameTimeMs),
			Category: "performance",
			Message: fmt.Sprintf("frame time %.1fms exceeds %s cap of %.1fms",
				latest.FrameTimeMs, profile.Name, profile.MaxFrameTimeMs),
		})
	}

	if profile.MaxTotalMemoryMB > 0 {
		totalMB := float64(latest.TotalMemory()) / bytesPerMB
		if totalMB > profile.MaxTotalMemoryMB {
			issues = append(issues, models.Issue{
				Severity: capSeverity(totalMB, profile.MaxTotalMemoryMB),
				Category: "performance",
				Message: fmt.Sprintf("total memory %.1fMB exceeds %s cap of %.1fMB",
					totalMB, profile.Name, profile.MaxTotalMemoryMB),
			})
		}
	}

	for category, capMB := range profile.CategoryCapsMB {
		if capMB <= 0 {
			continue
		}
		usedMB := float64(latest.MemoryByCategory[category]) / bytesPerMB
		if usedMB > capMB {
			issues = append(issues, models.Issue{
				Severity: capSeverity(usedMB, capMB),
				Category: "performance",
				Message: fmt.Sprintf("%s memory %.1fMB exceeds %s cap of %.1fMB",
					category, usedMB, profile.Name, capMB),
			})
		}
	}

	if profile.MaxAllocRateMBPerMin > 0 {
		rateMB := s.ComputeTrend(s.Len()) / bytesPerMB
		if rateMB > profile.MaxAllocRateMBPerMin {
			issues = append(issues, models.Issue{
				Severity: capSeverity(rateMB, profile.MaxAllocRateMBPerMin),
				Category: "performance",
				Message: fmt.Sprintf("allocation rate %.1fMB/min exceeds %s cap of %.1fMB/min",
					rateMB, profile.Name, profile.MaxAllocRateMBPerMin),
			})
		}
	}

	return issues
}

// capSeverity grades a reading against an upper bound.
func capSeverity(value, cap float64) models.IssueSeverity {
	if value > cap*criticalFactor {
		return models.IssueCritical
	}
	return models.IssueWarning
}

// floorSeverity grades a reading against a lower bound.
func floorSeverity(value, floor float64) models.IssueSeverity {
	if value < floor/criticalFactor {
		return models.IssueCritical
	}
	return models.IssueWarning
}
