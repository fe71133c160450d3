package perf

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation of values. Fewer than
// two values yields 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// ConfidenceInterval95 returns the half-width of the 95% confidence
// interval for the mean of values.
func ConfidenceInterval95(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return 1.96 * StdDev(values) / math.Sqrt(float64(len(values)))
}

// Summary condenses a sampling window for reports.
type Summary struct {
	Samples       int     `json:"samples"`
	MeanFPS       float64 `json:"meanFps"`
	MeanFrameMs   float64 `json:"meanFrameMs"`
	PeakMemoryMB  float64 `json:"peakMemoryMb"`
	TrendMBPerMin float64 `json:"trendMbPerMin"`
	FPSConfidence float64 `json:"fpsConfidence"`
}

// Summarize reduces the sampler's full window to a Summary.
func (s *Sampler) Summarize() Summary {
	samples := s.Recent(s.Len())
	out := Summary{Samples: len(samples)}
	if len(samples) == 0 {
		return out
	}
	fps := make([]float64, 0, len(samples))
	frames := make([]float64, 0, len(samples))
	peak := int64(0)
	for _, sample := range samples {
		fps = append(fps, sample.FPS)
		frames = append(frames, sample.FrameTimeMs)
		if total := sample.TotalMemory(); total > peak {
			peak = total
		}
	}
	out.MeanFPS = Mean(fps)
	out.MeanFrameMs = Mean(frames)
	out.PeakMemoryMB = float64(peak) / bytesPerMB
	out.TrendMBPerMin = s.ComputeTrend(len(samples)) / bytesPerMB
	out.FPSConfidence = ConfidenceInterval95(fps)
	return out
}
