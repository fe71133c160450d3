// Package statistics quantifies how settled a baseline score window is.
// Regression thresholds compare against the window mean; the stability
// band tells an operator whether that mean is trustworthy or still noisy.
package statistics

import (
	"math"
	"math/rand"
	"sort"
)

// WindowStability is the bootstrap stability band around a score
// window's mean.
type WindowStability struct {
	Mean      float64 `json:"mean"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Level     float64 `json:"level"`
	Resamples int     `json:"resamples"`
}

// Spread is the width of the band. Wide spreads mean the window is too
// noisy for its mean to anchor a regression decision.
func (w WindowStability) Spread() float64 {
	return w.Upper - w.Lower
}

// DefaultResamples is sized for baseline windows, which hold at most a
// few dozen entries.
const DefaultResamples = 2000

// Stability computes a percentile-bootstrap band around the mean of a
// score window. level is the nominal coverage in (0, 1), e.g. 0.95.
// Windows with fewer than 2 scores collapse the band onto the mean.
func Stability(scores []float64, level float64) WindowStability {
	return StabilityWithSeed(scores, level, -1)
}

// StabilityWithSeed is Stability with a fixed seed for reproducible
// output. A negative seed draws from a non-deterministic source.
func StabilityWithSeed(scores []float64, level float64, seed int64) WindowStability {
	n := len(scores)
	if n < 2 {
		m := Mean(scores)
		return WindowStability{Mean: m, Lower: m, Upper: m, Level: level}
	}

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	resampleMeans := make([]float64, DefaultResamples)
	sample := make([]float64, n)
	for i := range resampleMeans {
		for j := range sample {
			sample[j] = scores[rng.Intn(n)]
		}
		resampleMeans[i] = Mean(sample)
	}
	sort.Float64s(resampleMeans)

	alpha := 1.0 - level
	lo := int(math.Floor(alpha / 2.0 * float64(DefaultResamples)))
	hi := int(math.Floor((1.0 - alpha/2.0) * float64(DefaultResamples)))
	if hi >= DefaultResamples {
		hi = DefaultResamples - 1
	}

	return WindowStability{
		Mean:      Mean(scores),
		Lower:     resampleMeans[lo],
		Upper:     resampleMeans[hi],
		Level:     level,
		Resamples: DefaultResamples,
	}
}

// Mean returns the arithmetic mean, or 0 for an empty window.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
