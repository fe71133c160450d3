package scoring

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/plugvet/plugvet/internal/models"
)

// Probe is the read-only view of a platform runtime that evaluators score
// against. Check reports how completely the plugin under validation
// satisfies a criterion, as a ratio in [0, 1].
type Probe interface {
	Check(ctx context.Context, point models.ValidationPoint) (float64, error)
	RecentSamples(n int) []models.PerformanceSample
	Profile() *models.PlatformProfile
}

// Evaluator turns one validation point into a score in [0, 3 x weight].
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, probe Probe, point models.ValidationPoint) (float64, error)
}

// createEvaluator builds the evaluator for a point type, decoding any
// configured parameters.
func createEvaluator(t models.PointType, params map[string]any) (Evaluator, error) {
	if params == nil {
		params = map[string]any{}
	}

	switch t {
	case models.PointPerformance:
		var v *struct {
			Window     int `mapstructure:"window"`
			MinSamples int `mapstructure:"min_samples"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		window := v.Window
		if window <= 0 {
			window = 60
		}
		minSamples := v.MinSamples
		if minSamples <= 0 {
			minSamples = 5
		}
		return &performanceEvaluator{window: window, minSamples: minSamples}, nil

	case models.PointSecurity:
		var v *struct {
			Strict bool `mapstructure:"strict"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		return &securityEvaluator{strict: v.Strict}, nil

	case models.PointIntegration:
		var v *struct {
			RequireAll bool `mapstructure:"require_all"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		return &integrationEvaluator{requireAll: v.RequireAll}, nil

	case models.PointConfiguration, models.PointFunctional, models.PointGeneral:
		return &probeEvaluator{kind: t}, nil

	default:
		return nil, fmt.Errorf("'%s' is not a valid point type", t)
	}
}

// probeEvaluator scores a point directly from the probe's satisfaction
// ratio. Used for configuration, functional and general points.
type probeEvaluator struct {
	kind models.PointType
}

func (e *probeEvaluator) Name() string { return string(e.kind) }

func (e *probeEvaluator) Evaluate(ctx context.Context, probe Probe, point models.ValidationPoint) (float64, error) {
	ratio, err := probe.Check(ctx, point)
	if err != nil {
		return 0, err
	}
	return clampRatio(ratio) * point.MaxPointScore(), nil
}

// performanceEvaluator blends the probe's own check with measured
// compliance against the platform profile over a recent sample window.
type performanceEvaluator struct {
	window     int
	minSamples int
}

func (e *performanceEvaluator) Name() string { return string(models.PointPerformance) }

func (e *performanceEvaluator) Evaluate(ctx context.Context, probe Probe, point models.ValidationPoint) (float64, error) {
	base, err := probe.Check(ctx, point)
	if err != nil {
		return 0, err
	}
	base = clampRatio(base)

	samples := probe.RecentSamples(e.window)
	if len(samples) < e.minSamples {
		// Not enough telemetry yet; score on the probe alone.
		return base * point.MaxPointScore(), nil
	}

	ratio := 0.4*base + 0.6*complianceRatio(samples, probe.Profile())
	return clampRatio(ratio) * point.MaxPointScore(), nil
}

// complianceRatio measures how well a sample window fits the profile's
// envelope, averaging fps, frame-time and memory compliance.
func complianceRatio(samples []models.PerformanceSample, profile *models.PlatformProfile) float64 {
	if profile == nil || len(samples) == 0 {
		return 1.0
	}

	var fpsSum, frameSum float64
	var memMax int64
	for _, s := range samples {
		fpsSum += s.FPS
		frameSum += s.FrameTimeMs
		if total := s.TotalMemory(); total > memMax {
			memMax = total
		}
	}
	n := float64(len(samples))

	var parts []float64
	if profile.TargetFPS > 0 {
		parts = append(parts, clampRatio((fpsSum/n)/profile.TargetFPS))
	}
	if profile.MaxFrameTimeMs > 0 {
		parts = append(parts, clampRatio(profile.MaxFrameTimeMs/maxf(frameSum/n, 0.001)))
	}
	if profile.MaxTotalMemoryMB > 0 {
		usedMB := float64(memMax) / (1024 * 1024)
		parts = append(parts, clampRatio(profile.MaxTotalMemoryMB/maxf(usedMB, 0.001)))
	}
	if len(parts) == 0 {
		return 1.0
	}

	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}

// securityEvaluator penalizes partial compliance quadratically; in strict
// mode anything short of full compliance scores zero.
type securityEvaluator struct {
	strict bool
}

func (e *securityEvaluator) Name() string { return string(models.PointSecurity) }

func (e *securityEvaluator) Evaluate(ctx context.Context, probe Probe, point models.ValidationPoint) (float64, error) {
	ratio, err := probe.Check(ctx, point)
	if err != nil {
		return 0, err
	}
	ratio = clampRatio(ratio)
	if e.strict && ratio < 1.0 {
		return 0, nil
	}
	return ratio * ratio * point.MaxPointScore(), nil
}

// integrationEvaluator scores cross-component criteria; require_all mode
// zeroes the score when any part of the criterion is unmet.
type integrationEvaluator struct {
	requireAll bool
}

func (e *integrationEvaluator) Name() string { return string(models.PointIntegration) }

func (e *integrationEvaluator) Evaluate(ctx context.Context, probe Probe, point models.ValidationPoint) (float64, error) {
	ratio, err := probe.Check(ctx, point)
	if err != nil {
		return 0, err
	}
	ratio = clampRatio(ratio)
	if e.requireAll && ratio < 1.0 {
		return 0, nil
	}
	return ratio * point.MaxPointScore(), nil
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
