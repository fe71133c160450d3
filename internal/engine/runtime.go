package engine

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"io"
	"sync/atomic"
	"time"

	"github.com/plugvet/plugvet/internal/models"
	"github.com/plugvet/plugvet/internal/perf"
	"github.com/plugvet/plugvet/internal/scoring"
)

const megabyte = 1024 * 1024

// Runtime hosts plugin executions on one platform.
type Runtime interface {
	// Platform returns the profile this runtime serves.
	Platform() *models.PlatformProfile

	// Initialize prepares the runtime. Must be called before Execute.
	Initialize(ctx context.Context) error

	// Available reports nil when the runtime can execute right now; the
	// returned error names the reason otherwise.
	Available(ctx context.Context) error

	// OpenProbe returns the scoring probe for one task execution.
	OpenProbe(ctx context.Context, task *models.TaskDescriptor) (scoring.Probe, error)

	// Sampler exposes the runtime's telemetry window, nil when the
	// platform reports none.
	Sampler() *perf.Sampler

	// Shutdown releases runtime resources.
	Shutdown(ctx context.Context) error
}

// SimRuntime simulates a platform host. Probe ratios derive from a
// stable hash of the task checksum, platform name and point text, so a
// given document revision always scores the same on a given platform.
type SimRuntime struct {
	profile     *models.PlatformProfile
	sampler     *perf.Sampler
	floor       float64
	span        float64
	interval    time.Duration
	capacity    int
	unavailable string
	initialized bool
}

// SimOption configures a SimRuntime.
type SimOption func(*SimRuntime)

// WithRatioBand sets the [floor, floor+span] band simulated check
// ratios are drawn from.
func WithRatioBand(floor, span float64) SimOption {
	return func(r *SimRuntime) {
		r.floor = floor
		r.span = span
	}
}

// WithSampleInterval overrides the telemetry polling cadence.
func WithSampleInterval(d time.Duration) SimOption {
	return func(r *SimRuntime) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithSampleCapacity overrides the telemetry window size.
func WithSampleCapacity(n int) SimOption {
	return func(r *SimRuntime) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithUnavailable marks the runtime as unable to execute, with reason.
func WithUnavailable(reason string) SimOption {
	return func(r *SimRuntime) { r.unavailable = reason }
}

// NewSimRuntime creates a simulated runtime for profile.
func NewSimRuntime(profile *models.PlatformProfile, opts ...SimOption) *SimRuntime {
	r := &SimRuntime{
		profile:  profile,
		floor:    0.55,
		span:     0.45,
		interval: perf.DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.sampler = perf.NewSampler(&simSource{profile: profile}, r.samplerOpts()...)
	return r
}

func (r *SimRuntime) samplerOpts() []perf.Option {
	opts := []perf.Option{perf.WithInterval(r.interval)}
	if r.capacity > 0 {
		opts = append(opts, perf.WithCapacity(r.capacity))
	}
	return opts
}

// SimRuntimes builds one simulated runtime per profile.
func SimRuntimes(profiles []*models.PlatformProfile, opts ...SimOption) []Runtime {
	runtimes := make([]Runtime, 0, len(profiles))
	for _, profile := range profiles {
		runtimes = append(runtimes, NewSimRuntime(profile, opts...))
	}
	return runtimes
}

func (r *SimRuntime) Platform() *models.PlatformProfile { return r.profile }

func (r *SimRuntime) Sampler() *perf.Sampler { return r.sampler }

// Initialize seeds the telemetry window and starts background sampling
// so the first probe already sees a populated window. A stopped runtime
// can be initialized again; it starts over with a fresh window.
func (r *SimRuntime) Initialize(ctx context.Context) error {
	if r.initialized {
		return nil
	}
	source := &simSource{profile: r.profile}
	r.sampler = perf.NewSampler(source, r.samplerOpts()...)
	now := time.Now()
	for i := 8; i > 0; i-- {
		sample, err := source.Sample(ctx)
		if err != nil {
			return err
		}
		sample.Timestamp = now.Add(-time.Duration(i) * r.interval)
		r.sampler.Record(sample)
	}
	r.sampler.Start(ctx)
	r.initialized = true
	return nil
}

func (r *SimRuntime) Available(ctx context.Context) error {
	if r.unavailable != "" {
		return &PlatformUnavailableError{Platform: r.profile.Name, Reason: r.unavailable}
	}
	if !r.initialized {
		return &PlatformUnavailableError{Platform: r.profile.Name, Reason: "runtime not initialized"}
	}
	return nil
}

func (r *SimRuntime) OpenProbe(ctx context.Context, task *models.TaskDescriptor) (scoring.Probe, error) {
	if err := r.Available(ctx); err != nil {
		return nil, err
	}
	return &simProbe{runtime: r, seed: task.Checksum}, nil
}

func (r *SimRuntime) Shutdown(ctx context.Context) error {
	if r.initialized {
		r.sampler.Stop()
		r.initialized = false
	}
	return nil
}

// simProbe answers checks deterministically from a hash of the task,
// platform and point text.
type simProbe struct {
	runtime *SimRuntime
	seed    string
}

func (p *simProbe) Check(ctx context.Context, point models.ValidationPoint) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	frac := hashFrac(p.seed + p.runtime.profile.Name + point.Category + point.Description)
	return p.runtime.floor + p.runtime.span*frac, nil
}

func (p *simProbe) RecentSamples(n int) []models.PerformanceSample {
	return p.runtime.sampler.Recent(n)
}

func (p *simProbe) Profile() *models.PlatformProfile {
	return p.runtime.profile
}

// simSource synthesizes telemetry near the profile's envelope with a
// deterministic per-sequence jitter.
type simSource struct {
	profile *models.PlatformProfile
	seq     atomic.Uint64
}

func (s *simSource) Sample(ctx context.Context) (models.PerformanceSample, error) {
	if err := ctx.Err(); err != nil {
		return models.PerformanceSample{}, err
	}
	i := s.seq.Add(1)
	jitter := seqFrac(s.profile.Name, i)

	sample := models.PerformanceSample{Timestamp: time.Now()}
	if s.profile.TargetFPS > 0 {
		sample.FPS = s.profile.TargetFPS * (0.92 + 0.08*jitter)
		sample.FrameTimeMs = 1000 / sample.FPS
	}

	budgetMB := s.profile.MaxTotalMemoryMB
	if budgetMB <= 0 {
		budgetMB = 1024
	}
	usedMB := budgetMB * (0.50 + 0.10*jitter)
	sample.MemoryByCategory = map[string]int64{
		models.MemTextures: int64(usedMB * 0.45 * megabyte),
		models.MemMeshes:   int64(usedMB * 0.30 * megabyte),
		models.MemAudio:    int64(usedMB * 0.15 * megabyte),
		models.MemScripts:  int64(usedMB * 0.10 * megabyte),
	}
	return sample, nil
}

// hashFrac maps text onto a stable fraction in [0, 1].
func hashFrac(text string) float64 {
	h := fnv.New64a()
	io.WriteString(h, text) //nolint:errcheck
	return float64(h.Sum64()%10000) / 9999
}

// seqFrac maps a named sequence position onto a stable fraction.
func seqFrac(name string, i uint64) float64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	h := fnv.New64a()
	io.WriteString(h, name) //nolint:errcheck
	h.Write(buf[:])         //nolint:errcheck
	return float64(h.Sum64()%10000) / 9999
}
