// Package perf collects runtime performance telemetry for plugin
// executions: frame rate, frame time and categorized memory usage. A
// Sampler polls a Source on a fixed interval into a bounded ring buffer
// and exposes snapshots, leak detection, allocation trends and
// threshold validation over the captured window.
package perf

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/plugvet/plugvet/internal/models"
)

const (
	// DefaultCapacity bounds the ring buffer; at the default interval
	// this covers roughly two minutes of telemetry.
	DefaultCapacity = 120

	// DefaultInterval is the polling cadence for background sampling.
	DefaultInterval = time.Second
)

// Source produces a single performance sample on demand. Platform
// runtimes implement this against their own instrumentation.
type Source interface {
	Sample(ctx context.Context) (models.PerformanceSample, error)
}

// Sampler captures samples from a Source into a bounded ring buffer.
// One goroutine writes (the polling loop, or callers of Record), any
// number of readers may inspect the window concurrently.
type Sampler struct {
	source   Source
	interval time.Duration

	mu        sync.RWMutex
	ring      *ring
	snapshots map[string]models.PerformanceSample

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithInterval sets the polling cadence for Start.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCapacity sets the ring buffer size.
func WithCapacity(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.ring = newRing(n)
		}
	}
}

// NewSampler creates a sampler reading from source. The source may be
// nil when samples are only injected via Record.
func NewSampler(source Source, opts ...Option) *Sampler {
	s := &Sampler{
		source:    source,
		interval:  DefaultInterval,
		ring:      newRing(DefaultCapacity),
		snapshots: map[string]models.PerformanceSample{},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background polling loop. It returns immediately;
// call Stop to end collection. Polling errors are logged and skipped so
// a flaky source cannot kill the window.
func (s *Sampler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				sample, err := s.source.Sample(ctx)
				if err != nil {
					slog.Debug("perf sample failed", "error", err)
					continue
				}
				s.Record(sample)
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to exit. Safe to call
// multiple times and safe to call when Start was never invoked.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	select {
	case <-s.done:
	case <-time.After(2 * s.interval):
	}
}

// Record appends a sample to the window. Zero timestamps are filled in
// with the current time.
func (s *Sampler) Record(sample models.PerformanceSample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring.push(sample.Clone())
}

// Len reports how many samples the window currently holds.
func (s *Sampler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.len()
}

// Recent returns up to n of the newest samples in chronological order.
func (s *Sampler) Recent(n int) []models.PerformanceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.recent(n)
}

// Latest returns the newest sample, or false when the window is empty.
func (s *Sampler) Latest() (models.PerformanceSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	got := s.ring.recent(1)
	if len(got) == 0 {
		return models.PerformanceSample{}, false
	}
	return got[0], true
}

// CaptureSnapshot polls the source once and stores the sample under
// label, replacing any previous snapshot with the same label. The
// sample is also recorded into the window.
func (s *Sampler) CaptureSnapshot(ctx context.Context, label string) (models.PerformanceSample, error) {
	if s.source == nil {
		return models.PerformanceSample{}, fmt.Errorf("capturing snapshot %q: sampler has no source", label)
	}
	sample, err := s.source.Sample(ctx)
	if err != nil {
		return models.PerformanceSample{}, fmt.Errorf("capturing snapshot %q: %w", label, err)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.snapshots[label] = sample.Clone()
	s.ring.push(sample.Clone())
	s.mu.Unlock()
	return sample, nil
}

// Snapshot returns the sample stored under label.
func (s *Sampler) Snapshot(label string) (models.PerformanceSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.snapshots[label]
	if !ok {
		return models.PerformanceSample{}, false
	}
	return sample.Clone(), true
}

// DetectLeak compares total memory between two labeled snapshots and
// reports whether the growth from the first to the second exceeds
// thresholdMB. Memory shrinking between snapshots is never a leak.
func (s *Sampler) DetectLeak(before, after string, thresholdMB float64) (bool, error) {
	a, ok := s.Snapshot(before)
	if !ok {
		return false, fmt.Errorf("detecting leak: no snapshot %q", before)
	}
	b, ok := s.Snapshot(after)
	if !ok {
		return false, fmt.Errorf("detecting leak: no snapshot %q", after)
	}
	growth := float64(b.TotalMemory()-a.TotalMemory()) / bytesPerMB
	return growth > thresholdMB, nil
}
