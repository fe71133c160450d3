package perf

import "github.com/plugvet/plugvet/internal/models"

// ring is a fixed-capacity circular buffer of performance samples.
// Not safe for concurrent use on its own; the Sampler guards it.
type ring struct {
	buf  []models.PerformanceSample
	head int
	n    int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]models.PerformanceSample, capacity)}
}

// push appends a sample, evicting the oldest once full.
func (r *ring) push(s models.PerformanceSample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// recent returns up to n samples in chronological order, deep-copied so
// callers never alias buffer memory.
func (r *ring) recent(n int) []models.PerformanceSample {
	if n > r.n {
		n = r.n
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.PerformanceSample, 0, n)
	start := r.head - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		s := r.buf[(start+i)%len(r.buf)]
		out = append(out, s.Clone())
	}
	return out
}

func (r *ring) len() int { return r.n }
