// Package orchestrate schedules the task-by-platform matrix onto a
// bounded worker pool and collects execution results in matrix order.
package orchestrate

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/plugvet/plugvet/internal/engine"
	"github.com/plugvet/plugvet/internal/models"
	"github.com/plugvet/plugvet/internal/registry"
)

const (
	// costTimeUnit is how much wall clock one EstimatedCost unit buys.
	costTimeUnit = 15 * time.Second

	minUnitTimeout = 10 * time.Second
	maxUnitTimeout = 5 * time.Minute
)

// EventType represents the type of progress event.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventUnitStart    EventType = "unit_start"
	EventUnitComplete EventType = "unit_complete"
)

// ProgressEvent is a progress update emitted while a run executes.
type ProgressEvent struct {
	EventType  EventType
	Task       string
	Platform   string
	UnitNum    int
	TotalUnits int
	Status     models.Status
	Score      float64
	DurationMs int64
}

// ProgressListener receives progress updates. Listeners run on worker
// goroutines and must be safe for concurrent calls.
type ProgressListener func(event ProgressEvent)

// Runner executes work units against the engine.
type Runner struct {
	registry *registry.Registry
	engine   *engine.Engine

	workers         int
	taskFilters     []string
	platformFilters []string
	timeout         time.Duration

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds how many units execute concurrently. The default is
// one worker per CPU.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTaskFilters sets glob patterns selecting tasks by name.
func WithTaskFilters(patterns ...string) RunnerOption {
	return func(r *Runner) { r.taskFilters = patterns }
}

// WithPlatformFilters sets glob patterns selecting platforms by name.
func WithPlatformFilters(patterns ...string) RunnerOption {
	return func(r *Runner) { r.platformFilters = patterns }
}

// WithUnitTimeout overrides the cost-derived per-unit timeout.
func WithUnitTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRunner creates a runner over a populated registry and engine.
func NewRunner(reg *registry.Registry, eng *engine.Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:  reg,
		engine:    eng,
		workers:   runtime.NumCPU(),
		listeners: []ProgressListener{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnProgress registers a progress listener.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run executes the full matrix for the given platforms and returns one
// result per unit, in matrix order. A run with zero matching units
// returns an empty slice, never an error; the aggregator downgrades
// that to NO_RESULTS.
func (r *Runner) Run(ctx context.Context, platforms []*models.PlatformProfile) ([]*models.ExecutionResult, error) {
	start := time.Now()

	if err := r.engine.Initialize(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := r.engine.Shutdown(ctx); err != nil {
			slog.Warn("engine shutdown failed", "error", err)
		}
	}()

	units, err := FilterUnits(r.registry.BuildMatrix(platforms), r.taskFilters, r.platformFilters)
	if err != nil {
		return nil, err
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventRunStart,
		TotalUnits: len(units),
	})

	type indexed struct {
		index  int
		result *models.ExecutionResult
	}

	resultChan := make(chan indexed, len(units))
	semaphore := make(chan struct{}, r.workers)

	var wg sync.WaitGroup
	for i, unit := range units {
		wg.Add(1)
		go func(idx int, unit registry.WorkUnit) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			r.notifyProgress(ProgressEvent{
				EventType:  EventUnitStart,
				Task:       unit.Task.Name,
				Platform:   unit.Platform.Name,
				UnitNum:    idx + 1,
				TotalUnits: len(units),
			})

			result := r.executeUnit(ctx, unit)
			resultChan <- indexed{index: idx, result: result}

			r.notifyProgress(ProgressEvent{
				EventType:  EventUnitComplete,
				Task:       unit.Task.Name,
				Platform:   unit.Platform.Name,
				UnitNum:    idx + 1,
				TotalUnits: len(units),
				Status:     result.Status,
				Score:      result.Score,
				DurationMs: result.ExecutionTimeMs,
			})
		}(i, unit)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]*models.ExecutionResult, len(units))
	for res := range resultChan {
		results[res.index] = res.result
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventRunComplete,
		TotalUnits: len(units),
		DurationMs: time.Since(start).Milliseconds(),
	})

	return results, nil
}

func (r *Runner) executeUnit(ctx context.Context, unit registry.WorkUnit) *models.ExecutionResult {
	unitCtx, cancel := context.WithTimeout(ctx, r.timeoutFor(unit.Task))
	defer cancel()
	return r.engine.Execute(unitCtx, unit.Task, unit.Platform.Name)
}

// timeoutFor maps EstimatedCost onto a wall-clock budget. An explicit
// override wins; derived budgets are clamped to [10s, 5m].
func (r *Runner) timeoutFor(task *models.TaskDescriptor) time.Duration {
	if r.timeout > 0 {
		return r.timeout
	}
	d := time.Duration(task.EstimatedCost) * costTimeUnit
	if d < minUnitTimeout {
		d = minUnitTimeout
	}
	if d > maxUnitTimeout {
		d = maxUnitTimeout
	}
	return d
}
