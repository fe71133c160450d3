// Package engine executes one validation task against one platform
// runtime and produces an immutable ExecutionResult. Failures of any
// kind are folded into ERROR results so a single bad unit never aborts
// the rest of the matrix.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/plugvet/plugvet/internal/models"
	"github.com/plugvet/plugvet/internal/scoring"
)

// Resolver is the registry surface the engine needs to pre-validate
// task dependencies.
type Resolver interface {
	Task(name string) (*models.TaskDescriptor, bool)
}

// Engine scores tasks on registered platform runtimes.
type Engine struct {
	policy   *scoring.Policy
	runtimes map[string]Runtime
	resolver Resolver
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver lets pre-validation resolve dependency descriptors.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// New creates an engine scoring with policy on the given runtimes.
func New(policy *scoring.Policy, runtimes []Runtime, opts ...Option) *Engine {
	e := &Engine{
		policy:   policy,
		runtimes: make(map[string]Runtime, len(runtimes)),
	}
	for _, rt := range runtimes {
		e.runtimes[rt.Platform().Name] = rt
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Runtime returns the runtime registered for a platform name.
func (e *Engine) Runtime(platform string) (Runtime, bool) {
	rt, ok := e.runtimes[platform]
	return rt, ok
}

// Platforms lists registered platform names, sorted.
func (e *Engine) Platforms() []string {
	names := make([]string, 0, len(e.runtimes))
	for name := range e.runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Initialize brings up every registered runtime.
func (e *Engine) Initialize(ctx context.Context) error {
	for _, name := range e.Platforms() {
		if err := e.runtimes[name].Initialize(ctx); err != nil {
			return fmt.Errorf("initializing %s runtime: %w", name, err)
		}
	}
	return nil
}

// Shutdown tears down every runtime, collecting all errors.
func (e *Engine) Shutdown(ctx context.Context) error {
	var errs []error
	for _, name := range e.Platforms() {
		if err := e.runtimes[name].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down %s runtime: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Execute runs one task on one platform. The registry and baseline
// state are never mutated; the result alone carries the outcome.
func (e *Engine) Execute(ctx context.Context, task *models.TaskDescriptor, platform string) *models.ExecutionResult {
	start := time.Now()

	rt, ok := e.runtimes[platform]
	if !ok {
		perr := &PlatformUnavailableError{Platform: platform, Reason: "no runtime registered"}
		return models.NewErrorResult(task.Name, platform, perr.Error())
	}
	if err := e.preValidate(ctx, task, rt); err != nil {
		slog.Debug("pre-validation failed",
			"task", task.Name, "platform", platform, "error", err)
		return models.NewErrorResult(task.Name, platform, err.Error())
	}

	probe, err := rt.OpenProbe(ctx, task)
	if err != nil {
		return models.NewErrorResult(task.Name, platform, fmt.Sprintf("opening probe: %v", err))
	}

	outcomes := make([]scoring.SectionOutcome, 0, len(task.Sections))
	for _, section := range task.Sections {
		outcome, err := e.policy.ScoreSection(ctx, probe, section)
		if err != nil {
			return models.NewErrorResult(task.Name, platform, executionErrMsg(err, start))
		}
		outcomes = append(outcomes, outcome)
	}

	score := scoring.TaskScore(outcomes)
	issues := scoring.CollectIssues(outcomes)
	if sampler := rt.Sampler(); sampler != nil {
		issues = append(issues, sampler.ValidateAgainstThresholds(rt.Platform())...)
	}
	if issues == nil {
		issues = []models.Issue{}
	}

	result := &models.ExecutionResult{
		TaskName:        task.Name,
		Platform:        platform,
		Status:          models.DeriveStatus(score, issues),
		Score:           score,
		Issues:          issues,
		CategoryScores:  scoring.CategoryScores(outcomes),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Timestamp:       time.Now().UTC(),
	}
	slog.Debug("execution complete",
		"task", task.Name, "platform", platform,
		"status", result.Status, "score", result.Score)
	return result
}

// preValidate checks everything the execution needs before any scoring
// happens: runtime availability, live-runtime compatibility, capability
// packages and resolvable dependency tasks.
func (e *Engine) preValidate(ctx context.Context, task *models.TaskDescriptor, rt Runtime) error {
	if err := rt.Available(ctx); err != nil {
		return err
	}
	profile := rt.Platform()
	if task.Requirements.RequiresRuntime && profile.Headless {
		return &RequirementError{
			Task:   task.Name,
			Kind:   "runtime",
			Detail: fmt.Sprintf("task needs a live runtime, %s is headless", profile.Name),
		}
	}
	for _, capability := range task.Requirements.Capabilities {
		if !profile.HasCapability(capability) {
			return &RequirementError{
				Task:   task.Name,
				Kind:   "capability",
				Detail: fmt.Sprintf("platform %s lacks %q", profile.Name, capability),
			}
		}
	}
	for _, dep := range task.Requirements.Dependencies {
		if e.resolver == nil {
			return &RequirementError{
				Task:   task.Name,
				Kind:   "dependency",
				Detail: fmt.Sprintf("no registry available to resolve %q", dep),
			}
		}
		if _, ok := e.resolver.Task(dep); !ok {
			return &RequirementError{
				Task:   task.Name,
				Kind:   "dependency",
				Detail: fmt.Sprintf("dependency task %q was not discovered", dep),
			}
		}
	}
	return nil
}

func executionErrMsg(err error, start time.Time) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		terr := &TimeoutError{Elapsed: time.Since(start).Round(time.Millisecond)}
		return terr.Error()
	case errors.Is(err, context.Canceled):
		return "execution canceled"
	default:
		return err.Error()
	}
}
