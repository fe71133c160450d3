package engine

import (
	"fmt"
	"time"
)

// PlatformUnavailableError reports a platform whose runtime cannot
// serve an execution at all.
type PlatformUnavailableError struct {
	Platform string
	Reason   string
}

func (e *PlatformUnavailableError) Error() string {
	return fmt.Sprintf("platform %s unavailable: %s", e.Platform, e.Reason)
}

// TimeoutError reports a unit that exhausted its wall-clock budget.
// It is folded into an ERROR result, never returned past Execute.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out after %s", e.Elapsed)
}

// RequirementError reports a task requirement that pre-validation found
// unmet. Kind is one of "runtime", "capability" or "dependency".
type RequirementError struct {
	Task   string
	Kind   string
	Detail string
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("task %s: unmet %s requirement: %s", e.Task, e.Kind, e.Detail)
}
