// Package hooks runs user-configured shell commands around a vetting run,
// for engine setup before tasks execute and for publishing once reports
// are written.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Hook is a single configured command.
type Hook struct {
	Command          string `yaml:"command" json:"command"`
	WorkingDirectory string `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	ExitCodes        []int  `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`
	ErrorOnFail      bool   `yaml:"error_on_fail,omitempty" json:"error_on_fail,omitempty"`
}

// Config holds the hook lists for both lifecycle points. Hooks run in
// declaration order; per-unit hooks do not exist because units execute
// concurrently on the worker pool.
type Config struct {
	BeforeRun []Hook `yaml:"before_run,omitempty" json:"before_run,omitempty"`
	AfterRun  []Hook `yaml:"after_run,omitempty" json:"after_run,omitempty"`
}

// Empty reports whether no hooks are configured at all.
func (c Config) Empty() bool {
	return len(c.BeforeRun) == 0 && len(c.AfterRun) == 0
}

// Runner executes hook commands. Out receives hook output when Verbose
// is set; a nil Out falls back to stdout.
type Runner struct {
	Verbose bool
	Out     io.Writer
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// Execute runs all hooks for one lifecycle point. name identifies the
// point ("before_run", "after_run") for logging and error context; env
// entries are appended to the inherited environment of every hook.
func (r *Runner) Execute(ctx context.Context, name string, hooks []Hook, env []string) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: context canceled: %w", name, err)
		}
		if err := r.runHook(ctx, name, i, h, env); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runHook(ctx context.Context, name string, index int, h Hook, env []string) error {
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}

	parts := strings.Fields(h.Command)
	//nolint:gosec // hook commands come from the project's own .plugvet.yaml
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	if h.WorkingDirectory != "" {
		cmd.Dir = h.WorkingDirectory
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	output, err := cmd.CombinedOutput()
	if r.Verbose && len(output) > 0 {
		fmt.Fprintf(r.out(), "[hook:%s] %s\n", name, string(output)) //nolint:errcheck
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if !acceptableExit(code, h.ExitCodes) {
				if h.ErrorOnFail {
					return fmt.Errorf("hook %s[%d]: command exited with code %d", name, index, code)
				}
				fmt.Fprintf(r.out(), "[WARN] hook %s[%d] exited with code %d (continuing)\n", name, index, code) //nolint:errcheck
			}
			return nil
		}
		// Non-exit error, e.g. command not found.
		if h.ErrorOnFail {
			return fmt.Errorf("hook %s[%d]: %w", name, index, err)
		}
		fmt.Fprintf(r.out(), "[WARN] hook %s[%d] failed: %v (continuing)\n", name, index, err) //nolint:errcheck
		return nil
	}

	if !acceptableExit(0, h.ExitCodes) {
		if h.ErrorOnFail {
			return fmt.Errorf("hook %s[%d]: command exited with code 0 but expected %v", name, index, h.ExitCodes)
		}
		fmt.Fprintf(r.out(), "[WARN] hook %s[%d] exited with code 0 but expected %v (continuing)\n", name, index, h.ExitCodes) //nolint:errcheck
	}
	return nil
}

// acceptableExit checks exitCode against the allowed list. An empty list
// allows only exit code 0.
func acceptableExit(exitCode int, allowed []int) bool {
	if len(allowed) == 0 {
		return exitCode == 0
	}
	for _, code := range allowed {
		if exitCode == code {
			return true
		}
	}
	return false
}
