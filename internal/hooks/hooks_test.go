package hooks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRunHook(t *testing.T) {
	trueCmd := "true"
	falseCmd := "false"
	if runtime.GOOS == "windows" {
		trueCmd = "cmd /c exit 0"
		falseCmd = "cmd /c exit 1"
	}

	tests := []struct {
		name      string
		hook      Hook
		wantErr   bool
		errSubstr string
	}{
		{
			name:    "command succeeds",
			hook:    Hook{Command: trueCmd},
			wantErr: false,
		},
		{
			name:      "empty command returns error",
			hook:      Hook{Command: ""},
			wantErr:   true,
			errSubstr: "empty command",
		},
		{
			name:      "whitespace-only command returns error",
			hook:      Hook{Command: "   "},
			wantErr:   true,
			errSubstr: "empty command",
		},
		{
			name:    "non-zero exit with error_on_fail returns error",
			hook:    Hook{Command: falseCmd, ErrorOnFail: true},
			wantErr: true,
		},
		{
			name:    "non-zero exit without error_on_fail continues",
			hook:    Hook{Command: falseCmd, ErrorOnFail: false},
			wantErr: false,
		},
		{
			name:    "custom acceptable exit codes",
			hook:    Hook{Command: falseCmd, ExitCodes: []int{1}, ErrorOnFail: true},
			wantErr: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Runner{Out: &bytes.Buffer{}}
			err := r.runHook(context.Background(), "test", 0, tc.hook, nil)

			if tc.wantErr && err == nil {
				t.Fatalf("expected error but got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.errSubstr != "" && err != nil && !strings.Contains(err.Error(), tc.errSubstr) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.errSubstr)
			}
		})
	}
}

func TestRunHook_EnvReachesCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	// Commands are split on whitespace, so shell redirection needs a script.
	outFile := filepath.Join(t.TempDir(), "env.txt")
	script := filepath.Join(t.TempDir(), "dump.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nprintenv PLUGVET_RUN_ID > "+outFile+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	hook := Hook{Command: "sh " + script, ErrorOnFail: true}

	r := &Runner{Out: &bytes.Buffer{}}
	err := r.runHook(context.Background(), "after_run", 0, hook, []string{"PLUGVET_RUN_ID=run-42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("hook did not write env dump: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "run-42" {
		t.Errorf("PLUGVET_RUN_ID = %q, want %q", got, "run-42")
	}
}

func TestRunHook_VerboseOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on echo")
	}

	var out bytes.Buffer
	r := &Runner{Verbose: true, Out: &out}
	if err := r.runHook(context.Background(), "before_run", 0, Hook{Command: "echo warming caches"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "[hook:before_run]") {
		t.Errorf("verbose output missing hook tag: %q", out.String())
	}
	if !strings.Contains(out.String(), "warming caches") {
		t.Errorf("verbose output missing command output: %q", out.String())
	}
}

func TestExecute_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Out: &bytes.Buffer{}}
	err := r.Execute(ctx, "before_run", []Hook{{Command: "echo hello"}}, nil)
	if err == nil {
		t.Fatal("expected context cancellation error but got nil")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("error %q does not mention context cancellation", err.Error())
	}
}

func TestExecute_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond)

	r := &Runner{Out: &bytes.Buffer{}}
	err := r.Execute(ctx, "before_run", []Hook{{Command: "echo hello"}}, nil)
	if err == nil {
		t.Fatal("expected context timeout error but got nil")
	}
}

func TestConfig_Empty(t *testing.T) {
	if !(Config{}).Empty() {
		t.Error("zero config should be empty")
	}
	cfg := Config{BeforeRun: []Hook{{Command: "true"}}}
	if cfg.Empty() {
		t.Error("config with a before_run hook should not be empty")
	}
}
