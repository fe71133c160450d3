package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugvet/plugvet/internal/models"
)

// resetRunGlobals zeroes the package-level flag vars so prior tests don't leak.
func resetRunGlobals() {
	runTaskFilters = nil
	runPlatforms = nil
	runProfilesPath = ""
	runFormats = ""
	runOutputDir = ""
	runConcurrency = 0
	runTimeout = 0
	runBaselineDB = ""
	runNoBaseline = false
	runBundle = false
	runVerbose = false
}

const cleanTaskDoc = `# Shader Pack Validation

## Purpose

Verify the shader pack installs and renders without leaking memory.

## 1. Installation Checks

- installation: shader archive unpacks without errors
- configuration: pipeline cache settings are declared

## 2. Runtime Behavior

- performance: frame time stays inside the platform budget
- memory: texture memory stays under the category cap
`

// createTestProject builds a tasks dir holding the given documents and
// returns its path.
func createTestProject(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	tasksDir := filepath.Join(dir, "tasks")
	require.NoError(t, os.MkdirAll(tasksDir, 0o755))
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(tasksDir, name), []byte(content), 0o644))
	}
	return tasksDir
}

// ---------------------------------------------------------------------------
// Flag parsing
// ---------------------------------------------------------------------------

func TestRunCommand_FlagsParsed(t *testing.T) {
	resetRunGlobals()

	cmd := newRunCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--task", "shader-*",
		"--platform", "editor",
		"--output-format", "structured,junit",
		"--output", "out",
		"--concurrency", "3",
		"--timeout", "45s",
		"--no-baseline",
	}))

	assert.Equal(t, []string{"shader-*"}, runTaskFilters)
	assert.Equal(t, []string{"editor"}, runPlatforms)
	assert.Equal(t, "structured,junit", runFormats)
	assert.Equal(t, "out", runOutputDir)
	assert.Equal(t, 3, runConcurrency)
	assert.Equal(t, 45*time.Second, runTimeout)
	assert.True(t, runNoBaseline)
}

func TestRunCommand_ShortFlags(t *testing.T) {
	resetRunGlobals()

	cmd := newRunCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"-f", "structured",
		"-o", "reports-here",
		"-c", "2",
		"-v",
	}))

	assert.Equal(t, "structured", runFormats)
	assert.Equal(t, "reports-here", runOutputDir)
	assert.Equal(t, 2, runConcurrency)
	assert.True(t, runVerbose)
}

// ---------------------------------------------------------------------------
// Error handling
// ---------------------------------------------------------------------------

func TestRunCommand_MissingTasksDir(t *testing.T) {
	resetRunGlobals()

	cmd := newRunCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task root")
}

func TestRunCommand_UnknownFormat(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})

	cmd := newRunCommand()
	cmd.SetArgs([]string{tasksDir, "--output-format", "pdf", "--no-baseline"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestRunCommand_UnknownPlatform(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})

	cmd := newRunCommand()
	cmd.SetArgs([]string{tasksDir, "--platform", "dreamcast", "--no-baseline"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dreamcast")
}

// ---------------------------------------------------------------------------
// Full pipeline through the simulated runtimes
// ---------------------------------------------------------------------------

// requireGateOrNil accepts a clean exit or a gate decision, anything else
// means the pipeline broke. Simulated scores vary by task name, so tests
// don't pin the gate outcome itself.
func requireGateOrNil(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	var gateErr *GateBlockedError
	require.ErrorAs(t, err, &gateErr, "unexpected pipeline error: %v", err)
}

func TestRunCommand_EndToEnd(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})

	var out bytes.Buffer
	cmd := newRunCommand()
	cmd.SetArgs([]string{tasksDir, "--no-baseline"})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	requireGateOrNil(t, cmd.Execute())

	assert.Contains(t, out.String(), "Vetting 1 task(s) across 3 platform(s)")
}

func TestRunCommand_StructuredReport(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})
	outputDir := t.TempDir()

	cmd := newRunCommand()
	cmd.SetArgs([]string{tasksDir, "--no-baseline", "-f", "structured", "-o", outputDir})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	requireGateOrNil(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(outputDir, "report.json"))
	require.NoError(t, err)

	var report models.AggregateReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.TotalTasks, "one task across three default platforms")
	assert.Len(t, report.TaskDetails, 1)
	assert.Len(t, report.PlatformSummary, 3)
}

func TestRunCommand_PlatformFilter(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})
	outputDir := t.TempDir()

	cmd := newRunCommand()
	cmd.SetArgs([]string{tasksDir, "--no-baseline", "--platform", "editor", "-f", "structured", "-o", outputDir})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	requireGateOrNil(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(outputDir, "report.json"))
	require.NoError(t, err)

	var report models.AggregateReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.TotalTasks)
	require.Contains(t, report.PlatformSummary, "editor")
	assert.Len(t, report.PlatformSummary, 1)
}

func TestRunCommand_BaselineRecordsHistory(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})
	dbPath := filepath.Join(t.TempDir(), "baselines.db")

	for i := 0; i < 2; i++ {
		resetRunGlobals()
		cmd := newRunCommand()
		cmd.SetArgs([]string{tasksDir, "--baseline-db", dbPath, "--platform", "editor"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		requireGateOrNil(t, cmd.Execute())
	}

	// Two runs leave two entries behind for the single (task, platform) key.
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunCommand_BundleWritesArtifact(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})
	outputDir := t.TempDir()

	// The default artifacts dir is project-relative, so run from a scratch dir.
	t.Chdir(t.TempDir())

	cmd := newRunCommand()
	cmd.SetArgs([]string{
		tasksDir, "--no-baseline", "--bundle",
		"-f", "structured", "-o", outputDir,
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	requireGateOrNil(t, cmd.Execute())

	entries, err := os.ReadDir(filepath.Join(".plugvet", "artifacts"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), ".tar.zst")
}

func TestRunCommand_VerboseProgress(t *testing.T) {
	resetRunGlobals()

	tasksDir := createTestProject(t, map[string]string{"shader.task.md": cleanTaskDoc})

	var out bytes.Buffer
	cmd := newRunCommand()
	cmd.SetArgs([]string{tasksDir, "--no-baseline", "--platform", "editor", "-v"})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	requireGateOrNil(t, cmd.Execute())

	assert.Contains(t, out.String(), "[1/1] shader-pack-validation on editor")
	assert.Contains(t, out.String(), "Run completed")
	assert.Contains(t, out.String(), "editor telemetry:")
}
