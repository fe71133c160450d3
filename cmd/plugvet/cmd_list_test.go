package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const platformBoundTaskDoc = `---
platforms:
  - editor
requires_runtime: true
---

# Editor Gizmo Checks

## Purpose

Verify the gizmo overlay renders in the scene view.

## 1. Rendering

- performance: overlay draws inside the frame budget
`

func TestListCommand_PrintsTable(t *testing.T) {
	tasksDir := createTestProject(t, map[string]string{
		"shader.task.md": cleanTaskDoc,
		"gizmo.task.md":  platformBoundTaskDoc,
	})

	var out bytes.Buffer
	cmd := newListCommand()
	cmd.SetArgs([]string{tasksDir})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())

	output := out.String()
	assert.Contains(t, output, "Task")
	assert.Contains(t, output, "Platforms")
	assert.Contains(t, output, "shader-pack-validation")
	assert.Contains(t, output, "editor-gizmo-checks")
	assert.Contains(t, output, "editor")
	assert.Contains(t, output, "any", "unbound tasks run anywhere")
	assert.Contains(t, output, "yes", "runtime column for requires_runtime")
	assert.Contains(t, output, "2 task(s)")
}

func TestListCommand_EmptyDir(t *testing.T) {
	tasksDir := filepath.Join(t.TempDir(), "tasks")
	require.NoError(t, os.MkdirAll(tasksDir, 0o755))

	var out bytes.Buffer
	cmd := newListCommand()
	cmd.SetArgs([]string{tasksDir})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "No validation tasks found.")
}

func TestListCommand_ReportsParseFailures(t *testing.T) {
	tasksDir := createTestProject(t, map[string]string{
		"shader.task.md": cleanTaskDoc,
		"broken.task.md": "# Broken Doc\n\nNo sections at all.\n",
	})

	var out, errOut bytes.Buffer
	cmd := newListCommand()
	cmd.SetArgs([]string{tasksDir})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "1 task(s)")
	assert.Contains(t, errOut.String(), "failed:")
	assert.Contains(t, errOut.String(), "broken.task.md")
}

func TestListCommand_MissingDir(t *testing.T) {
	cmd := newListCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task root")
}
