package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validTaskDoc = `---
platforms: [editor, mobile]
requires_runtime: true
capabilities:
  - render-pipeline
---
# Physics Step Validation

Checks the plugin's physics integration.

## 1. Simulation Checks

- performance: step time stays under budget
`

const invalidTaskDoc = `---
platfroms: [editor]
requires_runtime: "yes"
---
# Broken Frontmatter

## 1. Checks

- general: something
`

const noFrontmatterDoc = `# Plain Task

## 1. Checks

- general: something
`

const validProfilesYAML = `platforms:
  - name: editor
    target_fps: 60
    minimum_fps: 30
    max_frame_time_ms: 33.3
    max_total_memory_mb: 4096
    category_caps_mb:
      textures: 2048
    capabilities: [render-pipeline, audio-mixer]
  - name: headless-linux
    headless: true
    max_total_memory_mb: 1024
`

const invalidProfilesYAML = `platforms:
  - name: ""
    target_fps: -10
    headles: true
`

func TestValidateTaskBytes_Valid(t *testing.T) {
	errs := ValidateTaskBytes([]byte(validTaskDoc))
	require.Empty(t, errs, "valid frontmatter should have no errors")
}

func TestValidateTaskBytes_Invalid(t *testing.T) {
	errs := ValidateTaskBytes([]byte(invalidTaskDoc))
	require.NotEmpty(t, errs, "misspelled and mistyped fields should be caught")

	joined := joinErrs(errs)
	require.Contains(t, joined, "platfroms")
	require.Contains(t, joined, "requires_runtime")
}

func TestValidateTaskBytes_NoFrontmatterPasses(t *testing.T) {
	errs := ValidateTaskBytes([]byte(noFrontmatterDoc))
	require.Empty(t, errs, "frontmatter is optional")
}

func TestValidateTaskBytes_UnterminatedFrontmatter(t *testing.T) {
	errs := ValidateTaskBytes([]byte("---\nplatforms: [editor]\n# Never closed\n"))
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0], "closing delimiter")
}

func TestValidateProfilesBytes_Valid(t *testing.T) {
	errs := ValidateProfilesBytes([]byte(validProfilesYAML))
	require.Empty(t, errs, "valid profiles should have no errors")
}

func TestValidateProfilesBytes_Invalid(t *testing.T) {
	errs := ValidateProfilesBytes([]byte(invalidProfilesYAML))
	require.NotEmpty(t, errs, "invalid profiles should have errors")

	joined := joinErrs(errs)
	require.Contains(t, joined, "name")
	require.Contains(t, joined, "target_fps")
	require.Contains(t, joined, "headles")
}

func TestValidateProfilesBytes_MissingPlatforms(t *testing.T) {
	errs := ValidateProfilesBytes([]byte("platforms: []\n"))
	require.NotEmpty(t, errs, "empty platform list should be rejected")
}

func TestValidateProfilesFile_NotFound(t *testing.T) {
	_, err := ValidateProfilesFile("/nonexistent/profiles.yaml")
	require.Error(t, err)
}

func TestValidateTaskDir_MixedTree(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "physics"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.task.md"), []byte(validTaskDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "physics", "bad.task.md"), []byte(invalidTaskDoc), 0644))
	// Non-descriptor files are not schema-checked.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("---\nbogus: 1\n---\n"), 0644))

	taskErrs, err := ValidateTaskDir(dir)
	require.NoError(t, err)
	require.Len(t, taskErrs, 1)

	badErrs, ok := taskErrs[filepath.Join("physics", "bad.task.md")]
	require.True(t, ok, "should have errors for physics/bad.task.md")
	require.NotEmpty(t, badErrs)
}

func TestValidateTaskDir_SkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()

	hidden := filepath.Join(dir, ".archive")
	require.NoError(t, os.MkdirAll(hidden, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "old.task.md"), []byte(invalidTaskDoc), 0644))

	taskErrs, err := ValidateTaskDir(dir)
	require.NoError(t, err)
	require.Empty(t, taskErrs)
}

func TestValidateTaskDir_NotFound(t *testing.T) {
	_, err := ValidateTaskDir("/nonexistent/tasks")
	require.Error(t, err)
}

func joinErrs(errs []string) string {
	result := ""
	for _, e := range errs {
		result += e + "\n"
	}
	return result
}
