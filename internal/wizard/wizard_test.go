package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugvet/plugvet/internal/validation"
)

func TestGenerateTaskDoc_BasicSpec(t *testing.T) {
	spec := &ProjectSpec{
		PluginName: "terrain-tools",
		TasksDir:   "tasks/",
		Platforms:  []string{"editor", "mobile"},
	}

	result, err := GenerateTaskDoc(spec)
	require.NoError(t, err)

	assert.Contains(t, result, "platforms: [editor, mobile]")
	assert.Contains(t, result, "# Terrain Tools Validation")
	assert.Contains(t, result, "the terrain-tools plugin")
	assert.Contains(t, result, "## 1. Installation Checks")
	assert.Contains(t, result, "## 2. Runtime Behavior")
	assert.Contains(t, result, "## 3. Integration")
	assert.Contains(t, result, "- performance: frame rate stays above the platform minimum")
}

func TestGenerateTaskDoc_DefaultPlatforms(t *testing.T) {
	spec := &ProjectSpec{PluginName: "audio-mixer"}

	result, err := GenerateTaskDoc(spec)
	require.NoError(t, err)

	assert.Contains(t, result, "platforms: [editor, headless-linux]")
}

func TestGenerateTaskDoc_FrontmatterValidates(t *testing.T) {
	spec := &ProjectSpec{
		PluginName: "particle-fx",
		Platforms:  []string{"editor"},
	}

	result, err := GenerateTaskDoc(spec)
	require.NoError(t, err)

	// The starter descriptor must itself pass plugvet check.
	errs := validation.ValidateTaskBytes([]byte(result))
	assert.Empty(t, errs, "starter task should pass schema validation")
}
