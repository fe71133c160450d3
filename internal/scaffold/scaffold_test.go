package scaffold

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{"valid kebab-case", "physics-step", false, ""},
		{"valid simple", "audio", false, ""},
		{"empty", "", true, "must not be empty"},
		{"path traversal dots", "../evil", true, "invalid path characters"},
		{"forward slash", "a/b", true, "invalid path characters"},
		{"backslash", "a\\b", true, "invalid path characters"},
		{"traversal masked by clean", "a/..", true, "invalid path characters"},
		{"nested traversal", "a/../b", true, "invalid path characters"},
		{"dot only", ".", true, "invalid path characters"},
		{"double dot embedded", "foo..bar", true, "invalid path characters"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				if tc.errMsg != "" {
					assert.Contains(t, err.Error(), tc.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"physics-step", "Physics Step"},
		{"audio", "Audio"},
		{"asset-load-time", "Asset Load Time"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, TitleCase(tc.input))
		})
	}
}

func TestConfigYAML_FullChoices(t *testing.T) {
	out := ConfigYAML("validation/", []string{"editor", "mobile"}, false, "structured,junit")

	assert.Contains(t, out, `tasks: "validation/"`)
	assert.Contains(t, out, "platforms: [editor, mobile]")
	assert.Contains(t, out, `formats: "structured,junit"`)
	assert.Contains(t, out, "enabled: false")
}

func TestConfigYAML_MinimalChoices(t *testing.T) {
	out := ConfigYAML("tasks/", nil, true, "")

	assert.Contains(t, out, `tasks: "tasks/"`)
	assert.NotContains(t, out, "platforms:")
	assert.NotContains(t, out, "formats:")
	assert.Contains(t, out, "enabled: true")
}

func TestConfigYAML_IsValidYAMLShape(t *testing.T) {
	out := ConfigYAML("tasks/", []string{"editor"}, true, "human-summary")

	// Every line is either a comment, a section header, or an indented key.
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		require.True(t,
			strings.HasPrefix(line, "#") ||
				strings.HasPrefix(line, "  ") ||
				strings.HasSuffix(line, ":"),
			"unexpected line shape: %q", line)
	}
}
