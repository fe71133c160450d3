package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already normal", in: "performance", want: "performance"},
		{name: "camel case split", in: "FrameTime", want: "frame time"},
		{name: "acronym preserved as token", in: "GPUMemory", want: "gpu memory"},
		{name: "mixed words", in: "Security  Sandboxing", want: "security sandboxing"},
		{name: "trailing punctuation stripped", in: "config.", want: "config"},
		{name: "empty", in: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCategory(tt.in))
		})
	}
}

func TestSplitPoint(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantCat  string
		wantDesc string
		wantOK   bool
	}{
		{
			name:     "simple pair",
			line:     "performance: frame time stays under 16ms",
			wantCat:  "performance",
			wantDesc: "frame time stays under 16ms",
			wantOK:   true,
		},
		{
			name:     "description keeps later colons",
			line:     "configuration: key: value pairs are validated",
			wantCat:  "configuration",
			wantDesc: "key: value pairs are validated",
			wantOK:   true,
		},
		{name: "no colon", line: "just a plain requirement", wantOK: false},
		{name: "url is not a category", line: "http://example.com/docs", wantOK: false},
		{name: "time is not a category", line: "12:30 nightly run", wantOK: false},
		{name: "too many prefix words", line: "the plugin must always do this: thing", wantOK: false},
		{name: "trailing colon only", line: "category:", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, desc, ok := splitPoint(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantCat, cat)
				assert.Equal(t, tt.wantDesc, desc)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "texture-streaming-checks", slugify("Texture Streaming Checks"))
	assert.Equal(t, "audio-v2-import", slugify("  Audio v2 Import "))
	assert.Equal(t, "already-a-slug", slugify("already-a-slug"))
	assert.Equal(t, "", slugify("  "))
}
