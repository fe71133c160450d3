package descriptor

import (
	"strings"
	"unicode"

	"github.com/fatih/camelcase"
)

// maxCategoryWords limits how long a bullet prefix may be before we stop
// treating it as a category label. "Frame timing: ..." is a category;
// "The plugin must always: ..." is prose.
const maxCategoryWords = 4

// NormalizeCategory canonicalizes a raw category label: camel case tokens
// are split ("FrameTime" -> "frame time"), whitespace is collapsed, and the
// result is lowercased.
func NormalizeCategory(raw string) string {
	fields := strings.Fields(raw)
	var tokens []string
	for _, f := range fields {
		for _, part := range camelcase.Split(f) {
			part = strings.TrimFunc(part, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsNumber(r)
			})
			if part != "" {
				tokens = append(tokens, strings.ToLower(part))
			}
		}
	}
	return strings.Join(tokens, " ")
}

// splitPoint splits a bullet line into category and description at the
// first colon. Returns ok=false when the line has no colon or the prefix
// does not look like a category label.
func splitPoint(line string) (category, description string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 || idx == len(line)-1 {
		return "", "", false
	}
	category = strings.TrimSpace(line[:idx])
	description = strings.TrimSpace(line[idx+1:])
	if category == "" || description == "" {
		return "", "", false
	}
	if len(strings.Fields(category)) > maxCategoryWords {
		return "", "", false
	}
	// URLs and times ("http://", "12:30") are not category labels.
	if strings.HasPrefix(description, "//") || strings.ContainsAny(category, "/\\") || isAllDigits(category) {
		return "", "", false
	}
	return category, description, true
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// slugify converts a document title into a stable task name:
// "Texture Streaming Checks" -> "texture-streaming-checks".
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
