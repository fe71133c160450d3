// Package scaffold provides the starter-file templates behind plugvet init.
package scaffold

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateName rejects names with path-traversal characters or empty names.
// Plugin and task names become filenames, so they must stay inside one path
// segment.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	cleaned := filepath.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q contains invalid path characters", name)
	}
	return nil
}

// TitleCase converts a kebab-case name to Title Case.
func TitleCase(s string) string {
	words := strings.Split(s, "-")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ConfigYAML returns a starter .plugvet.yaml for the given choices.
func ConfigYAML(tasksDir string, platforms []string, baselineEnabled bool, formats string) string {
	var b strings.Builder
	b.WriteString("# plugvet project configuration\n")
	b.WriteString("paths:\n")
	fmt.Fprintf(&b, "  tasks: %q\n", tasksDir)
	b.WriteString("defaults:\n")
	if len(platforms) > 0 {
		fmt.Fprintf(&b, "  platforms: [%s]\n", strings.Join(platforms, ", "))
	}
	if formats != "" {
		fmt.Fprintf(&b, "  formats: %q\n", formats)
	}
	b.WriteString("baseline:\n")
	fmt.Fprintf(&b, "  enabled: %v\n", baselineEnabled)
	return b.String()
}
