package descriptor

import (
	"fmt"
	"strings"

	"github.com/plugvet/plugvet/internal/models"
	"gopkg.in/yaml.v3"
)

// Render serializes a descriptor back into canonical task-document
// markdown. Rendering then re-parsing yields an equal descriptor (modulo
// SourcePath and Checksum, which identify the concrete file).
func Render(d *models.TaskDescriptor) ([]byte, error) {
	var b strings.Builder

	fm, err := yaml.Marshal(d.Requirements)
	if err != nil {
		return nil, fmt.Errorf("marshalling frontmatter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", d.Name)

	if d.Purpose != "" {
		b.WriteString("## Purpose\n\n")
		b.WriteString(d.Purpose)
		b.WriteString("\n\n")
	}

	for i, s := range d.Sections {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, s.Title)
		for _, p := range s.Points {
			fmt.Fprintf(&b, "- %s: %s\n", p.Category, p.Description)
		}
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}
