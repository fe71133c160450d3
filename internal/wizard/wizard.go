// Package wizard drives the interactive plugvet init flow.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/plugvet/plugvet/internal/scaffold"
)

// ProjectSpec holds all fields collected during the interactive wizard.
type ProjectSpec struct {
	PluginName      string
	TasksDir        string
	Platforms       []string
	BaselineEnabled bool
	Formats         string
}

const taskDocTemplate = `---
platforms: [{{ .PlatformsLine }}]
---
# {{ .Title }}

Checks that the {{ .Name }} plugin installs cleanly and stays inside its
performance envelope.

## 1. Installation Checks

- configuration: plugin manifest declares a name and version
- configuration: install layout matches the engine plugin directory contract

## 2. Runtime Behavior

- functional: plugin initializes without errors
- performance: frame rate stays above the platform minimum while the plugin is active
- performance: textures memory stays under the category cap

## 3. Integration

- integration: plugin cooperates with the asset pipeline
- security: plugin requests no capabilities beyond its manifest
`

// RunInitWizard runs an interactive huh form to collect project choices.
// If initialName is non-empty, it pre-populates the plugin name field.
func RunInitWizard(in io.Reader, out io.Writer, initialName string) (*ProjectSpec, error) {
	var (
		name      = initialName
		tasksDir  = "tasks/"
		platforms []string
		baseline  = true
		format    string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Plugin name").
				Description("A kebab-case name for the plugin under vetting").
				Placeholder("my-plugin").
				Value(&name).
				Validate(func(s string) error {
					return scaffold.ValidateName(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Tasks directory").
				Description("Where task descriptors (.task.md) live").
				Placeholder("tasks/").
				Value(&tasksDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("tasks directory is required")
					}
					return nil
				}),
			huh.NewMultiSelect[string]().
				Title("Platforms").
				Description("Which platform envelopes to vet against").
				Options(
					huh.NewOption("editor", "editor").Selected(true),
					huh.NewOption("headless-linux", "headless-linux").Selected(true),
					huh.NewOption("mobile", "mobile"),
				).
				Value(&platforms),
			huh.NewConfirm().
				Title("Track baselines?").
				Description("Keeps score history per task and platform to flag regressions").
				Value(&baseline),
			huh.NewSelect[string]().
				Title("Default report format").
				Options(
					huh.NewOption("human-summary", "human-summary"),
					huh.NewOption("structured", "structured"),
					huh.NewOption("ci-annotations", "ci-annotations"),
					huh.NewOption("junit", "junit"),
				).
				Value(&format),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	return &ProjectSpec{
		PluginName:      strings.TrimSpace(name),
		TasksDir:        strings.TrimSpace(tasksDir),
		Platforms:       platforms,
		BaselineEnabled: baseline,
		Formats:         format,
	}, nil
}

// GenerateTaskDoc renders a starter task descriptor from the given spec.
func GenerateTaskDoc(spec *ProjectSpec) (string, error) {
	tmpl, err := template.New("taskdoc").Parse(taskDocTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	platforms := spec.Platforms
	if len(platforms) == 0 {
		platforms = []string{"editor", "headless-linux"}
	}

	data := struct {
		Name          string
		Title         string
		PlatformsLine string
	}{
		Name:          spec.PluginName,
		Title:         scaffold.TitleCase(spec.PluginName) + " Validation",
		PlatformsLine: strings.Join(platforms, ", "),
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
