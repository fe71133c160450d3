package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugvet/plugvet/internal/scaffold"
	"github.com/plugvet/plugvet/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var interactive bool
	var pluginName string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new vetting project",
		Long: `Initialize a plugin vetting project: a .plugvet.yaml project file and
a tasks/ directory seeded with a starter task document.

Use --interactive to run a guided wizard that picks the plugin name,
target platforms, baseline tracking, and report format.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive, pluginName)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided setup wizard")
	cmd.Flags().StringVar(&pluginName, "name", "", "Plugin name for the starter task (default: my-plugin)")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive bool, pluginName string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var spec *wizard.ProjectSpec
	if interactive {
		var err error
		spec, err = wizard.RunInitWizard(cmd.InOrStdin(), cmd.OutOrStdout(), pluginName)
		if err != nil {
			return err
		}
	} else {
		if pluginName == "" {
			pluginName = "my-plugin"
		}
		if err := scaffold.ValidateName(pluginName); err != nil {
			return err
		}
		spec = &wizard.ProjectSpec{
			PluginName:      pluginName,
			TasksDir:        "tasks/",
			BaselineEnabled: true,
		}
	}

	configPath := filepath.Join(dir, ".plugvet.yaml")
	configContent := scaffold.ConfigYAML(spec.TasksDir, spec.Platforms, spec.BaselineEnabled, spec.Formats)
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return fmt.Errorf("failed to write .plugvet.yaml: %w", err)
	}

	tasksDir := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(spec.TasksDir, "/")))
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}

	taskDoc, err := wizard.GenerateTaskDoc(spec)
	if err != nil {
		return fmt.Errorf("failed to generate starter task: %w", err)
	}
	taskPath := filepath.Join(tasksDir, spec.PluginName+".task.md")
	if err := os.WriteFile(taskPath, []byte(taskDoc), 0o644); err != nil {
		return fmt.Errorf("failed to write starter task: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Initialized vetting project:") //nolint:errcheck
	fmt.Fprintf(out, "  %s\n", configPath)            //nolint:errcheck
	fmt.Fprintf(out, "  %s\n", taskPath)              //nolint:errcheck
	fmt.Fprintln(out)                                 //nolint:errcheck
	fmt.Fprintln(out, "Next: describe your plugin's checks in the task document, then run 'plugvet run'.") //nolint:errcheck

	return nil
}
