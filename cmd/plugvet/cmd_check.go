package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/plugvet/plugvet/internal/descriptor"
	"github.com/plugvet/plugvet/internal/projectconfig"
	"github.com/plugvet/plugvet/internal/registry"
	"github.com/plugvet/plugvet/internal/scoring"
	"github.com/plugvet/plugvet/internal/validation"
)

var (
	checkFormat       string
	checkProfilesPath string
)

// documentProblems collects everything check found wrong with one document.
type documentProblems struct {
	Path    string   `json:"path"`
	Errors  []string `json:"errors,omitempty"`
	Notices []string `json:"notices,omitempty"`
}

type profilesProblems struct {
	Path   string   `json:"path"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type checkJSONReport struct {
	Timestamp string             `json:"timestamp"`
	TaskRoot  string             `json:"taskRoot"`
	Checked   int                `json:"checked"`
	Problems  int                `json:"problems"`
	Documents []documentProblems `json:"documents,omitempty"`
	Profiles  *profilesProblems  `json:"profiles,omitempty"`
}

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [tasks-dir]",
		Short: "Validate task documents without running them",
		Long: `Parse every task document under the tasks directory and validate its
frontmatter against the descriptor schema. Nothing is executed; the
command exits non-zero when any document has problems.

With --profiles the platform profiles file is validated as well.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheckE,
	}
	cmd.Flags().StringVar(&checkFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&checkProfilesPath, "profiles", "", "Platform profiles YAML to validate")
	return cmd
}

func runCheckE(cmd *cobra.Command, args []string) error {
	if checkFormat != "text" && checkFormat != "json" {
		return fmt.Errorf("invalid format %q: expected text or json", checkFormat)
	}

	pc, err := projectconfig.Load(".")
	if err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}
	taskRoot := pc.Paths.Tasks
	if len(args) > 0 {
		taskRoot = args[0]
	}

	reg := registry.New(descriptor.NewParser(scoring.DefaultPolicy()))
	if err := reg.Discover(cmd.Context(), taskRoot); err != nil {
		return err
	}

	schemaErrs, err := validation.ValidateTaskDir(taskRoot)
	if err != nil {
		return err
	}

	documents := mergeDocumentProblems(taskRoot, reg, schemaErrs)

	var profiles *profilesProblems
	if checkProfilesPath != "" {
		errs, err := validation.ValidateProfilesFile(checkProfilesPath)
		if err != nil {
			return err
		}
		profiles = &profilesProblems{
			Path:   checkProfilesPath,
			Valid:  len(errs) == 0,
			Errors: errs,
		}
	}

	checked := reg.Len() + len(reg.Failures())
	problems := countProblems(documents, profiles)

	if checkFormat == "json" {
		if err := writeCheckJSON(cmd.OutOrStdout(), taskRoot, checked, problems, documents, profiles); err != nil {
			return err
		}
	} else {
		printCheckText(cmd.OutOrStdout(), checked, documents, profiles)
	}

	if problems > 0 {
		return &CheckFailedError{Problems: problems}
	}
	return nil
}

// mergeDocumentProblems folds parse failures, schema errors, and notices
// into one per-document view keyed by path relative to the task root.
func mergeDocumentProblems(taskRoot string, reg *registry.Registry, schemaErrs map[string][]string) []documentProblems {
	absRoot, absErr := filepath.Abs(taskRoot)

	relativize := func(path string) string {
		if absErr != nil {
			return path
		}
		if rel, err := filepath.Rel(absRoot, path); err == nil {
			return rel
		}
		return path
	}

	byPath := make(map[string]*documentProblems)
	get := func(path string) *documentProblems {
		doc, ok := byPath[path]
		if !ok {
			doc = &documentProblems{Path: path}
			byPath[path] = doc
		}
		return doc
	}

	for _, failure := range reg.Failures() {
		doc := get(relativize(failure.Path))
		doc.Errors = append(doc.Errors, fmt.Sprintf("parse: %v", failure.Err))
	}
	for path, errs := range schemaErrs {
		doc := get(path)
		doc.Errors = append(doc.Errors, errs...)
	}
	for _, notice := range reg.Notices() {
		doc := get(relativize(notice.Path))
		doc.Notices = append(doc.Notices, notice.Message)
	}

	documents := make([]documentProblems, 0, len(byPath))
	for _, doc := range byPath {
		documents = append(documents, *doc)
	}
	sort.Slice(documents, func(i, j int) bool { return documents[i].Path < documents[j].Path })
	return documents
}

func countProblems(documents []documentProblems, profiles *profilesProblems) int {
	n := 0
	for _, doc := range documents {
		n += len(doc.Errors)
	}
	if profiles != nil {
		n += len(profiles.Errors)
	}
	return n
}

func printCheckText(w io.Writer, checked int, documents []documentProblems, profiles *profilesProblems) {
	withErrors := 0
	for _, doc := range documents {
		if len(doc.Errors) == 0 && len(doc.Notices) == 0 {
			continue
		}
		icon := "⚠️ "
		if len(doc.Errors) > 0 {
			icon = "❌"
			withErrors++
		}
		fmt.Fprintf(w, "%s %s\n", icon, doc.Path) //nolint:errcheck
		for _, e := range doc.Errors {
			fmt.Fprintf(w, "    %s\n", e) //nolint:errcheck
		}
		for _, n := range doc.Notices {
			fmt.Fprintf(w, "    note: %s\n", n) //nolint:errcheck
		}
	}

	if profiles != nil {
		if profiles.Valid {
			fmt.Fprintf(w, "✅ profiles: %s\n", profiles.Path) //nolint:errcheck
		} else {
			fmt.Fprintf(w, "❌ profiles: %s\n", profiles.Path) //nolint:errcheck
			for _, e := range profiles.Errors {
				fmt.Fprintf(w, "    %s\n", e) //nolint:errcheck
			}
		}
	}

	fmt.Fprintf(w, "\nChecked %d document(s): %d ok, %d with errors\n", //nolint:errcheck
		checked, checked-withErrors, withErrors)
}

func writeCheckJSON(w io.Writer, taskRoot string, checked, problems int, documents []documentProblems, profiles *profilesProblems) error {
	report := checkJSONReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TaskRoot:  taskRoot,
		Checked:   checked,
		Problems:  problems,
		Documents: documents,
		Profiles:  profiles,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling check report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
