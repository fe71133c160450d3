// Package reporting renders aggregate reports for their three
// audiences: machines (structured JSON), CI pipelines (annotation
// lines, JUnit XML) and humans (styled summary with a plain-language
// interpretation).
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/plugvet/plugvet/internal/models"
)

// Format names one output rendering.
type Format string

const (
	FormatStructured    Format = "structured"
	FormatCIAnnotations Format = "ci-annotations"
	FormatHumanSummary  Format = "human-summary"
	FormatJUnit         Format = "junit"
)

// Filenames used when multiple formats are written into a directory.
const (
	StructuredFileName  = "report.json"
	AnnotationsFileName = "ci-annotations.jsonl"
	SummaryFileName     = "summary.txt"
	JUnitFileName       = "junit.xml"
)

// ParseFormats splits a comma-separated format list and validates
// every name.
func ParseFormats(csv string) ([]Format, error) {
	if strings.TrimSpace(csv) == "" {
		return []Format{FormatHumanSummary}, nil
	}
	var formats []Format
	seen := map[Format]bool{}
	for _, part := range strings.Split(csv, ",") {
		name := Format(strings.TrimSpace(part))
		switch name {
		case FormatStructured, FormatCIAnnotations, FormatHumanSummary, FormatJUnit:
		case "":
			continue
		default:
			return nil, fmt.Errorf("unknown output format %q (want structured, ci-annotations, human-summary or junit)", name)
		}
		if !seen[name] {
			formats = append(formats, name)
			seen[name] = true
		}
	}
	return formats, nil
}

// FileNameFor returns the conventional file name for a format.
func FileNameFor(format Format) string {
	switch format {
	case FormatStructured:
		return StructuredFileName
	case FormatCIAnnotations:
		return AnnotationsFileName
	case FormatJUnit:
		return JUnitFileName
	default:
		return SummaryFileName
	}
}

// WriteStructured writes the report as indented JSON. Map keys
// marshal sorted, so the same report always produces the same bytes.
func WriteStructured(w io.Writer, report *models.AggregateReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode structured report: %w", err)
	}
	return nil
}

// Annotation is one CI-annotation line. Pipelines match on level to
// decorate the offending task.
type Annotation struct {
	Level    string `json:"level"`
	Task     string `json:"task"`
	Platform string `json:"platform"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Annotations flattens per-result findings into annotation records,
// in result order. ERROR results contribute one synthesized record
// carrying their error message.
func Annotations(results []*models.ExecutionResult) []Annotation {
	annotations := []Annotation{}
	for _, result := range results {
		if result.Status == models.StatusError {
			annotations = append(annotations, Annotation{
				Level:    "error",
				Task:     result.TaskName,
				Platform: result.Platform,
				Category: "execution",
				Message:  result.ErrorMsg,
			})
			continue
		}
		for _, issue := range result.Issues {
			level := "warning"
			if issue.Severity == models.IssueCritical {
				level = "error"
			}
			annotations = append(annotations, Annotation{
				Level:    level,
				Task:     result.TaskName,
				Platform: result.Platform,
				Category: issue.Category,
				Message:  issue.Message,
			})
		}
	}
	return annotations
}

// WriteCIAnnotations writes one JSON object per line.
func WriteCIAnnotations(w io.Writer, results []*models.ExecutionResult) error {
	enc := json.NewEncoder(w)
	for _, annotation := range Annotations(results) {
		if err := enc.Encode(annotation); err != nil {
			return fmt.Errorf("encode annotation: %w", err)
		}
	}
	return nil
}
