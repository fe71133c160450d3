// Package models defines the shared data model for validation runs:
// task descriptors, execution results, aggregate reports, performance
// samples and baseline history entries.
package models

import (
	"fmt"
	"strings"
)

// PointType classifies a validation point (e.g. configuration, performance).
type PointType string

const (
	PointConfiguration PointType = "configuration"
	PointFunctional    PointType = "functional"
	PointPerformance   PointType = "performance"
	PointSecurity      PointType = "security"
	PointIntegration   PointType = "integration"
	PointGeneral       PointType = "general"
)

// KnownPointTypes lists every valid PointType, in display order.
var KnownPointTypes = []PointType{
	PointConfiguration,
	PointFunctional,
	PointPerformance,
	PointSecurity,
	PointIntegration,
	PointGeneral,
}

// ValidationPoint is a single weighted criterion inside a section.
type ValidationPoint struct {
	Category    string    `json:"category" yaml:"category"`
	Description string    `json:"description" yaml:"description"`
	Weight      float64   `json:"weight" yaml:"weight"`
	Type        PointType `json:"type" yaml:"type"`
}

// MaxPointScore returns the highest score this point can earn (3x weight).
func (p ValidationPoint) MaxPointScore() float64 {
	w := p.Weight
	if w <= 0 {
		w = 1.0
	}
	return 3.0 * w
}

// Section is an ordered group of validation points under a numbered heading.
type Section struct {
	Title  string            `json:"title" yaml:"title"`
	Points []ValidationPoint `json:"points" yaml:"points"`
}

// Requirements captures a task's declared platform and dependency needs.
// Values come from descriptor frontmatter when present, otherwise from
// keyword heuristics applied by the registry.
type Requirements struct {
	TargetPlatforms []string `json:"targetPlatforms,omitempty" yaml:"platforms,omitempty"`
	RequiresRuntime bool     `json:"requiresRuntime" yaml:"requires_runtime"`
	Dependencies    []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// TaskDescriptor is the parsed, immutable form of one validation task
// document. One descriptor may be executed against many platforms.
type TaskDescriptor struct {
	Name         string       `json:"name" yaml:"name"`
	Purpose      string       `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Sections     []Section    `json:"sections" yaml:"sections"`
	Requirements Requirements `json:"requirements" yaml:"requirements"`

	// EstimatedCost is a unitless effort figure derived from document size;
	// the runner maps it onto a per-execution timeout.
	EstimatedCost int `json:"estimatedCost" yaml:"estimated_cost"`

	// SourcePath and Checksum identify the document this descriptor was
	// parsed from. Both are informational and excluded from round-trip
	// equality.
	SourcePath string `json:"sourcePath,omitempty" yaml:"source_path,omitempty"`
	Checksum   string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// PointCount returns the total number of validation points across sections.
func (d *TaskDescriptor) PointCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Points)
	}
	return n
}

// Validate checks structural invariants common to every parsed descriptor.
func (d *TaskDescriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("descriptor has no name")
	}
	if len(d.Sections) == 0 {
		return fmt.Errorf("descriptor %q has no sections", d.Name)
	}
	for si, s := range d.Sections {
		for pi, p := range s.Points {
			if p.Weight <= 0 {
				return fmt.Errorf("descriptor %q section %d point %d: weight must be positive, got %v",
					d.Name, si+1, pi+1, p.Weight)
			}
		}
	}
	return nil
}

// SupportsPlatform reports whether the task may run on the named platform.
// An empty TargetPlatforms list means "any platform".
func (d *TaskDescriptor) SupportsPlatform(platform string) bool {
	if len(d.Requirements.TargetPlatforms) == 0 {
		return true
	}
	for _, p := range d.Requirements.TargetPlatforms {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
}
