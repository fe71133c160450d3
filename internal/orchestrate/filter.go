package orchestrate

import (
	"fmt"
	"path/filepath"

	"github.com/plugvet/plugvet/internal/registry"
)

// FilterUnits returns the subset of units whose task name matches at
// least one task pattern and whose platform matches at least one
// platform pattern. An empty pattern slice matches everything.
func FilterUnits(units []registry.WorkUnit, taskPatterns, platformPatterns []string) ([]registry.WorkUnit, error) {
	var matched []registry.WorkUnit
	for _, unit := range units {
		taskOK, err := matchesAny(unit.Task.Name, taskPatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid task filter: %w", err)
		}
		platformOK, err := matchesAny(unit.Platform.Name, platformPatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid platform filter: %w", err)
		}
		if taskOK && platformOK {
			matched = append(matched, unit)
		}
	}
	return matched, nil
}

// matchesAny reports whether name matches any glob pattern. No patterns
// means match.
func matchesAny(name string, patterns []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, p := range patterns {
		ok, err := filepath.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
