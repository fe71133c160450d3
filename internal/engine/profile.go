package engine

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plugvet/plugvet/internal/models"
)

//go:embed profiles.yaml
var defaultProfilesYAML []byte

type profilesFile struct {
	Platforms []*models.PlatformProfile `yaml:"platforms"`
}

// LoadProfiles reads platform profiles from a YAML file.
func LoadProfiles(path string) ([]*models.PlatformProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	profiles, err := parseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("parsing profiles %s: %w", path, err)
	}
	return profiles, nil
}

// DefaultProfiles returns the built-in editor, headless-linux and
// mobile envelopes.
func DefaultProfiles() []*models.PlatformProfile {
	profiles, err := parseProfiles(defaultProfilesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded profiles are invalid: %v", err))
	}
	return profiles
}

func parseProfiles(data []byte) ([]*models.PlatformProfile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Platforms) == 0 {
		return nil, fmt.Errorf("no platforms declared")
	}
	seen := map[string]bool{}
	for i, profile := range file.Platforms {
		if profile == nil || profile.Name == "" {
			return nil, fmt.Errorf("platform %d has no name", i+1)
		}
		if seen[profile.Name] {
			return nil, fmt.Errorf("duplicate platform %q", profile.Name)
		}
		seen[profile.Name] = true
		if profile.TargetFPS < 0 || profile.MinimumFPS < 0 || profile.MaxFrameTimeMs < 0 ||
			profile.MaxTotalMemoryMB < 0 || profile.MaxAllocRateMBPerMin < 0 {
			return nil, fmt.Errorf("platform %q has negative limits", profile.Name)
		}
		if profile.MinimumFPS > profile.TargetFPS && profile.TargetFPS > 0 {
			return nil, fmt.Errorf("platform %q: minimum_fps above target_fps", profile.Name)
		}
	}
	return file.Platforms, nil
}

// SelectProfiles filters profiles by name, preserving file order. Names
// must all resolve.
func SelectProfiles(profiles []*models.PlatformProfile, names []string) ([]*models.PlatformProfile, error) {
	if len(names) == 0 {
		return profiles, nil
	}
	byName := make(map[string]*models.PlatformProfile, len(profiles))
	for _, profile := range profiles {
		byName[profile.Name] = profile
	}
	out := make([]*models.PlatformProfile, 0, len(names))
	for _, name := range names {
		profile, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown platform %q", name)
		}
		out = append(out, profile)
	}
	return out, nil
}
