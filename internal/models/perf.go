package models

import "time"

// Standard memory categories reported by platform runtimes. Profiles may
// cap any category name; these are the ones the simulated runtimes emit.
const (
	MemTextures = "textures"
	MemAudio    = "audio"
	MemMeshes   = "meshes"
	MemScripts  = "scripts"
)

// PerformanceSample is one point-in-time capture of frame timing and
// memory usage broken down by asset category.
type PerformanceSample struct {
	Timestamp        time.Time        `json:"timestamp"`
	FPS              float64          `json:"fps"`
	FrameTimeMs      float64          `json:"frameTimeMs"`
	MemoryByCategory map[string]int64 `json:"memoryByCategory"`
}

// TotalMemory returns the sum of all category byte counts.
func (s *PerformanceSample) TotalMemory() int64 {
	var total int64
	for _, b := range s.MemoryByCategory {
		total += b
	}
	return total
}

// Clone returns a deep copy so readers never alias the sampler's buffer.
func (s *PerformanceSample) Clone() PerformanceSample {
	out := PerformanceSample{
		Timestamp:   s.Timestamp,
		FPS:         s.FPS,
		FrameTimeMs: s.FrameTimeMs,
	}
	if s.MemoryByCategory != nil {
		out.MemoryByCategory = make(map[string]int64, len(s.MemoryByCategory))
		for k, v := range s.MemoryByCategory {
			out.MemoryByCategory[k] = v
		}
	}
	return out
}

// PlatformProfile is the configuration struct describing one platform's
// performance envelope. Loaded from YAML, never code.
type PlatformProfile struct {
	Name                 string             `json:"name" yaml:"name"`
	Headless             bool               `json:"headless" yaml:"headless"`
	TargetFPS            float64            `json:"targetFps" yaml:"target_fps"`
	MinimumFPS           float64            `json:"minimumFps" yaml:"minimum_fps"`
	MaxFrameTimeMs       float64            `json:"maxFrameTimeMs" yaml:"max_frame_time_ms"`
	MaxTotalMemoryMB     float64            `json:"maxTotalMemoryMb" yaml:"max_total_memory_mb"`
	CategoryCapsMB       map[string]float64 `json:"categoryCapsMb,omitempty" yaml:"category_caps_mb,omitempty"`
	MaxAllocRateMBPerMin float64            `json:"maxAllocRateMbPerMin,omitempty" yaml:"max_alloc_rate_mb_per_min,omitempty"`
	Capabilities         []string           `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// HasCapability reports whether the profile declares the named capability
// package (case-sensitive, as declared in the profile file).
func (p *PlatformProfile) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
