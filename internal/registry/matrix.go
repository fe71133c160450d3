package registry

import "github.com/plugvet/plugvet/internal/models"

// WorkUnit is one task scheduled against one platform.
type WorkUnit struct {
	Task     *models.TaskDescriptor
	Platform *models.PlatformProfile
}

// Key identifies the unit as "task/platform".
func (u WorkUnit) Key() string {
	return u.Task.Name + "/" + u.Platform.Name
}

// BuildMatrix crosses every discovered task with every platform and
// drops incompatible pairs: platforms the task does not target, and
// headless platforms for tasks that need a live runtime. Units come out
// ordered by task name, then by the given platform order.
func (r *Registry) BuildMatrix(platforms []*models.PlatformProfile) []WorkUnit {
	var units []WorkUnit
	for _, task := range r.tasks {
		for _, platform := range platforms {
			if !task.SupportsPlatform(platform.Name) {
				continue
			}
			if task.Requirements.RequiresRuntime && platform.Headless {
				continue
			}
			units = append(units, WorkUnit{Task: task, Platform: platform})
		}
	}
	return units
}
