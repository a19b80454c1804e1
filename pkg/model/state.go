package model

// TaskStatus represents the lifecycle status of a Task.
type TaskStatus string

const (
	TaskStatusPlanning   TaskStatus = "Planning"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusBlocked    TaskStatus = "Blocked"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the task has finished. Terminal tasks are
// never considered by the allocator.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted
}

// ProjectHealth represents the reported health of a Project.
type ProjectHealth string

const (
	HealthOnTrack  ProjectHealth = "On Track"
	HealthAtRisk   ProjectHealth = "At Risk"
	HealthOffTrack ProjectHealth = "Off Track"
)

// ProjectStatus represents the lifecycle status of a Project.
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "Planning"
	ProjectStatusInProgress ProjectStatus = "In Progress"
	ProjectStatusLive       ProjectStatus = "Live"
	ProjectStatusClosed     ProjectStatus = "Closed"
)
