package model

import (
	"time"
)

// Task is a unit of work within a Project. Tasks form a dependency forest
// through PredecessorID: a task with no predecessor is a root, and a task's
// successors are all tasks whose PredecessorID points at it (derived, never
// stored). Acyclicity is not guaranteed by construction; the cascade engine
// guards traversals with a visited set.
type Task struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"org_id"`
	ProjectID string     `json:"project_id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`

	// AssigneeID references the Resource this task is assigned to,
	// empty when unassigned.
	AssigneeID string `json:"assignee_id,omitempty"`

	// Estimate is the effort in hours. Nil means not yet estimated; the
	// allocator treats a missing estimate as zero hours.
	Estimate *int `json:"estimate,omitempty"`
	Actual   int  `json:"actual"`

	StartDate *Date `json:"start_date,omitempty"`
	EndDate   *Date `json:"end_date,omitempty"`

	// PredecessorID references the task this one depends on.
	PredecessorID string `json:"predecessor_id,omitempty"`

	LinkedInitiativeID string `json:"linked_initiative_id,omitempty"`
	ValueSaved         *int   `json:"value_saved,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EstimateHours returns the task's estimate, treating nil as zero.
func (t *Task) EstimateHours() int {
	if t.Estimate == nil {
		return 0
	}
	return *t.Estimate
}

// Duration returns the task's span in days (EndDate - StartDate), or zero
// when either date is unset.
func (t *Task) Duration() int {
	if t.StartDate == nil || t.EndDate == nil {
		return 0
	}
	return t.StartDate.DaysUntil(*t.EndDate)
}
