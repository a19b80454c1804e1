package model

// Gap reasons reported by the allocator.
const (
	GapReasonAtCapacity = "Primary Resources at Capacity"
	GapReasonNoTeam     = "No Primary Team Members"
)

// SuggestedSplit is the placeholder allocation percentage recommended for
// administrative reallocation when a shared resource absorbs work. It is a
// fixed advisory value, not computed from data.
const SuggestedSplit = 30

// AllocationReport is the outcome of one auto-assignment run.
type AllocationReport struct {
	AssignedCount             int                `json:"assigned_count"`
	Gaps                      []GapEntry         `json:"gaps"`
	SharedAssignments         []SharedAssignment `json:"shared_assignments"`
	CrossPortfolioSuggestions []Suggestion       `json:"cross_portfolio_suggestions"`
	Summary                   AllocationSummary  `json:"summary"`
}

// AllocationSummary carries run-level counters.
type AllocationSummary struct {
	Assigned            int `json:"assigned"`
	Unassigned          int `json:"unassigned"`
	UsedSharedResources int `json:"used_shared_resources"`
	CanReallocate       int `json:"can_reallocate"`
}

// GapEntry records a task the allocator could not place, with the reason
// and whether reallocation candidates exist elsewhere.
type GapEntry struct {
	TaskID                  string `json:"task_id"`
	TaskTitle               string `json:"task_title"`
	ProjectName             string `json:"project_name"`
	RequiredTeam            string `json:"required_team"`
	Estimate                int    `json:"estimate"`
	Reason                  string `json:"reason"`
	HasCrossPortfolioOption bool   `json:"has_cross_portfolio_option"`
}

// SharedAssignment records a task placed on a resource whose primary
// affiliation is another portfolio.
type SharedAssignment struct {
	TaskID             string `json:"task_id"`
	TaskTitle          string `json:"task_title"`
	ProjectName        string `json:"project_name"`
	RequiredTeam       string `json:"required_team"`
	Estimate           int    `json:"estimate"`
	AssignedTo         string `json:"assigned_to"`
	ResourceID         string `json:"resource_id"`
	PrimaryPortfolioID string `json:"primary_portfolio_id"`
	TargetPortfolioID  string `json:"target_portfolio_id"`
	CurrentAllocation  int    `json:"current_allocation"`
	SuggestedSplit     int    `json:"suggested_split"`
}

// Suggestion lists reallocation candidates from other portfolios for an
// unassigned task.
type Suggestion struct {
	TaskID       string      `json:"task_id"`
	TaskTitle    string      `json:"task_title"`
	ProjectName  string      `json:"project_name"`
	RequiredTeam string      `json:"required_team"`
	Estimate     int         `json:"estimate"`
	Candidates   []Candidate `json:"candidates"`
}

// Candidate is a resource another portfolio could release.
// AvailableHours is the contractually unallocated share of its capacity,
// integer-truncated: capacity * (100 - allocation) / 100.
type Candidate struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	CurrentAllocation int    `json:"current_allocation"`
	AvailableHours    int    `json:"available_hours"`
	PortfolioID       string `json:"portfolio_id"`
}

// CascadeReport is the outcome of a task update with date cascading.
type CascadeReport struct {
	UpdatedTask   TaskDates      `json:"updated_task"`
	CascadedTasks []CascadeEntry `json:"cascaded_tasks"`
	TotalAffected int            `json:"total_affected"`
}

// TaskDates is the schedule snapshot of the directly-updated task.
type TaskDates struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate *Date  `json:"start_date"`
	EndDate   *Date  `json:"end_date"`
}

// CascadeEntry records one successor pushed by a cascade, in pre-order.
type CascadeEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Change   string `json:"change"`
	OldStart *Date  `json:"old_start"`
	OldEnd   *Date  `json:"old_end"`
	NewStart *Date  `json:"new_start"`
	NewEnd   *Date  `json:"new_end"`
}

// DependencyChain is the full predecessor/successor picture for one task.
type DependencyChain struct {
	Task         TaskRef       `json:"task"`
	Predecessors []TaskRef     `json:"predecessors"`
	Successors   []SuccessorRef `json:"successors"`
}

// TaskRef is a minimal task reference for chain reporting.
type TaskRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate *Date  `json:"start_date,omitempty"`
	EndDate   *Date  `json:"end_date,omitempty"`
}

// SuccessorRef is a successor node with its own successors, recursively.
type SuccessorRef struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	StartDate  *Date          `json:"start_date,omitempty"`
	Successors []SuccessorRef `json:"successors"`
}
