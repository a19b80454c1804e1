package model

import "time"

// Resource is a globally-visible assignable worker with a team tag and a
// monthly capacity in hours. Organization membership lives on Affiliation;
// a resource may be shared across several organizations.
type Resource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Team     string `json:"team"`
	Capacity int    `json:"capacity"`
	Active   bool   `json:"active"`

	CreatedAt time.Time `json:"created_at"`
}

// Affiliation links a resource to an organization with an allocation split.
// AllocationPercent is the fraction of the resource's capacity contractually
// owed to that organization (0-100); a resource whose total allocation is
// below 100 has contractually free capacity other portfolios may borrow.
type Affiliation struct {
	ID                string    `json:"id"`
	ResourceID        string    `json:"resource_id"`
	OrgID             string    `json:"org_id"`
	Primary           bool      `json:"is_primary"`
	AllocationPercent int       `json:"allocation_percent"`
	CreatedAt         time.Time `json:"created_at"`
}

// ResourceAssignment is a (resource, affiliation) row as loaded for an
// allocation run, with consumed hours already derived from assigned tasks.
type ResourceAssignment struct {
	Resource    Resource    `json:"resource"`
	Affiliation Affiliation `json:"affiliation"`

	// UsedHours is the sum of estimates of tasks currently assigned to
	// the resource, computed at load time.
	UsedHours int `json:"used_hours"`
}
