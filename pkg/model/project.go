package model

import "time"

// Organization is the tenant boundary (a "portfolio"). It owns projects and
// tasks, and holds primary claims on some resources.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Project groups tasks under an organization. Type is the required-team tag
// every task in the project inherits as its allocation matching criterion
// (e.g. "Website", "Configurator", "Asset Production").
type Project struct {
	ID     string        `json:"id"`
	OrgID  string        `json:"org_id"`
	Name   string        `json:"name"`
	Status ProjectStatus `json:"status"`
	Health ProjectHealth `json:"health"`
	Type   string        `json:"type"`
	Scale  string        `json:"scale,omitempty"`

	StartDate *Date `json:"start_date,omitempty"`
	EndDate   *Date `json:"end_date,omitempty"`

	// OriginalEndDate is the baseline committed end date; the gap between
	// it and EndDate feeds schedule-variance reporting.
	OriginalEndDate *Date `json:"original_end_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// VarianceDays returns the schedule slip in days (positive = late), or zero
// when either end date is unset.
func (p *Project) VarianceDays() int {
	if p.EndDate == nil || p.OriginalEndDate == nil {
		return 0
	}
	return p.OriginalEndDate.DaysUntil(*p.EndDate)
}
