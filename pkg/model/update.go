package model

// TaskUpdate enumerates the mutable fields of a Task. Nil fields are left
// untouched; set fields are applied through Apply. Using an explicit struct
// instead of name-based field assignment makes an invalid field a
// compile-time error.
type TaskUpdate struct {
	Title              *string     `json:"title,omitempty"`
	Status             *TaskStatus `json:"status,omitempty"`
	AssigneeID         *string     `json:"assignee_id,omitempty"`
	Estimate           *int        `json:"estimate,omitempty"`
	Actual             *int        `json:"actual,omitempty"`
	StartDate          *Date       `json:"start_date,omitempty"`
	EndDate            *Date       `json:"end_date,omitempty"`
	PredecessorID      *string     `json:"predecessor_id,omitempty"`
	LinkedInitiativeID *string     `json:"linked_initiative_id,omitempty"`
}

// Apply copies the set fields onto the task.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.AssigneeID != nil {
		t.AssigneeID = *u.AssigneeID
	}
	if u.Estimate != nil {
		t.Estimate = u.Estimate
	}
	if u.Actual != nil {
		t.Actual = *u.Actual
	}
	if u.StartDate != nil {
		d := *u.StartDate
		t.StartDate = &d
	}
	if u.EndDate != nil {
		d := *u.EndDate
		t.EndDate = &d
	}
	if u.PredecessorID != nil {
		t.PredecessorID = *u.PredecessorID
	}
	if u.LinkedInitiativeID != nil {
		t.LinkedInitiativeID = *u.LinkedInitiativeID
	}
}

// TouchesEndDate reports whether applying the update changes the task's
// end date. Date cascading only triggers on end-date changes.
func (u TaskUpdate) TouchesEndDate() bool {
	return u.EndDate != nil
}

// Validate rejects values the core must never see.
func (u TaskUpdate) Validate() error {
	if u.Estimate != nil && *u.Estimate < 0 {
		return NewValidationError("estimate must be non-negative",
			FieldError{Field: "estimate", Message: "negative value"})
	}
	if u.Title != nil && *u.Title == "" {
		return NewValidationError("title must not be empty",
			FieldError{Field: "title", Message: "empty value"})
	}
	if u.StartDate != nil && u.EndDate != nil && !u.EndDate.OnOrAfter(*u.StartDate) {
		return NewValidationError("end_date precedes start_date",
			FieldError{Field: "end_date", Message: "before start_date"})
	}
	return nil
}

// ProjectUpdate enumerates the mutable fields of a Project.
type ProjectUpdate struct {
	Name            *string        `json:"name,omitempty"`
	Status          *ProjectStatus `json:"status,omitempty"`
	Health          *ProjectHealth `json:"health,omitempty"`
	Type            *string        `json:"type,omitempty"`
	Scale           *string        `json:"scale,omitempty"`
	StartDate       *Date          `json:"start_date,omitempty"`
	EndDate         *Date          `json:"end_date,omitempty"`
	OriginalEndDate *Date          `json:"original_end_date,omitempty"`
}

// Apply copies the set fields onto the project.
func (u ProjectUpdate) Apply(p *Project) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Health != nil {
		p.Health = *u.Health
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.Scale != nil {
		p.Scale = *u.Scale
	}
	if u.StartDate != nil {
		d := *u.StartDate
		p.StartDate = &d
	}
	if u.EndDate != nil {
		d := *u.EndDate
		p.EndDate = &d
	}
	if u.OriginalEndDate != nil {
		d := *u.OriginalEndDate
		p.OriginalEndDate = &d
	}
}

// ResourceUpdate enumerates the mutable fields of a Resource.
type ResourceUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Team     *string `json:"team,omitempty"`
	Capacity *int    `json:"capacity,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Apply copies the set fields onto the resource.
func (u ResourceUpdate) Apply(r *Resource) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Email != nil {
		r.Email = *u.Email
	}
	if u.Team != nil {
		r.Team = *u.Team
	}
	if u.Capacity != nil {
		r.Capacity = *u.Capacity
	}
	if u.Active != nil {
		r.Active = *u.Active
	}
}

// Validate rejects invalid resource values.
func (u ResourceUpdate) Validate() error {
	if u.Capacity != nil && *u.Capacity < 0 {
		return NewValidationError("capacity must be non-negative",
			FieldError{Field: "capacity", Message: "negative value"})
	}
	return nil
}
