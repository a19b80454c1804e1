package model

import "time"

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleStandard is a regular organization member.
	RoleStandard UserRole = "standard"
	// RoleResourceManager may manage resources and affiliations across
	// organizations.
	RoleResourceManager UserRole = "resource_manager"
)

// User is an authentication account scoped to an organization.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	OrgID        string    `json:"org_id"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsResourceManager returns true if the user may administer resources.
func (u *User) IsResourceManager() bool {
	return u.Role == RoleResourceManager
}
