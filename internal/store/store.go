package store

import (
	"context"

	"github.com/me/teamplan/pkg/model"
)

// Store defines the persistence layer for TeamPlan entities.
//
// Get* methods return (nil, nil) when the row does not exist; callers decide
// whether absence is an error. List* methods return empty slices, never nil
// errors for empty sets.
type Store interface {
	// Organizations
	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, id string) (*model.Organization, error)
	ListOrganizations(ctx context.Context) ([]*model.Organization, error)

	// Projects
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, orgID string) ([]*model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Tasks
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// ListTasks returns the org's tasks, optionally filtered by project.
	ListTasks(ctx context.Context, orgID, projectID string) ([]*model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, id string) error

	// UnassignedTasks returns the org's tasks with no assignee and a
	// non-terminal status, in insertion order. The allocator depends on
	// this order being stable across identical runs.
	UnassignedTasks(ctx context.Context, orgID string) ([]*model.Task, error)

	// Successors returns all tasks whose predecessor is taskID.
	Successors(ctx context.Context, taskID string) ([]*model.Task, error)

	// CommitTasks applies in-memory task mutations in a single
	// transaction. Either every task is persisted or none are.
	CommitTasks(ctx context.Context, tasks []*model.Task) error

	// Resources
	CreateResource(ctx context.Context, r *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	// ListResources returns resources affiliated with the organization,
	// ordered by name.
	ListResources(ctx context.Context, orgID string) ([]*model.Resource, error)
	UpdateResource(ctx context.Context, r *model.Resource) error
	DeleteResource(ctx context.Context, id string) error
	CreateAffiliation(ctx context.Context, a *model.Affiliation) error
	ListAffiliations(ctx context.Context, orgID string) ([]*model.Affiliation, error)

	// ActiveResourceAssignments returns one row per (active resource,
	// affiliation) pair across all organizations, with consumed hours
	// derived from currently assigned task estimates.
	ActiveResourceAssignments(ctx context.Context) ([]model.ResourceAssignment, error)

	// Initiatives
	CreateInitiative(ctx context.Context, in *model.Initiative) error
	ListInitiatives(ctx context.Context, orgID string) ([]*model.Initiative, error)

	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
