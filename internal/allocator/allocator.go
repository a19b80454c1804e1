// Package allocator implements tiered auto-assignment of unassigned tasks
// to resources across portfolio boundaries.
//
// Three tiers, in priority order:
//  1. Primary resources (affiliated with the requesting organization)
//  2. Shared resources (affiliated elsewhere, with contractually free capacity)
//  3. No assignment: the task is reported as a gap, with cross-portfolio
//     reallocation candidates when they exist.
//
// Selection is first-match in scan order. There is no ranking by best fit,
// soonest availability, or cost; runs over identical inputs are
// deterministic and idempotent.
package allocator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/teamplan/internal/store"
	"github.com/me/teamplan/pkg/model"
)

// Options tunes an allocation run.
type Options struct {
	// ApplyAllocationPercent caps a shared resource's usable capacity at
	// its contractually unallocated share, capacity*(100-allocation)/100,
	// before subtracting consumed hours. Off by default: availability is
	// capacity minus consumed regardless of the allocation split.
	ApplyAllocationPercent bool
}

// Allocator runs auto-assignment over a fresh snapshot of tasks and
// resources loaded per invocation. It owns no state between runs.
type Allocator struct {
	store  store.Store
	logger *slog.Logger
	opts   Options
}

// New creates an Allocator.
func New(st store.Store, logger *slog.Logger, opts Options) *Allocator {
	return &Allocator{
		store:  st,
		logger: logger.With("component", "allocator"),
		opts:   opts,
	}
}

// Result carries the report plus the tasks mutated in memory during the
// run. The caller commits the tasks and broadcasts the report; the
// allocator itself persists nothing.
type Result struct {
	Report   *model.AllocationReport
	Assigned []*model.Task
}

// poolEntry is one (resource, affiliation) row prepared for scanning.
// Entries for the same resource share an availability counter so that a
// resource affiliated with several portfolios cannot be double-booked
// within one run.
type poolEntry struct {
	resourceID string
	name       string
	team       string
	orgID      string
	capacity   int
	allocation int
	primary    bool
	available  *int
}

// Allocate assigns each unassigned task of the organization to a resource
// in tier order, or records why it could not be assigned. Unmatched tasks
// are reported as gaps, never as errors.
func (a *Allocator) Allocate(ctx context.Context, orgID string) (*Result, error) {
	tasks, err := a.store.UnassignedTasks(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load unassigned tasks: %w", err)
	}
	assignments, err := a.store.ActiveResourceAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load resource assignments: %w", err)
	}
	projects, err := a.projectIndex(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	pool := a.buildPool(assignments, orgID)
	var primary, shared []*poolEntry
	for _, e := range pool {
		switch {
		case e.primary:
			primary = append(primary, e)
		case e.allocation < 100:
			shared = append(shared, e)
		}
	}

	report := &model.AllocationReport{
		Gaps:                      []model.GapEntry{},
		SharedAssignments:         []model.SharedAssignment{},
		CrossPortfolioSuggestions: []model.Suggestion{},
	}
	result := &Result{Report: report}

	for _, task := range tasks {
		project := projects[task.ProjectID]
		if project == nil {
			continue
		}
		team := project.Type
		estimate := task.EstimateHours()

		// Tier 1: primary resources.
		if e := firstFit(primary, team, estimate); e != nil {
			assign(task, e, estimate)
			report.AssignedCount++
			result.Assigned = append(result.Assigned, task)
			continue
		}

		// Tier 2: shared resources from other portfolios.
		if e := firstFit(shared, team, estimate); e != nil {
			assign(task, e, estimate)
			report.AssignedCount++
			result.Assigned = append(result.Assigned, task)
			report.SharedAssignments = append(report.SharedAssignments, model.SharedAssignment{
				TaskID:             task.ID,
				TaskTitle:          task.Title,
				ProjectName:        project.Name,
				RequiredTeam:       team,
				Estimate:           estimate,
				AssignedTo:         e.name,
				ResourceID:         e.resourceID,
				PrimaryPortfolioID: e.orgID,
				TargetPortfolioID:  orgID,
				CurrentAllocation:  e.allocation,
				SuggestedSplit:     model.SuggestedSplit,
			})
			continue
		}

		// Tier 3: no assignment. Report the gap and any reallocation
		// candidates from other portfolios.
		candidates := crossPortfolioCandidates(pool, team, estimate)
		if len(candidates) > 0 {
			report.CrossPortfolioSuggestions = append(report.CrossPortfolioSuggestions, model.Suggestion{
				TaskID:       task.ID,
				TaskTitle:    task.Title,
				ProjectName:  project.Name,
				RequiredTeam: team,
				Estimate:     estimate,
				Candidates:   candidates,
			})
		}
		report.Gaps = append(report.Gaps, model.GapEntry{
			TaskID:                  task.ID,
			TaskTitle:               task.Title,
			ProjectName:             project.Name,
			RequiredTeam:            team,
			Estimate:                estimate,
			Reason:                  gapReason(primary, team),
			HasCrossPortfolioOption: len(candidates) > 0,
		})
	}

	report.Summary = model.AllocationSummary{
		Assigned:            report.AssignedCount,
		Unassigned:          len(report.Gaps),
		UsedSharedResources: len(report.SharedAssignments),
		CanReallocate:       len(report.CrossPortfolioSuggestions),
	}

	a.logger.Info("allocation run complete",
		"org_id", orgID,
		"tasks", len(tasks),
		"assigned", report.AssignedCount,
		"gaps", len(report.Gaps),
		"shared", len(report.SharedAssignments),
	)
	return result, nil
}

// projectIndex maps project id to project for the organization.
func (a *Allocator) projectIndex(ctx context.Context, orgID string) (map[string]*model.Project, error) {
	projects, err := a.store.ListProjects(ctx, orgID)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*model.Project, len(projects))
	for _, p := range projects {
		idx[p.ID] = p
	}
	return idx, nil
}

// buildPool converts assignment rows into scan-order pool entries with
// per-resource availability counters.
func (a *Allocator) buildPool(assignments []model.ResourceAssignment, orgID string) []*poolEntry {
	avail := make(map[string]*int)
	pool := make([]*poolEntry, 0, len(assignments))
	for _, ra := range assignments {
		r := ra.Resource
		if _, ok := avail[r.ID]; !ok {
			v := r.Capacity - ra.UsedHours
			avail[r.ID] = &v
		}
		e := &poolEntry{
			resourceID: r.ID,
			name:       r.Name,
			team:       r.Team,
			orgID:      ra.Affiliation.OrgID,
			capacity:   r.Capacity,
			allocation: ra.Affiliation.AllocationPercent,
			primary:    ra.Affiliation.OrgID == orgID,
			available:  avail[r.ID],
		}
		if a.opts.ApplyAllocationPercent && !e.primary {
			// Cap at the contractually unallocated share.
			capped := e.capacity*(100-e.allocation)/100 - ra.UsedHours
			if capped < *e.available {
				*e.available = capped
			}
		}
		pool = append(pool, e)
	}
	return pool
}

// firstFit returns the first entry matching the team with enough remaining
// availability, or nil. First match wins; no ranking.
func firstFit(entries []*poolEntry, team string, estimate int) *poolEntry {
	for _, e := range entries {
		if e.team == team && *e.available >= estimate {
			return e
		}
	}
	return nil
}

// assign mutates the in-memory task and decrements the entry's shared
// availability counter so later tasks in the same run see reduced capacity.
func assign(task *model.Task, e *poolEntry, estimate int) {
	task.AssigneeID = e.resourceID
	*e.available -= estimate
}

// crossPortfolioCandidates lists resources from other portfolios with the
// required team, contractually free capacity and enough current
// availability to absorb the task.
func crossPortfolioCandidates(pool []*poolEntry, team string, estimate int) []model.Candidate {
	var candidates []model.Candidate
	for _, e := range pool {
		if e.team == team && !e.primary && e.allocation < 100 && *e.available >= estimate {
			candidates = append(candidates, model.Candidate{
				ID:                e.resourceID,
				Name:              e.name,
				CurrentAllocation: e.allocation,
				AvailableHours:    e.capacity * (100 - e.allocation) / 100,
				PortfolioID:       e.orgID,
			})
		}
	}
	return candidates
}

// gapReason distinguishes a team that exists but is full from a team the
// organization simply does not have.
func gapReason(primary []*poolEntry, team string) string {
	for _, e := range primary {
		if e.team == team {
			return model.GapReasonAtCapacity
		}
	}
	return model.GapReasonNoTeam
}
