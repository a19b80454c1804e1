// Package cascade resolves scheduling dependencies between tasks. When a
// task's end date moves, successors whose start dates it now overlaps are
// pushed forward recursively, keeping each successor's duration intact.
package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/teamplan/internal/store"
	"github.com/me/teamplan/pkg/model"
)

// Resolver applies task updates and walks the successor relation.
type Resolver struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a Resolver.
func New(st store.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  st,
		logger: logger.With("component", "cascade"),
	}
}

// Result carries the diff report plus every task mutated in memory, the
// updated task first. The caller commits the batch atomically.
type Result struct {
	Report *model.CascadeReport
	Dirty  []*model.Task
}

// UpdateWithCascade applies upd to the task and, when the update moves the
// end date and cascading is enabled, pushes overlapped successors forward.
// A successor shifts iff both its start date and the parent's end date are
// set and the parent now ends on or after the successor starts. Shifted
// successors keep their duration and are revisited recursively; successors
// that do not shift end their branch.
//
// Returns model.ErrCycleDetected if the successor walk revisits a task.
func (r *Resolver) UpdateWithCascade(ctx context.Context, taskID string, upd model.TaskUpdate, cascadeDates bool) (*Result, error) {
	task, err := r.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, model.NewNotFoundError("task", taskID)
	}

	upd.Apply(task)
	result := &Result{Dirty: []*model.Task{task}}
	report := &model.CascadeReport{CascadedTasks: []model.CascadeEntry{}}

	if cascadeDates && upd.TouchesEndDate() {
		visited := map[string]bool{task.ID: true}
		if err := r.push(ctx, task, visited, result, report); err != nil {
			return nil, err
		}
	}

	report.UpdatedTask = model.TaskDates{
		ID:        task.ID,
		Title:     task.Title,
		StartDate: task.StartDate,
		EndDate:   task.EndDate,
	}
	report.TotalAffected = 1 + len(report.CascadedTasks)
	result.Report = report

	r.logger.Info("task updated",
		"task_id", task.ID,
		"cascade", cascadeDates && upd.TouchesEndDate(),
		"affected", report.TotalAffected,
	)
	return result, nil
}

// push shifts the parent's overlapped successors and recurses into each
// shifted one, recording entries in pre-order. With a single predecessor
// per task the successor relation is a forest, so revisiting a task means
// the chain loops back on itself.
func (r *Resolver) push(ctx context.Context, parent *model.Task, visited map[string]bool, result *Result, report *model.CascadeReport) error {
	successors, err := r.store.Successors(ctx, parent.ID)
	if err != nil {
		return fmt.Errorf("load successors of %s: %w", parent.ID, err)
	}
	for _, succ := range successors {
		if visited[succ.ID] {
			return model.ErrCycleDetected
		}
		if parent.EndDate == nil || succ.StartDate == nil || !parent.EndDate.OnOrAfter(*succ.StartDate) {
			continue
		}
		visited[succ.ID] = true

		duration := succ.Duration()
		newStart := parent.EndDate.AddDays(1)
		newEnd := newStart.AddDays(duration)
		oldStart, oldEnd := succ.StartDate, succ.EndDate
		succ.StartDate = &newStart
		succ.EndDate = &newEnd

		report.CascadedTasks = append(report.CascadedTasks, model.CascadeEntry{
			ID:       succ.ID,
			Title:    succ.Title,
			Change:   "cascaded",
			OldStart: oldStart,
			OldEnd:   oldEnd,
			NewStart: succ.StartDate,
			NewEnd:   succ.EndDate,
		})
		result.Dirty = append(result.Dirty, succ)

		if err := r.push(ctx, succ, visited, result, report); err != nil {
			return err
		}
	}
	return nil
}

// Chain returns the full dependency picture for a task: the predecessor
// walk up to the root and the successor tree below it.
func (r *Resolver) Chain(ctx context.Context, taskID string) (*model.DependencyChain, error) {
	task, err := r.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, model.NewNotFoundError("task", taskID)
	}

	predecessors, err := r.predecessors(ctx, task)
	if err != nil {
		return nil, err
	}
	successors, err := r.successorTree(ctx, task.ID, map[string]bool{task.ID: true})
	if err != nil {
		return nil, err
	}
	return &model.DependencyChain{
		Task:         model.TaskRef{ID: task.ID, Title: task.Title},
		Predecessors: predecessors,
		Successors:   successors,
	}, nil
}

// predecessors walks the predecessor links toward the root in order. The
// walk stops at a missing predecessor and guards against loops.
func (r *Resolver) predecessors(ctx context.Context, task *model.Task) ([]model.TaskRef, error) {
	chain := []model.TaskRef{}
	visited := map[string]bool{task.ID: true}
	current := task
	for current.PredecessorID != "" {
		if visited[current.PredecessorID] {
			return nil, model.ErrCycleDetected
		}
		pred, err := r.store.GetTask(ctx, current.PredecessorID)
		if err != nil {
			return nil, fmt.Errorf("load predecessor %s: %w", current.PredecessorID, err)
		}
		if pred == nil {
			break
		}
		visited[pred.ID] = true
		chain = append(chain, model.TaskRef{ID: pred.ID, Title: pred.Title, EndDate: pred.EndDate})
		current = pred
	}
	return chain, nil
}

func (r *Resolver) successorTree(ctx context.Context, taskID string, visited map[string]bool) ([]model.SuccessorRef, error) {
	successors, err := r.store.Successors(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load successors of %s: %w", taskID, err)
	}
	refs := []model.SuccessorRef{}
	for _, succ := range successors {
		if visited[succ.ID] {
			return nil, model.ErrCycleDetected
		}
		visited[succ.ID] = true
		nested, err := r.successorTree(ctx, succ.ID, visited)
		if err != nil {
			return nil, err
		}
		refs = append(refs, model.SuccessorRef{
			ID:         succ.ID,
			Title:      succ.Title,
			StartDate:  succ.StartDate,
			Successors: nested,
		})
	}
	return refs, nil
}
