package cascade

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/me/teamplan/internal/store"
	"github.com/me/teamplan/pkg/model"
)

func testResolver(t *testing.T) (*Resolver, *store.SQLiteStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, logger), st
}

// day returns the nth day of January 2026 for compact schedule fixtures.
func day(n int) model.Date {
	return model.NewDate(2026, time.January, n)
}

func scheduledTask(t *testing.T, st store.Store, id, predecessorID string, startDay, endDay int) {
	t.Helper()
	start := day(startDay)
	end := day(endDay)
	err := st.CreateTask(context.Background(), &model.Task{
		ID:            id,
		OrgID:         "org_1",
		ProjectID:     "proj_1",
		Title:         "Task " + id,
		Status:        model.TaskStatusPlanning,
		StartDate:     &start,
		EndDate:       &end,
		PredecessorID: predecessorID,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create task %s: %v", id, err)
	}
}

func endDateUpdate(endDay int) model.TaskUpdate {
	end := day(endDay)
	return model.TaskUpdate{EndDate: &end}
}

func TestUpdateWithCascade_ShiftsOverlappedSuccessor(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 3, 7)

	res, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	report := res.Report
	if report.TotalAffected != 2 {
		t.Fatalf("TotalAffected = %d, want 2", report.TotalAffected)
	}
	if len(report.CascadedTasks) != 1 {
		t.Fatalf("CascadedTasks = %d, want 1", len(report.CascadedTasks))
	}
	entry := report.CascadedTasks[0]
	if entry.ID != "task_b" || entry.Change != "cascaded" {
		t.Errorf("entry = %+v, want cascaded task_b", entry)
	}
	if entry.NewStart.String() != "2026-01-11" {
		t.Errorf("NewStart = %s, want 2026-01-11", entry.NewStart)
	}
	if entry.NewEnd.String() != "2026-01-15" {
		t.Errorf("NewEnd = %s, want 2026-01-15", entry.NewEnd)
	}
	if entry.OldStart.String() != "2026-01-03" || entry.OldEnd.String() != "2026-01-07" {
		t.Errorf("old dates = %s/%s, want 2026-01-03/2026-01-07", entry.OldStart, entry.OldEnd)
	}
	if len(res.Dirty) != 2 || res.Dirty[0].ID != "task_a" || res.Dirty[1].ID != "task_b" {
		t.Errorf("Dirty = %v, want [task_a task_b]", res.Dirty)
	}
}

func TestUpdateWithCascade_DurationPreserved(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 3, 7) // 4-day duration

	res, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	shifted := res.Dirty[1]
	if got := shifted.Duration(); got != 4 {
		t.Errorf("Duration = %d, want 4", got)
	}
}

func TestUpdateWithCascade_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		succStart int
		shifted   bool
	}{
		{"parent ends on successor start", 10, true},
		{"successor starts the day after", 11, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, st := testResolver(t)
			scheduledTask(t, st, "task_a", "", 1, 5)
			scheduledTask(t, st, "task_b", "task_a", tt.succStart, tt.succStart+4)

			res, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true)
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			got := len(res.Report.CascadedTasks) == 1
			if got != tt.shifted {
				t.Errorf("shifted = %v, want %v", got, tt.shifted)
			}
		})
	}
}

func TestUpdateWithCascade_RecursiveChain(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 3, 7)
	scheduledTask(t, st, "task_c", "task_b", 8, 12)

	res, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	report := res.Report
	// B moves to 11-15, which overlaps C's start on day 8, so C moves to 16-20.
	if report.TotalAffected != 3 {
		t.Fatalf("TotalAffected = %d, want 3", report.TotalAffected)
	}
	c := report.CascadedTasks[1]
	if c.ID != "task_c" {
		t.Fatalf("second entry = %s, want task_c", c.ID)
	}
	if c.NewStart.String() != "2026-01-16" || c.NewEnd.String() != "2026-01-20" {
		t.Errorf("task_c dates = %s/%s, want 2026-01-16/2026-01-20", c.NewStart, c.NewEnd)
	}
}

func TestUpdateWithCascade_UntouchedBranchNotVisited(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 20, 25)
	scheduledTask(t, st, "task_c", "task_b", 21, 26)

	res, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(res.Report.CascadedTasks) != 0 {
		t.Fatalf("CascadedTasks = %v, want empty", res.Report.CascadedTasks)
	}
	if res.Report.TotalAffected != 1 {
		t.Errorf("TotalAffected = %d, want 1", res.Report.TotalAffected)
	}
}

func TestUpdateWithCascade_DisabledFlag(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 3, 7)

	res, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Report.TotalAffected != 1 {
		t.Errorf("TotalAffected = %d, want 1", res.Report.TotalAffected)
	}
	if len(res.Dirty) != 1 {
		t.Errorf("Dirty = %d tasks, want 1", len(res.Dirty))
	}
}

func TestUpdateWithCascade_NonDateUpdate(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 3, 7)

	title := "Renamed"
	res, err := r.UpdateWithCascade(context.Background(), "task_a", model.TaskUpdate{Title: &title}, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Report.TotalAffected != 1 {
		t.Errorf("TotalAffected = %d, want 1", res.Report.TotalAffected)
	}
	if res.Report.UpdatedTask.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", res.Report.UpdatedTask.Title)
	}
}

func TestUpdateWithCascade_SuccessorWithoutStartDate(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	if err := st.CreateTask(context.Background(), &model.Task{
		ID:            "task_b",
		OrgID:         "org_1",
		ProjectID:     "proj_1",
		Title:         "Unscheduled successor",
		Status:        model.TaskStatusPlanning,
		PredecessorID: "task_a",
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	res, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(res.Report.CascadedTasks) != 0 {
		t.Errorf("CascadedTasks = %v, want empty", res.Report.CascadedTasks)
	}
}

func TestUpdateWithCascade_CycleDetected(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "task_b", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 3, 7)

	_, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true)
	if !errors.Is(err, model.ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
}

func TestUpdateWithCascade_TaskNotFound(t *testing.T) {
	r, _ := testResolver(t)

	_, err := r.UpdateWithCascade(context.Background(), "task_missing", endDateUpdate(10), true)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestUpdateWithCascade_DoesNotPersist(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 3, 7)

	if _, err := r.UpdateWithCascade(context.Background(), "task_a", endDateUpdate(10), true); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, err := st.GetTask(context.Background(), "task_b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.StartDate.String() != "2026-01-03" {
		t.Errorf("stored StartDate = %s, want unchanged 2026-01-03", stored.StartDate)
	}
}

func TestChain(t *testing.T) {
	r, st := testResolver(t)
	scheduledTask(t, st, "task_a", "", 1, 5)
	scheduledTask(t, st, "task_b", "task_a", 6, 10)
	scheduledTask(t, st, "task_c", "task_b", 11, 15)
	scheduledTask(t, st, "task_d", "task_b", 11, 12)

	chain, err := r.Chain(context.Background(), "task_b")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if chain.Task.ID != "task_b" {
		t.Fatalf("Task.ID = %s, want task_b", chain.Task.ID)
	}
	if len(chain.Predecessors) != 1 || chain.Predecessors[0].ID != "task_a" {
		t.Errorf("Predecessors = %v, want [task_a]", chain.Predecessors)
	}
	if len(chain.Successors) != 2 {
		t.Fatalf("Successors = %d, want 2", len(chain.Successors))
	}
	ids := map[string]bool{}
	for _, s := range chain.Successors {
		ids[s.ID] = true
	}
	if !ids["task_c"] || !ids["task_d"] {
		t.Errorf("Successors = %v, want task_c and task_d", chain.Successors)
	}
}

func TestChain_NotFound(t *testing.T) {
	r, _ := testResolver(t)

	_, err := r.Chain(context.Background(), "task_missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
