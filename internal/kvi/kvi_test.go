package kvi

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/me/teamplan/internal/store"
	"github.com/me/teamplan/pkg/model"
)

func testService(t *testing.T) (*Service, *store.SQLiteStore) {
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

func addProject(t *testing.T, st store.Store, id string, health model.ProjectHealth, originalEnd, end *model.Date) {
	t.Helper()
	err := st.CreateProject(context.Background(), &model.Project{
		ID:              id,
		OrgID:           "org_1",
		Name:            "Project " + id,
		Status:          model.ProjectStatusInProgress,
		Health:          health,
		Type:            "Website",
		OriginalEndDate: originalEnd,
		EndDate:         end,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create project %s: %v", id, err)
	}
}

func TestPortfolioHealth(t *testing.T) {
	svc, st := testService(t)
	addProject(t, st, "proj_1", model.HealthOnTrack, nil, nil)
	addProject(t, st, "proj_2", model.HealthOnTrack, nil, nil)
	addProject(t, st, "proj_3", model.HealthAtRisk, nil, nil)
	addProject(t, st, "proj_4", model.HealthOffTrack, nil, nil)

	report, err := svc.PortfolioHealth(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	// (100 + 100 + 50 + 0) / 4 = 62.5, rounded to 63.
	if report.HealthScore != 63 {
		t.Errorf("HealthScore = %d, want 63", report.HealthScore)
	}
	if report.TotalProjects != 4 {
		t.Errorf("TotalProjects = %d, want 4", report.TotalProjects)
	}
	if report.StatusBreakdown["On Track"] != 2 {
		t.Errorf("On Track = %d, want 2", report.StatusBreakdown["On Track"])
	}
}

func TestPortfolioHealth_EmptyPortfolio(t *testing.T) {
	svc, _ := testService(t)

	report, err := svc.PortfolioHealth(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if report.HealthScore != 0 || report.TotalProjects != 0 {
		t.Errorf("report = %+v, want zero score and count", report)
	}
}

func TestPortfolioHealth_MissingHealthCountsAsUnknown(t *testing.T) {
	svc, st := testService(t)
	addProject(t, st, "proj_1", "", nil, nil)
	addProject(t, st, "proj_2", model.HealthOnTrack, nil, nil)

	report, err := svc.PortfolioHealth(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	// (50 + 100) / 2 = 75.
	if report.HealthScore != 75 {
		t.Errorf("HealthScore = %d, want 75", report.HealthScore)
	}
	if report.StatusBreakdown["Unknown"] != 1 {
		t.Errorf("Unknown = %d, want 1", report.StatusBreakdown["Unknown"])
	}
}

func TestInitiativeValue(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	err := st.CreateInitiative(ctx, &model.Initiative{
		ID:     "init_1",
		OrgID:  "org_1",
		Name:   "Self-service onboarding",
		Status: "Active",
		Metrics: map[string]float64{
			"Efficiency Gains - FTE Hour Reduction (Hrs)": 120,
			"Revenue - Pipeline Increase (£)":             5000,
			"Bespoke Metric":                              7,
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create initiative: %v", err)
	}

	report, err := svc.InitiativeValue(ctx, "org_1")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if len(report.Initiatives) != 1 {
		t.Fatalf("Initiatives = %d, want 1", len(report.Initiatives))
	}
	in := report.Initiatives[0]
	// Every carried metric counts toward the initiative's own total.
	if in.TotalValue != 5127 {
		t.Errorf("TotalValue = %v, want 5127", in.TotalValue)
	}
	// Category totals only count catalogued metrics.
	if report.TotalsByCategory["efficiency"] != 120 {
		t.Errorf("efficiency = %v, want 120", report.TotalsByCategory["efficiency"])
	}
	if report.TotalsByCategory["revenue"] != 5000 {
		t.Errorf("revenue = %v, want 5000", report.TotalsByCategory["revenue"])
	}
	if report.TotalsByCategory["brand"] != 0 {
		t.Errorf("brand = %v, want 0", report.TotalsByCategory["brand"])
	}
	if report.GrandTotal != 5120 {
		t.Errorf("GrandTotal = %v, want 5120", report.GrandTotal)
	}
}

func TestInitiativeValue_Empty(t *testing.T) {
	svc, _ := testService(t)

	report, err := svc.InitiativeValue(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if len(report.Initiatives) != 0 || report.GrandTotal != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
	for _, category := range []string{"efficiency", "revenue", "brand"} {
		if _, ok := report.TotalsByCategory[category]; !ok {
			t.Errorf("TotalsByCategory missing %q", category)
		}
	}
}

func TestScheduleVariance(t *testing.T) {
	svc, st := testService(t)
	onTime := model.NewDate(2026, time.June, 30)
	late := model.NewDate(2026, time.July, 15)
	early := model.NewDate(2026, time.June, 20)
	addProject(t, st, "proj_late", model.HealthAtRisk, &onTime, &late)
	addProject(t, st, "proj_early", model.HealthOnTrack, &onTime, &early)
	addProject(t, st, "proj_undated", model.HealthOnTrack, nil, nil)

	report, err := svc.ScheduleVariance(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("variance: %v", err)
	}
	if report.TotalProjects != 3 {
		t.Errorf("TotalProjects = %d, want 3", report.TotalProjects)
	}
	if report.ProjectsAtRisk != 1 {
		t.Fatalf("ProjectsAtRisk = %d, want 1", report.ProjectsAtRisk)
	}
	atRisk := report.AtRiskDetails[0]
	if atRisk.ID != "proj_late" || atRisk.DaysLate != 15 {
		t.Errorf("at risk = %+v, want proj_late 15 days", atRisk)
	}
	// (15 - 10 + 0) / 3 = 1.666..., rounded to 1.7.
	if report.AverageVarianceDays != 1.7 {
		t.Errorf("AverageVarianceDays = %v, want 1.7", report.AverageVarianceDays)
	}
}

func TestPortfolio_CombinesRollups(t *testing.T) {
	svc, st := testService(t)
	addProject(t, st, "proj_1", model.HealthOnTrack, nil, nil)

	report, err := svc.Portfolio(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if report.PortfolioHealth == nil || report.InitiativeValue == nil || report.ScheduleVariance == nil {
		t.Fatalf("report = %+v, want all sections populated", report)
	}
	if report.PortfolioHealth.HealthScore != 100 {
		t.Errorf("HealthScore = %d, want 100", report.PortfolioHealth.HealthScore)
	}
}
