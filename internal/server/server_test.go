package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/teamplan/internal/config"
	"github.com/me/teamplan/internal/realtime"
	"github.com/me/teamplan/internal/store"
	"github.com/me/teamplan/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testServer runs in development mode: org context comes from the
// X-Org-ID header instead of a signed token.
func testServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	return testServerWithConfig(t, config.Default())
}

func testServerWithConfig(t *testing.T, cfg config.Config) (*Server, *store.SQLiteStore) {
	t.Helper()
	logger := testLogger()
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(cfg, st, realtime.NewHub(logger), logger), st
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func doReq(t *testing.T, srv *Server, method, path, org string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if org != "" {
		req.Header.Set("X-Org-ID", org)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid JSON: %v, body=%s", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v, data=%s", err, env.Data)
	}
}

func seedProject(t *testing.T, st store.Store, orgID, id, team string) {
	t.Helper()
	err := st.CreateProject(context.Background(), &model.Project{
		ID:        id,
		OrgID:     orgID,
		Name:      "Project " + id,
		Status:    model.ProjectStatusInProgress,
		Health:    model.HealthOnTrack,
		Type:      team,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func seedTask(t *testing.T, st store.Store, orgID, projectID, id, predecessorID string, estimate int, startDay, endDay int) {
	t.Helper()
	task := &model.Task{
		ID:            id,
		OrgID:         orgID,
		ProjectID:     projectID,
		Title:         "Task " + id,
		Status:        model.TaskStatusPlanning,
		Estimate:      &estimate,
		PredecessorID: predecessorID,
		CreatedAt:     time.Now().UTC(),
	}
	if startDay > 0 {
		start := model.NewDate(2026, time.January, startDay)
		end := model.NewDate(2026, time.January, endDay)
		task.StartDate = &start
		task.EndDate = &end
	}
	if err := st.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	w, env := doReq(t, srv, "GET", "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.Status != "ok" {
		t.Errorf("envelope status = %q, want ok", env.Status)
	}
	if env.RequestID == "" {
		t.Error("request_id is empty")
	}
	var data healthResponse
	decodeData(t, env, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := testServer(t)
	w, env := doReq(t, srv, "GET", "/api/v1/projects/", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.ErrUnauthorized {
		t.Errorf("error = %+v, want UNAUTHORIZED", env.Error)
	}
}

func TestProjectCRUD(t *testing.T) {
	srv, _ := testServer(t)

	w, env := doReq(t, srv, "POST", "/api/v1/projects/", "org_a", map[string]any{
		"name": "Relaunch",
		"type": "Website",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", w.Code, w.Body.String())
	}
	var created model.Project
	decodeData(t, env, &created)
	if created.OrgID != "org_a" || created.Status != model.ProjectStatusPlanning {
		t.Errorf("created = %+v, want org_a Planning", created)
	}

	w, env = doReq(t, srv, "GET", "/api/v1/projects/"+created.ID, "org_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	health := model.HealthAtRisk
	w, env = doReq(t, srv, "PATCH", "/api/v1/projects/"+created.ID, "org_a", model.ProjectUpdate{Health: &health})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body=%s", w.Code, w.Body.String())
	}
	var updated model.Project
	decodeData(t, env, &updated)
	if updated.Health != model.HealthAtRisk {
		t.Errorf("health = %q, want At Risk", updated.Health)
	}

	w, env = doReq(t, srv, "GET", "/api/v1/projects/", "org_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if env.Pagination == nil || env.Pagination.Total != 1 {
		t.Errorf("pagination = %+v, want total 1", env.Pagination)
	}

	w, _ = doReq(t, srv, "DELETE", "/api/v1/projects/"+created.ID, "org_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w, _ = doReq(t, srv, "GET", "/api/v1/projects/"+created.ID, "org_a", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestProject_OrgIsolation(t *testing.T) {
	srv, st := testServer(t)
	seedProject(t, st, "org_b", "proj_1", "Website")

	w, _ := doReq(t, srv, "GET", "/api/v1/projects/proj_1", "org_a", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-org get status = %d, want 404", w.Code)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	srv, st := testServer(t)
	seedProject(t, st, "org_a", "proj_1", "Website")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"project_id": "proj_1"}},
		{"negative estimate", map[string]any{"project_id": "proj_1", "title": "x", "estimate": -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doReq(t, srv, "POST", "/api/v1/tasks/", "org_a", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if env.Error == nil || env.Error.Code != model.ErrValidation {
				t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
			}
		})
	}
}

func TestUpdateTask_Cascade(t *testing.T) {
	srv, st := testServer(t)
	seedProject(t, st, "org_a", "proj_1", "Website")
	seedTask(t, st, "org_a", "proj_1", "task_a", "", 40, 1, 5)
	seedTask(t, st, "org_a", "proj_1", "task_b", "task_a", 40, 3, 7)

	end := model.NewDate(2026, time.January, 10)
	w, env := doReq(t, srv, "PATCH", "/api/v1/tasks/task_a", "org_a", model.TaskUpdate{EndDate: &end})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	var report model.CascadeReport
	decodeData(t, env, &report)
	if report.TotalAffected != 2 {
		t.Fatalf("total_affected = %d, want 2", report.TotalAffected)
	}

	// The cascade is persisted.
	stored, err := st.GetTask(context.Background(), "task_b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.StartDate.String() != "2026-01-11" || stored.EndDate.String() != "2026-01-15" {
		t.Errorf("task_b dates = %s/%s, want 2026-01-11/2026-01-15", stored.StartDate, stored.EndDate)
	}
}

func TestUpdateTask_CascadeDisabled(t *testing.T) {
	srv, st := testServer(t)
	seedProject(t, st, "org_a", "proj_1", "Website")
	seedTask(t, st, "org_a", "proj_1", "task_a", "", 40, 1, 5)
	seedTask(t, st, "org_a", "proj_1", "task_b", "task_a", 40, 3, 7)

	end := model.NewDate(2026, time.January, 10)
	w, env := doReq(t, srv, "PATCH", "/api/v1/tasks/task_a?cascade=false", "org_a", model.TaskUpdate{EndDate: &end})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var report model.CascadeReport
	decodeData(t, env, &report)
	if report.TotalAffected != 1 {
		t.Errorf("total_affected = %d, want 1", report.TotalAffected)
	}
}

func TestUpdateTask_CycleConflict(t *testing.T) {
	srv, st := testServer(t)
	seedProject(t, st, "org_a", "proj_1", "Website")
	seedTask(t, st, "org_a", "proj_1", "task_a", "task_b", 40, 1, 5)
	seedTask(t, st, "org_a", "proj_1", "task_b", "task_a", 40, 3, 7)

	end := model.NewDate(2026, time.January, 10)
	w, env := doReq(t, srv, "PATCH", "/api/v1/tasks/task_a", "org_a", model.TaskUpdate{EndDate: &end})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body=%s", w.Code, w.Body.String())
	}
	if env.Error == nil || env.Error.Code != model.ErrCycle {
		t.Errorf("error = %+v, want CYCLE_DETECTED", env.Error)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	end := model.NewDate(2026, time.January, 10)
	w, env := doReq(t, srv, "PATCH", "/api/v1/tasks/task_missing", "org_a", model.TaskUpdate{EndDate: &end})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}
}

func TestTaskDependencies(t *testing.T) {
	srv, st := testServer(t)
	seedProject(t, st, "org_a", "proj_1", "Website")
	seedTask(t, st, "org_a", "proj_1", "task_a", "", 40, 1, 5)
	seedTask(t, st, "org_a", "proj_1", "task_b", "task_a", 40, 6, 10)

	w, env := doReq(t, srv, "GET", "/api/v1/tasks/task_b/dependencies", "org_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var chain model.DependencyChain
	decodeData(t, env, &chain)
	if len(chain.Predecessors) != 1 || chain.Predecessors[0].ID != "task_a" {
		t.Errorf("predecessors = %+v, want [task_a]", chain.Predecessors)
	}
}

func TestAutoAssign(t *testing.T) {
	srv, st := testServer(t)
	ctx := context.Background()
	seedProject(t, st, "org_a", "proj_1", "Website")
	seedTask(t, st, "org_a", "proj_1", "task_1", "", 40, 0, 0)
	if err := st.CreateResource(ctx, &model.Resource{
		ID: "res_1", Name: "Dana", Team: "Website", Capacity: 160,
		Active: true, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed resource: %v", err)
	}
	if err := st.CreateAffiliation(ctx, &model.Affiliation{
		ID: "aff_1", ResourceID: "res_1", OrgID: "org_a",
		Primary: true, AllocationPercent: 100, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed affiliation: %v", err)
	}

	w, env := doReq(t, srv, "POST", "/api/v1/tasks/auto-assign", "org_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	var report model.AllocationReport
	decodeData(t, env, &report)
	if report.AssignedCount != 1 {
		t.Fatalf("assigned_count = %d, want 1", report.AssignedCount)
	}

	stored, err := st.GetTask(ctx, "task_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.AssigneeID != "res_1" {
		t.Errorf("assignee = %q, want res_1", stored.AssigneeID)
	}
}

func TestAvailableResources(t *testing.T) {
	srv, st := testServer(t)
	ctx := context.Background()
	for _, r := range []struct {
		id      string
		primary bool
	}{{"res_1", true}, {"res_2", false}} {
		if err := st.CreateResource(ctx, &model.Resource{
			ID: r.id, Name: "Resource " + r.id, Team: "Website", Capacity: 160,
			Active: true, CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed resource: %v", err)
		}
		if err := st.CreateAffiliation(ctx, &model.Affiliation{
			ID: "aff_" + r.id, ResourceID: r.id, OrgID: "org_a",
			Primary: r.primary, AllocationPercent: 50, CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed affiliation: %v", err)
		}
	}

	w, env := doReq(t, srv, "GET", "/api/v1/resources/available", "org_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Primary []tieredResource `json:"primary"`
		Shared  []tieredResource `json:"shared"`
	}
	decodeData(t, env, &data)
	if len(data.Primary) != 1 || data.Primary[0].ID != "res_1" {
		t.Errorf("primary = %+v, want [res_1]", data.Primary)
	}
	if len(data.Shared) != 1 || data.Shared[0].ID != "res_2" {
		t.Errorf("shared = %+v, want [res_2]", data.Shared)
	}
}

func TestPortfolioKVI(t *testing.T) {
	srv, st := testServer(t)
	seedProject(t, st, "org_a", "proj_1", "Website")

	w, env := doReq(t, srv, "GET", "/api/v1/kvi/portfolio", "org_a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		PortfolioHealth struct {
			HealthScore int `json:"health_score"`
		} `json:"portfolio_health"`
	}
	decodeData(t, env, &data)
	if data.PortfolioHealth.HealthScore != 100 {
		t.Errorf("health_score = %d, want 100", data.PortfolioHealth.HealthScore)
	}
}

func TestLoginAndTokenAuth(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Secret = "test-secret"
	srv, st := testServerWithConfig(t, cfg)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := st.CreateUser(context.Background(), &model.User{
		ID: "user_1", Email: "dana@example.com", Name: "Dana",
		PasswordHash: string(hash), OrgID: "org_a", Role: model.RoleStandard,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	// Wrong password is rejected.
	w, _ := doReq(t, srv, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "dana@example.com", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", w.Code)
	}

	w, env := doReq(t, srv, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "dana@example.com", "password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body=%s", w.Code, w.Body.String())
	}
	var login struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	decodeData(t, env, &login)
	if login.Token == "" {
		t.Fatal("empty token")
	}

	// The token carries the org context.
	req := httptest.NewRequest("GET", "/api/v1/projects/", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authed list status = %d, body=%s", rec.Code, rec.Body.String())
	}

	// With a secret configured the org header alone is not enough.
	w, _ = doReq(t, srv, "GET", "/api/v1/projects/", "org_a", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("header-only status = %d, want 401", w.Code)
	}

	// Garbage tokens are rejected.
	req = httptest.NewRequest("GET", "/api/v1/projects/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rec.Code)
	}
}
