package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/teamplan/pkg/model"
)

// handleListProjects lists the organization's projects.
// GET /api/v1/projects
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	projects, err := s.store.ListProjects(r.Context(), orgID(r))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	items, pg := page(projects, parseListOptions(r))
	respondList(w, reqID, items, pg)
}

// handleCreateProject creates a project.
// POST /api/v1/projects
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Name      string      `json:"name"`
		Type      string      `json:"type"`
		Scale     string      `json:"scale"`
		Status    string      `json:"status"`
		Health    string      `json:"health"`
		StartDate *model.Date `json:"start_date"`
		EndDate   *model.Date `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}
	if req.Name == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("missing required field",
				model.FieldError{Field: "name", Message: "name is required"}))
		return
	}

	status := model.ProjectStatus(req.Status)
	if status == "" {
		status = model.ProjectStatusPlanning
	}
	project := &model.Project{
		ID:        "proj_" + uuid.New().String(),
		OrgID:     orgID(r),
		Name:      req.Name,
		Status:    status,
		Health:    model.ProjectHealth(req.Health),
		Type:      req.Type,
		Scale:     req.Scale,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedAt: time.Now().UTC(),
	}
	// The committed end date starts out as the planned one; later end-date
	// edits leave it behind as the variance baseline.
	if req.EndDate != nil {
		d := *req.EndDate
		project.OriginalEndDate = &d
	}

	if err := s.store.CreateProject(r.Context(), project); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.logger.Info("project created", "id", project.ID, "org_id", project.OrgID)
	s.hub.Broadcast(project.OrgID, model.Event{Type: model.EventProjectCreated, Payload: project})
	respondCreated(w, reqID, project)
}

// loadProject fetches a project and enforces the org boundary. It writes
// the error response and returns nil when the project is unavailable.
func (s *Server) loadProject(w http.ResponseWriter, r *http.Request, reqID string) *model.Project {
	id := chi.URLParam(r, "id")
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return nil
	}
	if project == nil || project.OrgID != orgID(r) {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("project", id))
		return nil
	}
	return project
}

// handleGetProject returns one project.
// GET /api/v1/projects/{id}
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	project := s.loadProject(w, r, reqID)
	if project == nil {
		return
	}
	respondOK(w, reqID, project)
}

// handleUpdateProject applies a partial update.
// PATCH /api/v1/projects/{id}
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	project := s.loadProject(w, r, reqID)
	if project == nil {
		return
	}

	var upd model.ProjectUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}

	// Preserve the variance baseline the first time the end date moves.
	if upd.EndDate != nil && project.OriginalEndDate == nil && project.EndDate != nil {
		d := *project.EndDate
		project.OriginalEndDate = &d
	}
	upd.Apply(project)

	if err := s.store.UpdateProject(r.Context(), project); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.hub.Broadcast(project.OrgID, model.Event{Type: model.EventProjectUpdated, Payload: project})
	respondOK(w, reqID, project)
}

// handleDeleteProject removes a project and its tasks.
// DELETE /api/v1/projects/{id}
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	project := s.loadProject(w, r, reqID)
	if project == nil {
		return
	}

	if err := s.store.DeleteProject(r.Context(), project.ID); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.logger.Info("project deleted", "id", project.ID, "org_id", project.OrgID)
	s.hub.Broadcast(project.OrgID, model.Event{
		Type:    model.EventProjectDeleted,
		Payload: map[string]string{"id": project.ID},
	})
	respondOK(w, reqID, map[string]any{"deleted": true})
}
