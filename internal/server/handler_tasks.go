package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/teamplan/pkg/model"
)

// handleListTasks lists the organization's tasks, optionally filtered by
// project.
// GET /api/v1/tasks?project_id=
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	tasks, err := s.store.ListTasks(r.Context(), orgID(r), r.URL.Query().Get("project_id"))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	items, pg := page(tasks, parseListOptions(r))
	respondList(w, reqID, items, pg)
}

// handleCreateTask creates a task under one of the organization's projects.
// POST /api/v1/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		ProjectID          string      `json:"project_id"`
		Title              string      `json:"title"`
		Status             string      `json:"status"`
		AssigneeID         string      `json:"assignee_id"`
		Estimate           *int        `json:"estimate"`
		StartDate          *model.Date `json:"start_date"`
		EndDate            *model.Date `json:"end_date"`
		PredecessorID      string      `json:"predecessor_id"`
		LinkedInitiativeID string      `json:"linked_initiative_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}
	if req.Title == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("missing required field",
				model.FieldError{Field: "title", Message: "title is required"}))
		return
	}
	if req.Estimate != nil && *req.Estimate < 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("estimate must be non-negative",
				model.FieldError{Field: "estimate", Message: "negative value"}))
		return
	}

	project, err := s.store.GetProject(r.Context(), req.ProjectID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if project == nil || project.OrgID != orgID(r) {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("project", req.ProjectID))
		return
	}

	status := model.TaskStatus(req.Status)
	if status == "" {
		status = model.TaskStatusPlanning
	}
	task := &model.Task{
		ID:                 "task_" + uuid.New().String(),
		OrgID:              project.OrgID,
		ProjectID:          project.ID,
		Title:              req.Title,
		Status:             status,
		AssigneeID:         req.AssigneeID,
		Estimate:           req.Estimate,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		PredecessorID:      req.PredecessorID,
		LinkedInitiativeID: req.LinkedInitiativeID,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.store.CreateTask(r.Context(), task); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.logger.Info("task created", "id", task.ID, "project_id", task.ProjectID)
	s.hub.Broadcast(task.OrgID, model.Event{Type: model.EventTaskCreated, Payload: task})
	respondCreated(w, reqID, task)
}

// loadTask fetches a task and enforces the org boundary. It writes the
// error response and returns nil when the task is unavailable.
func (s *Server) loadTask(w http.ResponseWriter, r *http.Request, reqID string) *model.Task {
	id := chi.URLParam(r, "id")
	task, err := s.store.GetTask(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return nil
	}
	if task == nil || task.OrgID != orgID(r) {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("task", id))
		return nil
	}
	return task
}

// handleGetTask returns one task.
// GET /api/v1/tasks/{id}
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	task := s.loadTask(w, r, reqID)
	if task == nil {
		return
	}
	respondOK(w, reqID, task)
}

// handleUpdateTask applies a partial update and cascades end-date changes
// through the dependency chain unless ?cascade=false.
// PATCH /api/v1/tasks/{id}?cascade=
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	task := s.loadTask(w, r, reqID)
	if task == nil {
		return
	}

	var upd model.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}
	if err := upd.Validate(); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			respondError(w, reqID, http.StatusBadRequest, apiErr)
		} else {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
		}
		return
	}

	cascadeDates := r.URL.Query().Get("cascade") != "false"
	result, err := s.resolver.UpdateWithCascade(r.Context(), task.ID, upd, cascadeDates)
	if err != nil {
		if errors.Is(err, model.ErrCycleDetected) {
			respondError(w, reqID, http.StatusConflict, &model.APIError{
				Code:    model.ErrCycle,
				Message: "dependency cycle detected, update rejected",
			})
			return
		}
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	if err := s.store.CommitTasks(r.Context(), result.Dirty); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.logger.Info("task updated", "id", task.ID, "affected", result.Report.TotalAffected)
	s.hub.Broadcast(task.OrgID, model.Event{Type: model.EventTaskUpdated, Payload: result.Dirty[0]})
	respondOK(w, reqID, result.Report)
}

// handleDeleteTask removes a task.
// DELETE /api/v1/tasks/{id}
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	task := s.loadTask(w, r, reqID)
	if task == nil {
		return
	}

	if err := s.store.DeleteTask(r.Context(), task.ID); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.hub.Broadcast(task.OrgID, model.Event{
		Type:    model.EventTaskDeleted,
		Payload: map[string]string{"id": task.ID},
	})
	respondOK(w, reqID, map[string]any{"deleted": true})
}

// handleTaskDependencies returns the predecessor chain and successor tree.
// GET /api/v1/tasks/{id}/dependencies
func (s *Server) handleTaskDependencies(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	task := s.loadTask(w, r, reqID)
	if task == nil {
		return
	}

	chain, err := s.resolver.Chain(r.Context(), task.ID)
	if err != nil {
		if errors.Is(err, model.ErrCycleDetected) {
			respondError(w, reqID, http.StatusConflict, &model.APIError{
				Code:    model.ErrCycle,
				Message: "dependency cycle detected",
			})
			return
		}
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	respondOK(w, reqID, chain)
}

// handleAutoAssign runs the tiered allocator over the organization's
// unassigned tasks, commits the assignments and broadcasts the report.
// POST /api/v1/tasks/auto-assign
func (s *Server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	org := orgID(r)

	result, err := s.allocator.Allocate(r.Context(), org)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if err := s.store.CommitTasks(r.Context(), result.Assigned); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.hub.Broadcast(org, model.Event{Type: model.EventTasksAutoAssigned, Payload: result.Report})
	respondOK(w, reqID, result.Report)
}
