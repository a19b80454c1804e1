package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/me/teamplan/pkg/model"
)

// handleListInitiatives lists the organization's initiatives.
// GET /api/v1/initiatives
func (s *Server) handleListInitiatives(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	initiatives, err := s.store.ListInitiatives(r.Context(), orgID(r))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	items, pg := page(initiatives, parseListOptions(r))
	respondList(w, reqID, items, pg)
}

// handleCreateInitiative creates an initiative.
// POST /api/v1/initiatives
func (s *Server) handleCreateInitiative(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Name    string             `json:"name"`
		Status  string             `json:"status"`
		Metrics map[string]float64 `json:"metrics"`
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

	initiative := &model.Initiative{
		ID:        "init_" + uuid.New().String(),
		OrgID:     orgID(r),
		Name:      req.Name,
		Status:    req.Status,
		Metrics:   req.Metrics,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateInitiative(r.Context(), initiative); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.hub.Broadcast(initiative.OrgID, model.Event{Type: model.EventInitiativeCreated, Payload: initiative})
	respondCreated(w, reqID, initiative)
}
