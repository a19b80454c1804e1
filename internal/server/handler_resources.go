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

// handleListResources lists resources affiliated with the organization.
// GET /api/v1/resources
func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	resources, err := s.store.ListResources(r.Context(), orgID(r))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	items, pg := page(resources, parseListOptions(r))
	respondList(w, reqID, items, pg)
}

// handleCreateResource creates a resource with a primary affiliation to
// the caller's organization.
// POST /api/v1/resources
func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Name              string `json:"name"`
		Email             string `json:"email"`
		Team              string `json:"team"`
		Capacity          int    `json:"capacity"`
		AllocationPercent *int   `json:"allocation_percent"`
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
	if req.Capacity < 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("capacity must be non-negative",
				model.FieldError{Field: "capacity", Message: "negative value"}))
		return
	}

	capacity := req.Capacity
	if capacity == 0 {
		capacity = 160
	}
	allocation := 100
	if req.AllocationPercent != nil {
		allocation = *req.AllocationPercent
	}

	now := time.Now().UTC()
	resource := &model.Resource{
		ID:        "res_" + uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Team:      req.Team,
		Capacity:  capacity,
		Active:    true,
		CreatedAt: now,
	}
	if err := s.store.CreateResource(r.Context(), resource); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	aff := &model.Affiliation{
		ID:                "aff_" + uuid.New().String(),
		ResourceID:        resource.ID,
		OrgID:             orgID(r),
		Primary:           true,
		AllocationPercent: allocation,
		CreatedAt:         now,
	}
	if err := s.store.CreateAffiliation(r.Context(), aff); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.logger.Info("resource created", "id", resource.ID, "team", resource.Team, "org_id", aff.OrgID)
	s.hub.Broadcast(aff.OrgID, model.Event{Type: model.EventResourceCreated, Payload: resource})
	respondCreated(w, reqID, resource)
}

// handleGetResource returns one resource.
// GET /api/v1/resources/{id}
func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	resource, err := s.store.GetResource(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if resource == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("resource", id))
		return
	}
	respondOK(w, reqID, resource)
}

// handleUpdateResource applies a partial update.
// PATCH /api/v1/resources/{id}
func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	resource, err := s.store.GetResource(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if resource == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("resource", id))
		return
	}

	var upd model.ResourceUpdate
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
	upd.Apply(resource)

	if err := s.store.UpdateResource(r.Context(), resource); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.hub.Broadcast(orgID(r), model.Event{Type: model.EventResourceUpdated, Payload: resource})
	respondOK(w, reqID, resource)
}

// handleDeleteResource removes a resource and its affiliations.
// DELETE /api/v1/resources/{id}
func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	resource, err := s.store.GetResource(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if resource == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("resource", id))
		return
	}

	if err := s.store.DeleteResource(r.Context(), id); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.hub.Broadcast(orgID(r), model.Event{
		Type:    model.EventResourceDeleted,
		Payload: map[string]string{"id": id},
	})
	respondOK(w, reqID, map[string]any{"deleted": true})
}

// handleCreateAffiliation grants an organization a share of a resource.
// POST /api/v1/resources/{id}/affiliations
func (s *Server) handleCreateAffiliation(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	resource, err := s.store.GetResource(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if resource == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("resource", id))
		return
	}

	var req struct {
		OrgID             string `json:"org_id"`
		Primary           bool   `json:"is_primary"`
		AllocationPercent int    `json:"allocation_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}
	if req.OrgID == "" {
		req.OrgID = orgID(r)
	}
	if req.AllocationPercent < 0 || req.AllocationPercent > 100 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("allocation_percent out of range",
				model.FieldError{Field: "allocation_percent", Message: "must be 0-100"}))
		return
	}

	aff := &model.Affiliation{
		ID:                "aff_" + uuid.New().String(),
		ResourceID:        resource.ID,
		OrgID:             req.OrgID,
		Primary:           req.Primary,
		AllocationPercent: req.AllocationPercent,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.CreateAffiliation(r.Context(), aff); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	s.logger.Info("affiliation created", "resource_id", resource.ID, "org_id", aff.OrgID, "allocation", aff.AllocationPercent)
	respondCreated(w, reqID, aff)
}

// tieredResource is a resource with its affiliation context for the
// availability listing.
type tieredResource struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	Team              string `json:"team"`
	Capacity          int    `json:"capacity"`
	AllocationPercent int    `json:"allocation_percent"`
	Primary           bool   `json:"is_primary"`
	UsedHours         int    `json:"used_hours"`
	AvailableHours    int    `json:"available_hours"`
}

// handleAvailableResources returns the organization's resources in
// assignment tiers: primary affiliations first, shared ones second.
// GET /api/v1/resources/available
func (s *Server) handleAvailableResources(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	org := orgID(r)

	assignments, err := s.store.ActiveResourceAssignments(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	primary := []tieredResource{}
	shared := []tieredResource{}
	for _, ra := range assignments {
		if ra.Affiliation.OrgID != org {
			continue
		}
		tr := tieredResource{
			ID:                ra.Resource.ID,
			Name:              ra.Resource.Name,
			Email:             ra.Resource.Email,
			Team:              ra.Resource.Team,
			Capacity:          ra.Resource.Capacity,
			AllocationPercent: ra.Affiliation.AllocationPercent,
			Primary:           ra.Affiliation.Primary,
			UsedHours:         ra.UsedHours,
			AvailableHours:    ra.Resource.Capacity - ra.UsedHours,
		}
		if tr.Primary {
			primary = append(primary, tr)
		} else {
			shared = append(shared, tr)
		}
	}

	respondOK(w, reqID, map[string]any{
		"primary": primary,
		"shared":  shared,
	})
}
