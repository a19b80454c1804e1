package server

import (
	"net/http"

	"github.com/me/teamplan/pkg/model"
)

// handlePortfolioKVI returns the combined health, value and schedule
// variance rollup for the organization.
// GET /api/v1/kvi/portfolio
func (s *Server) handlePortfolioKVI(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	report, err := s.kvi.Portfolio(r.Context(), orgID(r))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	respondOK(w, reqID, report)
}
