package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/portfolio-reconciler/internal/service"
)

// computeRequest is the body of POST /api/portfolio/compute
type computeRequest struct {
	Investor string                 `json:"investor"`
	Now      *time.Time             `json:"now,omitempty"`
	Tokens   []models.TokenRecord   `json:"tokens"`
	Reports  []models.RevenueReport `json:"reports"`
	Profiles []models.EntityProfile `json:"profiles"`
}

// handleGetPortfolio handles GET /api/investors/{identity}/portfolio
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	investor := mux.Vars(r)["identity"]
	if strings.TrimSpace(investor) == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Investor identity required", nil)
		return
	}

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid refresh parameter", map[string]interface{}{
				"refresh": raw,
			})
			return
		}
		refresh = parsed
	}

	result, err := s.portfolioService.GetPortfolio(r.Context(), &service.GetPortfolioInput{
		Investor: investor,
		Refresh:  refresh,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	respondJSON(w, http.StatusOK, result)
}

// handleInvalidatePortfolio handles DELETE /api/investors/{identity}/portfolio/cache
func (s *Server) handleInvalidatePortfolio(w http.ResponseWriter, r *http.Request) {
	investor := mux.Vars(r)["identity"]

	if err := s.portfolioService.InvalidatePortfolio(r.Context(), investor); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleComputePortfolio handles POST /api/portfolio/compute
func (s *Server) handleComputePortfolio(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := parseJSONBody(w, r, s.config.MaxBodyBytes, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", map[string]interface{}{
			"reason": err.Error(),
		})
		return
	}

	result, err := s.portfolioService.ComputeFromSnapshot(r.Context(), &service.ComputeInput{
		Investor: req.Investor,
		Now:      req.Now,
		Snapshot: &models.Snapshot{
			Tokens:   req.Tokens,
			Reports:  req.Reports,
			Profiles: req.Profiles,
		},
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
