package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/types"
)

// maxLeadLimit caps the limit query parameter of lead listings
const maxLeadLimit = 200

type leadResponse struct {
	Success bool         `json:"success"`
	Lead    *models.Lead `json:"lead"`
}

// handleListLeads handles GET /api/leads - List the owner's leads
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter, errs := parseLeadFilter(r)
	if errs != nil {
		respondError(w, http.StatusBadRequest, MsgValidationFailed, errs)
		return
	}

	leads, err := s.leads.ListLeads(r.Context(), ownerID(r), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"leads":   leads,
	})
}

func parseLeadFilter(r *http.Request) (models.LeadFilter, []string) {
	q := r.URL.Query()
	filter := models.LeadFilter{Search: strings.TrimSpace(q.Get("search"))}
	var errs []string

	if raw := strings.TrimSpace(q.Get("status")); raw != "" && raw != "all" {
		status, ok := types.NormalizeStatus(raw)
		if !ok {
			errs = append(errs, fmt.Sprintf("status: must be one of %s", strings.Join(types.AcceptedStatusNames(), ", ")))
		} else {
			filter.Status = string(status)
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			errs = append(errs, "limit: must be a positive integer")
		} else {
			filter.Limit = min(limit, maxLeadLimit)
		}
	}

	return filter, errs
}

// handleCreateLead handles POST /api/leads - Create a lead from the dashboard
func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.ManualLead(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	lead, err := s.leads.CreateLead(r.Context(), ownerID(r), input.LeadFields())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, leadResponse{Success: true, Lead: lead})
}

// handleGetLead handles GET /api/leads/{id} - Get a lead and its activity log
func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	detail, err := s.leads.GetLeadWithActivities(r.Context(), ownerID(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"lead":       detail.Lead,
		"activities": detail.Activities,
	})
}

// handleUpdateLead handles PATCH /api/leads/{id} - Update status, priority or notes
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.LeadUpdate(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	lead, err := s.leads.UpdateLead(r.Context(), ownerID(r), mux.Vars(r)["id"], input.Update())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, leadResponse{Success: true, Lead: lead})
}

// handleDashboardStats handles GET /api/dashboard/stats
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.leads.Stats(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}
