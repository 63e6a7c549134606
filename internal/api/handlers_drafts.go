package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ettore-crm/internal/service"
)

// handleGenerateDraft handles POST /api/ai/generate-draft - Generate a reply draft for a lead
func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.GenerateDraft(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	result, err := s.drafts.GenerateForLead(r.Context(), ownerID(r), service.GenerateDraftRequest{
		LeadID:       input.LeadID,
		TemplateType: input.TemplateType,
		CustomPrompt: input.CustomPrompt,
		Save:         input.ShouldSave(),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"draft":   result,
	})
}

// handleListDrafts handles GET /api/drafts?leadId= - List the owner's drafts
func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	var leadID *string
	if id := strings.TrimSpace(r.URL.Query().Get("leadId")); id != "" {
		leadID = &id
	}

	drafts, err := s.drafts.ListDrafts(r.Context(), ownerID(r), leadID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"drafts":  drafts,
	})
}

// handleUpdateDraft handles PATCH /api/drafts/{id} - Edit a stored draft
func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.DraftEdit(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	draft, err := s.drafts.UpdateDraft(r.Context(), ownerID(r), mux.Vars(r)["id"], input.Update())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"draft":   draft,
	})
}

// handleDeleteDraft handles DELETE /api/drafts/{id}
func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.drafts.DeleteDraft(r.Context(), ownerID(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
