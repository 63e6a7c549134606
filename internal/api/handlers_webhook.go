package api

import (
	"net/http"
	"strings"

	"github.com/ettore-crm/internal/service"
)

// WebhookResponse is returned for an accepted webhook lead
type WebhookResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id"`
	Message string `json:"message"`
}

// handleWebhookLead handles POST /api/webhook/leads - Ingest a lead from an external form
func (s *Server) handleWebhookLead(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.WebhookLead(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	lead, err := s.webhook.Ingest(r.Context(), input.UserID, input.APIKey, input.LeadFields())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		LeadID:  lead.ID,
		Message: "Lead created successfully",
	})
}

// handleWebhookInfo handles GET /api/webhook/leads?user_id= - Describe the webhook
func (s *Server) handleWebhookInfo(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id parameter is required", nil)
		return
	}
	respondJSON(w, http.StatusOK, s.webhook.Info(userID))
}

// webhookTestResponse reports the outcome of a webhook self-test
type webhookTestResponse struct {
	TestSuccessful  bool                    `json:"test_successful"`
	WebhookResponse interface{}             `json:"webhook_response"`
	TestPayload     service.TestLeadPayload `json:"test_payload"`
}

// handleWebhookTest handles POST /api/webhook/test - Submit a sample lead
// through the same path as the real webhook
func (s *Server) handleWebhookTest(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.WebhookTest(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	payload := service.NewTestLeadPayload(input.UserID, input.APIKey)
	resp := webhookTestResponse{TestPayload: payload}

	lead, err := s.webhook.Ingest(r.Context(), payload.UserID, payload.APIKey, payload.Fields())
	if err != nil {
		status, message, details, _ := mapServiceError(err)
		if status >= http.StatusInternalServerError {
			respondServiceError(w, r, err)
			return
		}
		resp.WebhookResponse = ErrorResponse{Error: message, Details: details}
	} else {
		resp.TestSuccessful = true
		resp.WebhookResponse = WebhookResponse{
			Success: true,
			LeadID:  lead.ID,
			Message: "Lead created successfully",
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
