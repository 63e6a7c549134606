package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ettore-crm/internal/service"
	"github.com/ettore-crm/internal/types"
)

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleSendNotification handles POST /api/notifications/send - Email the owner about a lead
func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.Notification(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	sent, err := s.notifications.Send(r.Context(), ownerID(r), input.Type, input.LeadID, service.NotificationContext{
		OldStatus: types.LeadStatus(input.Context.OldStatus),
		NewStatus: types.LeadStatus(input.Context.NewStatus),
		DraftID:   input.Context.DraftID,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := messageResponse{Success: sent, Message: "Notification sent successfully"}
	if !sent {
		resp.Message = "Failed to send notification"
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleTestNotification handles POST /api/notifications/test - Email the owner a sample notification
func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent := s.notifications.SendTest(r.Context(), ownerID(r))

	resp := messageResponse{Success: sent, Message: "Test notification sent"}
	if !sent {
		resp.Message = "Failed to send test notification"
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleListNotifications handles GET /api/notifications?unread=true
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := s.notifications.List(r.Context(), ownerID(r), unreadOnly)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": list,
	})
}

// handleMarkNotificationRead handles POST /api/notifications/{id}/read
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notifications.MarkRead(r.Context(), ownerID(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
