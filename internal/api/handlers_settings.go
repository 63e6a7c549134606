package api

import (
	"net/http"

	"github.com/ettore-crm/internal/models"
)

type settingsResponse struct {
	Success  bool                 `json:"success"`
	Settings *models.UserSettings `json:"settings"`
}

// handleGetSettings handles GET /api/user/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, settingsResponse{Success: true, Settings: settings})
}

// handleUpdateSettings handles PUT /api/user/settings - Merge a partial update
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.SettingsUpdate(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	settings, err := s.settings.Update(r.Context(), ownerID(r), input)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, settingsResponse{Success: true, Settings: settings})
}

// handleGenerateAPIKey handles POST /api/user/generate-api-key - Replace the webhook key
func (s *Server) handleGenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.settings.GenerateAPIKey(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"apiKey":  key,
	})
}
