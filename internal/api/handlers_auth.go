package api

import (
	"net/http"

	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/models"
)

type userResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// handleSignUp handles POST /auth/signup - Create an account and sign in
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.SignUp(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	user, err := s.auth.SignUp(r.Context(), input.Email, input.Password, input.DisplayName)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := s.sessions.SignIn(w, r, user.ID); err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to write session")
		respondError(w, http.StatusInternalServerError, MsgInternalError, nil)
		return
	}

	respondJSON(w, http.StatusCreated, userResponse{Success: true, User: user})
}

// handleLogin handles POST /auth/login - Check a password and sign in
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	input, errs := s.validator.Login(body)
	if errs != nil {
		respondValidation(w, errs)
		return
	}

	user, err := s.auth.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := s.sessions.SignIn(w, r, user.ID); err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to write session")
		respondError(w, http.StatusInternalServerError, MsgInternalError, nil)
		return
	}

	respondJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// handleLogout handles POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(w, r); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("failed to clear session")
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleMe handles GET /auth/me - Return the signed-in account
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.GetUser(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}
