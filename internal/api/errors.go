package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/validation"
)

// maxBodyBytes bounds every request body
const maxBodyBytes = 1 << 20

// Client-facing messages
const (
	MsgValidationFailed = "Validation failed"
	MsgInternalError    = "Internal server error"
	MsgUnauthorized     = "Unauthorized"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string, details []string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message, Details: details})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidation sends the 400 produced by the validator
func respondValidation(w http.ResponseWriter, errs validation.Errors) {
	respondError(w, http.StatusBadRequest, MsgValidationFailed, errs)
}

// respondServiceError maps a service error to a response. Causes of 5xx
// errors are logged and never sent to the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, details, retryAfter := mapServiceError(err)

	logger := logging.FromContext(r.Context()).WithError(err).WithField("status", status)
	switch {
	case apperrors.IsNotFound(err):
		// routine, not logged
	case apperrors.IsUserError(err):
		logger.Debug("request rejected")
	default:
		logger.Error("request failed")
	}
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	respondError(w, status, message, details)
}

// mapServiceError maps service errors to HTTP status codes. Store and
// system causes are replaced by a generic message.
func mapServiceError(err error) (status int, message string, details []string, retryAfter int) {
	status = apperrors.GetHTTPStatusCode(err)

	var catErr *apperrors.CategorizedError
	if !errors.As(err, &catErr) {
		return status, MsgInternalError, nil, 0
	}

	switch catErr.Category {
	case apperrors.CategoryValidation:
		return status, catErr.Message, catErr.Details, 0
	case apperrors.CategoryRateLimit:
		return status, catErr.Message, nil, catErr.RetryAfter
	case apperrors.CategoryAuthorization, apperrors.CategoryNotFound,
		apperrors.CategoryConflict, apperrors.CategoryUpstream:
		return status, catErr.Message, nil, 0
	default:
		return status, MsgInternalError, nil, 0
	}
}

// readBody reads a bounded request body
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return nil, false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return nil, false
	}
	return body, true
}
